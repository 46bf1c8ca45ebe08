package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// 统一的 WebSocket 消息协议（通过 Redis Pub/Sub 转发给前端）。
// 注意：这里的字段名与前端解析保持一致。
type Message struct {
	Event         string `json:"event"`
	Page          string `json:"page"`
	BlockID       string `json:"block_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	ObjectKey     string `json:"object_key,omitempty"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message,omitempty"`
	// Origin 标识发布消息的进程，用于忽略自己发出的变更。
	Origin string `json:"origin,omitempty"`
}

// Event names carried in Message.Event.
const (
	EventChanged       = "changed"
	EventReset         = "reset"
	EventArchived      = "archived"
	EventArchiveFailed = "archive_failed"
)

const channelPrefix = "page_notify:"

// Channel returns the redis channel carrying notifications for page.
func Channel(page string) string {
	return fmt.Sprintf("%s%s", channelPrefix, page)
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Publisher sends page notifications over redis pub/sub. Every message is
// stamped with the publisher's origin.
type Publisher struct {
	client redisPublisher
	origin string
}

func NewPublisher(client redisPublisher) *Publisher {
	return &Publisher{client: client, origin: uuid.NewString()}
}

// Origin returns the id stamped on every message of this publisher.
func (p *Publisher) Origin() string {
	if p == nil {
		return ""
	}
	return p.origin
}

// Notify publishes msg on the channel of page.
func (p *Publisher) Notify(ctx context.Context, page string, msg Message) error {
	if p == nil || p.client == nil {
		return nil
	}
	msg.Page = page
	msg.Origin = p.origin
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notify message: %w", err)
	}
	return p.client.Publish(ctx, Channel(page), data).Err()
}

type redisPatternSubscriber interface {
	PSubscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Listen receives the notifications of every page and passes the ones
// published by another origin to handle. It blocks until ctx is done.
func Listen(ctx context.Context, client redisPatternSubscriber, origin string, logger *slog.Logger, handle func(Message)) error {
	pubsub := client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe page notifications: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			msg, remote, err := DecodeRemote(m.Channel, m.Payload, origin)
			if err != nil {
				logger.Warn("drop malformed page notification",
					slog.String("channel", m.Channel),
					slog.Any("error", err),
				)
				continue
			}
			if remote {
				handle(msg)
			}
		}
	}
}

// DecodeRemote parses a notification received on channel. remote is false
// for messages stamped with origin. The page is taken from the channel.
func DecodeRemote(channel, payload, origin string) (msg Message, remote bool, err error) {
	page, ok := strings.CutPrefix(channel, channelPrefix)
	if !ok || page == "" {
		return Message{}, false, fmt.Errorf("unexpected channel %q", channel)
	}
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return Message{}, false, fmt.Errorf("decode notify message: %w", err)
	}
	msg.Page = page
	return msg, msg.Origin == "" || msg.Origin != origin, nil
}
