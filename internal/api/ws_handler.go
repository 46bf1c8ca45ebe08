package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"pagecraft/internal/editor"
	"pagecraft/internal/notify"
)

type redisSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// WsHandler 负责处理页面订阅与变更消息转发。
type WsHandler struct {
	redisClient    redisSubscriber
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

// NewWsHandler 构造 WebSocket 处理器。
func NewWsHandler(redisClient redisSubscriber, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	h := &WsHandler{
		redisClient:    redisClient,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if len(h.allowedOrigins) == 0 {
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

type wsSubscribeMessage struct {
	Type string `json:"type"`
	Page string `json:"page"`
}

// parseSubscribe 校验客户端的第一条消息，返回要订阅的页面。
func parseSubscribe(message []byte) (string, error) {
	var msg wsSubscribeMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return "", fmt.Errorf("decode subscribe payload: %w", err)
	}
	if msg.Type != "subscribe" {
		return "", fmt.Errorf("unexpected message type %q", msg.Type)
	}
	if !editor.ValidPage(msg.Page) {
		return "", fmt.Errorf("%w: %q", editor.ErrInvalidPage, msg.Page)
	}
	return msg.Page, nil
}

// HandleConnection 负责升级连接并启动读写循环。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	baseLog := h.logger.With(
		slog.String("client_ip", c.ClientIP()),
	)

	pageCh := make(chan string, 1)
	errCh := make(chan error, 1)

	go h.readLoop(ctx, conn, pageCh, errCh, cancel, baseLog)

	var page string
	select {
	case <-ctx.Done():
		return
	case err := <-errCh:
		if err != nil {
			baseLog.Warn("websocket subscribe failed", slog.Any("error", err))
		}
		return
	case page = <-pageCh:
	}

	pageLog := baseLog.With(slog.String("page", page))
	go h.subscribeLoop(ctx, conn, page, errCh, cancel, pageLog)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			pageLog.Info("websocket connection closed", slog.Any("error", err))
		} else {
			pageLog.Info("websocket connection closed")
		}
	}
}

func (h *WsHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	pageCh chan<- string,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	subscribed := false

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			writeClose(conn, websocket.CloseAbnormalClosure, "read error")
			sendErr(errCh, fmt.Errorf("read message: %w", err))
			cancel()
			return
		}

		if !subscribed {
			page, err := parseSubscribe(message)
			if err != nil {
				writeClose(conn, websocket.ClosePolicyViolation, "subscribe required")
				sendErr(errCh, err)
				cancel()
				return
			}
			subscribed = true
			pageCh <- page
			log.Info("websocket subscribed", slog.String("page", page))
			continue
		}

		// 订阅后客户端消息被忽略，循环用于检测断开。
	}
}

func sendErr(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

func (h *WsHandler) subscribeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	page string,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	channel := notify.Channel(page)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Info("subscribed to redis channel", slog.String("channel", channel))

	ch := pubsub.Channel()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				sendErr(errCh, fmt.Errorf("pubsub channel closed"))
				cancel()
				return
			}

			log.Info("forwarding message to client", slog.String("channel", channel))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				sendErr(errCh, fmt.Errorf("write message: %w", err))
				cancel()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				sendErr(errCh, fmt.Errorf("write ping: %w", err))
				cancel()
				return
			}
		}
	}
}
