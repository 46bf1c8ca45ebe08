package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	channel string
	payload []byte
}

func (p *capturePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel = channel
	p.payload, _ = message.([]byte)
	return redis.NewIntResult(1, nil)
}

func TestPublisherStampsOrigin(t *testing.T) {
	client := &capturePublisher{}
	pub := NewPublisher(client)
	require.NotEmpty(t, pub.Origin())

	require.NoError(t, pub.Notify(context.Background(), "home", Message{Event: EventReset}))
	assert.Equal(t, "page_notify:home", client.channel)

	var got Message
	require.NoError(t, json.Unmarshal(client.payload, &got))
	assert.Equal(t, "home", got.Page)
	assert.Equal(t, pub.Origin(), got.Origin)

	assert.NotEqual(t, pub.Origin(), NewPublisher(client).Origin())
}

func TestDecodeRemote(t *testing.T) {
	msg, remote, err := DecodeRemote("page_notify:home", `{"event":"reset","page":"spoofed","origin":"admin"}`, "api")
	require.NoError(t, err)
	assert.True(t, remote)
	assert.Equal(t, "home", msg.Page)
	assert.Equal(t, EventReset, msg.Event)

	_, remote, err = DecodeRemote("page_notify:home", `{"event":"changed","origin":"api"}`, "api")
	require.NoError(t, err)
	assert.False(t, remote)

	_, remote, err = DecodeRemote("page_notify:home", `{"event":"archived"}`, "api")
	require.NoError(t, err)
	assert.True(t, remote)

	_, _, err = DecodeRemote("other:home", `{}`, "api")
	assert.Error(t, err)
	_, _, err = DecodeRemote("page_notify:home", `nope`, "api")
	assert.Error(t, err)
}

func TestNilPublisherIsNoop(t *testing.T) {
	var pub *Publisher
	assert.NoError(t, pub.Notify(context.Background(), "home", Message{}))
	assert.Empty(t, pub.Origin())
}
