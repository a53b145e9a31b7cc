package events

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStreamPublisher_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	p := NewStreamPublisher(client, "theia:events")
	require.NoError(t, p.Publish(context.Background(), MessageAppended, map[string]any{
		"conversation_id":    int64(3),
		"msg_ordered_number": int64(1),
	}))

	msgs, err := client.XRange(context.Background(), "theia:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, MessageAppended, msgs[0].Values["type"])
	assert.JSONEq(t, `{"conversation_id":3,"msg_ordered_number":1}`, msgs[0].Values["data"].(string))
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any) error { return errors.New("redis down") }

func TestBestEffort_SwallowsAndLogs(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := NewBestEffort(failingPublisher{}, zap.New(core))

	assert.NoError(t, p.Publish(context.Background(), TripStarted, nil))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Failed to publish event", entry.Message)
	assert.Equal(t, TripStarted, entry.ContextMap()["event_type"])
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), TripEnded, 1))
	assert.NoError(t, NewBestEffort(nil, nil).Publish(context.Background(), TripEnded, 1))
}
