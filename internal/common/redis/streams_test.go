package redis

import (
	"context"
	"testing"
	"time"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPublishToStream_StringifiesValues(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	id, err := PublishToStream(ctx, client, "test:stream", map[string]interface{}{
		"s":    "text",
		"i":    42,
		"i64":  int64(7),
		"b":    true,
		"list": []int{1, 2},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := client.XRange(ctx, "test:stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "text", msgs[0].Values["s"])
	assert.Equal(t, "42", msgs[0].Values["i"])
	assert.Equal(t, "7", msgs[0].Values["i64"])
	assert.Equal(t, "true", msgs[0].Values["b"])
	assert.Equal(t, "[1,2]", msgs[0].Values["list"])
}

func TestPublishJSONToStream(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	_, err := PublishJSONToStream(ctx, client, "test:stream", "trip.started", map[string]any{"impaired_user_id": 1})
	require.NoError(t, err)

	msgs, err := client.XRange(ctx, "test:stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "trip.started", msgs[0].Values["type"])
	assert.JSONEq(t, `{"impaired_user_id":1}`, msgs[0].Values["data"].(string))
	assert.NotEmpty(t, msgs[0].Values["timestamp"])
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), &config.RedisConfig{Addr: mr.Addr()}, time.Second)
	require.NoError(t, err)
	assert.NoError(t, client.Ping(context.Background()).Err())
	assert.NoError(t, Close(client))
	assert.NoError(t, Close(nil))

	addr := mr.Addr()
	mr.Close()
	_, err = Connect(context.Background(), &config.RedisConfig{Addr: addr}, 200*time.Millisecond)
	assert.Error(t, err)
}
