package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ikkim/inventory-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupKV(t *testing.T) (*miniredis.Miniredis, *KV) {
	mr := miniredis.RunT(t)

	cfg := &config.RedisConfig{Host: mr.Host(), Port: mr.Port()}
	client, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)

	kv := NewKV(client)
	t.Cleanup(func() { kv.Close() })
	return mr, kv
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := &config.RedisConfig{Host: "127.0.0.1", Port: "1"}
	_, err := NewClient(context.Background(), cfg)
	assert.Error(t, err)
}

func TestKV_Strings(t *testing.T) {
	mr, kv := setupKV(t)
	ctx := context.Background()

	_, found, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, kv.Set(ctx, "product:1", `{"id":1}`))
	val, found, err := kv.Get(ctx, "product:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"id":1}`, val)
	mr.CheckGet(t, "product:1", `{"id":1}`)

	n, err := kv.Del(ctx, "product:1", "product:2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestKV_SetsAndLists(t *testing.T) {
	_, kv := setupKV(t)
	ctx := context.Background()

	require.NoError(t, kv.SAdd(ctx, "products", "1", "2"))
	require.NoError(t, kv.SRem(ctx, "products", "1"))
	members, err := kv.SMembers(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, members)

	require.NoError(t, kv.RPush(ctx, "tags", "red", "blue", "red"))
	n, err := kv.LRem(ctx, "tags", "red")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	tags, err := kv.LRange(ctx, "tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"blue"}, tags)
}
