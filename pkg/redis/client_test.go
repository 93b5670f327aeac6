package redis

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	c, err := NewClient(config.RedisConfig{Addr: srv.Addr(), PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, srv
}

func TestGetSetBytes(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	_, ok, err := c.GetBytes(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetBytes(ctx, "k", []byte{0x01, 0x02}, 0))
	got, ok, err := c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x02}, got)
	assert.Zero(t, srv.TTL("k"))
}

func TestDeletePrefix(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, c.SetBytes(ctx, fmt.Sprintf("q:%d", i), []byte("x"), 0))
	}
	require.NoError(t, c.SetBytes(ctx, "other", []byte("x"), 0))

	deleted, err := c.DeletePrefix(ctx, "q:")
	require.NoError(t, err)
	assert.EqualValues(t, 250, deleted)
	assert.True(t, srv.Exists("other"))
	assert.False(t, srv.Exists("q:7"))
}

func TestNewClientUnreachable(t *testing.T) {
	_, err := NewClient(config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
