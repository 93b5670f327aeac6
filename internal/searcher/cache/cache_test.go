package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
)

const testPrefix = "docsearch:query:"

func TestGetOrComputeCachesResult(t *testing.T) {
	c := New(NewMemoryBackend(), testPrefix, nil)
	ctx := context.Background()

	calls := 0
	compute := func() (*roaring.Bitmap, bool, error) {
		calls++
		return roaring.BitmapOf(0, 1), true, nil
	}

	got, hit, err := c.GetOrCompute(ctx, "quick fox", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []uint32{0, 1}, got.ToArray())

	got, hit, err = c.GetOrCompute(ctx, "quick fox", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []uint32{0, 1}, got.ToArray())
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 1, misses)
}

func TestKeyIsRawQuery(t *testing.T) {
	backend := NewMemoryBackend()
	c := New(backend, testPrefix, nil)
	ctx := context.Background()

	c.Set(ctx, "Quick Fox", roaring.BitmapOf(3))
	_, ok := c.Get(ctx, "quick fox")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "Quick Fox")
	assert.True(t, ok)
}

func TestGetOrComputeNotStored(t *testing.T) {
	backend := NewMemoryBackend()
	c := New(backend, testPrefix, nil)

	_, _, err := c.GetOrCompute(context.Background(), "the", func() (*roaring.Bitmap, bool, error) {
		return roaring.New(), false, nil
	})
	require.NoError(t, err)
	assert.Zero(t, backend.Len())
}

func TestGetOrComputeError(t *testing.T) {
	backend := NewMemoryBackend()
	c := New(backend, testPrefix, nil)
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(context.Background(), "q", func() (*roaring.Bitmap, bool, error) {
		return nil, false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, backend.Len())
}

func TestReturnedSetIsIndependent(t *testing.T) {
	c := New(NewMemoryBackend(), testPrefix, nil)
	ctx := context.Background()

	first, _, err := c.GetOrCompute(ctx, "q", func() (*roaring.Bitmap, bool, error) {
		return roaring.BitmapOf(1, 2), true, nil
	})
	require.NoError(t, err)
	first.Add(99)

	second, ok := c.Get(ctx, "q")
	require.True(t, ok)
	assert.Equal(t, []uint32{1, 2}, second.ToArray())
}

func TestClear(t *testing.T) {
	backend := NewMemoryBackend()
	c := New(backend, testPrefix, nil)
	ctx := context.Background()

	c.Set(ctx, "a", roaring.BitmapOf(1))
	c.Set(ctx, "b", roaring.BitmapOf(2))
	require.NoError(t, backend.Set(ctx, "unrelated", []byte("x")))

	require.NoError(t, c.Clear(ctx))
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 1, backend.Len())
}

func TestConcurrentIdenticalQueries(t *testing.T) {
	c := New(NewMemoryBackend(), testPrefix, nil)
	ctx := context.Background()

	var calls atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _, err := c.GetOrCompute(ctx, "fox", func() (*roaring.Bitmap, bool, error) {
				calls.Add(1)
				return roaring.BitmapOf(0, 1), true, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, []uint32{0, 1}, got.ToArray())
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(16))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestRedisBackend(t *testing.T) {
	srv := miniredis.RunT(t)
	client, err := pkgredis.NewClient(config.RedisConfig{Addr: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	c := New(NewRedisBackend(client), testPrefix, nil)
	ctx := context.Background()

	_, hit, err := c.GetOrCompute(ctx, "fox jumps", func() (*roaring.Bitmap, bool, error) {
		return roaring.BitmapOf(1), true, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, srv.Keys(), 1)

	got, ok := c.Get(ctx, "fox jumps")
	require.True(t, ok)
	assert.Equal(t, []uint32{1}, got.ToArray())

	require.NoError(t, c.Clear(ctx))
	assert.Empty(t, srv.Keys())
}

func TestRedisBackendUnavailableIsMiss(t *testing.T) {
	srv := miniredis.RunT(t)
	client, err := pkgredis.NewClient(config.RedisConfig{Addr: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	srv.Close()

	c := New(NewRedisBackend(client), testPrefix, nil)
	got, hit, err := c.GetOrCompute(context.Background(), "fox", func() (*roaring.Bitmap, bool, error) {
		return roaring.BitmapOf(4), true, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []uint32{4}, got.ToArray())
}
