package cache

import (
	"context"
	"strings"
	"sync"

	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
)

// MemoryBackend keeps entries in process.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string][]byte)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.entries[key]
	return data, ok, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = stored
	return nil
}

func (b *MemoryBackend) Clear(_ context.Context, prefix string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var deleted int64
	for key := range b.entries {
		if strings.HasPrefix(key, prefix) {
			delete(b.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// RedisBackend shares entries between searcher replicas. Keys are written
// without a TTL.
type RedisBackend struct {
	client *pkgredis.Client
}

func NewRedisBackend(client *pkgredis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return b.client.GetBytes(ctx, key)
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	return b.client.SetBytes(ctx, key, value, 0)
}

func (b *RedisBackend) Clear(ctx context.Context, prefix string) (int64, error) {
	return b.client.DeletePrefix(ctx, prefix)
}
