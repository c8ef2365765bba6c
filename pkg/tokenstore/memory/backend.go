package memory

import (
	"context"
	"sync"

	"github.com/patrickmn/go-cache"
)

// Backend keeps the session in process memory. It is lost on exit.
type Backend struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewBackend() *Backend {
	return &Backend{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (b *Backend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.cache.Get(key)
	if !ok {
		return "", false, nil
	}

	s, ok := v.(string)

	return s, ok, nil
}

func (b *Backend) SetMany(_ context.Context, values map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for k, v := range values {
		b.cache.Set(k, v, cache.NoExpiration)
	}

	return nil
}

func (b *Backend) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, k := range keys {
		b.cache.Delete(k)
	}

	return nil
}
