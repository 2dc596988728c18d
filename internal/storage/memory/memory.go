package memory

import (
	"context"
	"log/slog"

	"dashfeed/internal/cache"
	"dashfeed/internal/storage"
)

func init() {
	storage.RegisterFactory(storage.TypeMemory, New)
}

// MemoryStorage keeps responses for the lifetime of the process only.
type MemoryStorage struct {
	responses *cache.Cache[string, []byte]
	logger    *slog.Logger
}

func New(cfg storage.Config, logger *slog.Logger) (storage.ResponseStore, error) {
	logger.Debug("Initializing in-memory cache", "ttl", cfg.TTL)

	return &MemoryStorage{
		responses: cache.NewCache[string, []byte](cache.CacheConfig{TTL: cfg.TTL}, func(k string) string { return k }),
		logger:    logger,
	}, nil
}

func (m *MemoryStorage) Get(key string) ([]byte, bool) {
	return m.responses.Get(key)
}

func (m *MemoryStorage) Set(key string, response []byte) {
	m.responses.Set(key, response)
}

func (m *MemoryStorage) Delete(key string) {
	m.responses.InvalidateKey(key)
}

func (m *MemoryStorage) Close(ctx context.Context) error {
	m.logger.Debug("Discarding in-memory cache", "entries", m.responses.Len())
	return m.responses.Close()
}
