package storage

import (
	"fmt"
	"log/slog"
	"sync"
)

type Factory func(cfg Config, logger *slog.Logger) (ResponseStore, error)

var (
	factoryFuncs = map[string]Factory{}
	mu           sync.RWMutex
)

func RegisterFactory(storageType string, fn Factory) {
	mu.Lock()
	defer mu.Unlock()
	factoryFuncs[storageType] = fn
}

// New opens the response store for cfg.Type. TypeNone yields a nil store,
// which disables HTTP caching.
func New(cfg Config, logger *slog.Logger) (ResponseStore, error) {
	storageType := cfg.Type
	if storageType == "" {
		storageType = TypeSQLite
	}
	if storageType == TypeNone {
		return nil, nil
	}

	mu.RLock()
	fn, exists := factoryFuncs[storageType]
	mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unsupported cache type: %s", storageType)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return fn(cfg, logger)
}
