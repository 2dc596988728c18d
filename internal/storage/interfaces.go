package storage

import (
	"context"
	"time"

	"github.com/gregjones/httpcache"
)

const (
	TypeSQLite = "sqlite"
	TypeMemory = "memory"
	TypeRedis  = "redis"
	TypeNone   = "none"
)

// ResponseStore keeps serialized HTTP responses for the caching transport.
// Implementations must be safe for concurrent use.
type ResponseStore interface {
	httpcache.Cache
	Close(ctx context.Context) error
}

type Config struct {
	Type      string
	Path      string
	RedisAddr string
	TTL       time.Duration
}
