package store

import (
	"context"
	"time"
)

// CacheStore handles generic key-value caching.
type CacheStore interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	HasCache(ctx context.Context, key string) (bool, error)
	SetCache(ctx context.Context, key string, val []byte) error
	ListCacheKeys(ctx context.Context, prefix string) ([]string, error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}

// IngestRun records one fetch of a source table.
type IngestRun struct {
	Table     string
	Source    string
	Records   int
	Err       string
	CreatedAt time.Time
}

// IngestStore keeps a history of source fetches.
type IngestStore interface {
	RecordIngest(ctx context.Context, run IngestRun) error
	LastIngest(ctx context.Context, table string) (*IngestRun, error)
}
