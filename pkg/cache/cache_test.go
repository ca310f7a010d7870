package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"passages/pkg/config"
	"passages/pkg/db"
	"passages/pkg/store"
)

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c, err := OpenRedis(ctx, mr.Addr(), "", 0, time.Minute)
	if err != nil {
		t.Fatalf("OpenRedis failed: %v", err)
	}
	defer c.Close()

	if _, hit := c.GetCache(ctx, "routes"); hit {
		t.Error("expected miss")
	}
	if err := c.SetCache(ctx, "routes", []byte("payload")); err != nil {
		t.Fatalf("SetCache failed: %v", err)
	}
	val, hit := c.GetCache(ctx, "routes")
	if !hit || string(val) != "payload" {
		t.Errorf("GetCache = %q, %v", val, hit)
	}
	if !mr.Exists("passages:routes") {
		t.Error("expected prefixed key in redis")
	}

	mr.FastForward(2 * time.Minute)
	if _, hit := c.GetCache(ctx, "routes"); hit {
		t.Error("expected entry to expire")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	d, err := db.Init(filepath.Join(t.TempDir(), "cache_test.db"))
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	defer d.Close()
	st := store.NewSQLiteStore(d)

	tests := []struct {
		name    string
		cfg     config.CacheConfig
		sqlite  Cacher
		wantErr bool
	}{
		{"SQLite", config.CacheConfig{Backend: "sqlite"}, st, false},
		{"SQLiteWithoutStore", config.CacheConfig{Backend: "sqlite"}, nil, true},
		{"None", config.CacheConfig{Backend: "none"}, nil, false},
		{"RedisUnreachable", config.CacheConfig{Backend: "redis"}, nil, true},
		{"Unknown", config.CacheConfig{Backend: "memcached"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, closeFn, err := Open(ctx, &tt.cfg, tt.sqlite)
			if closeFn == nil {
				t.Fatal("close function must never be nil")
			}
			defer closeFn()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if err := c.SetCache(ctx, "k", []byte("v")); err != nil {
				t.Errorf("SetCache failed: %v", err)
			}
		})
	}
}

func TestNop(t *testing.T) {
	var c Cacher = Nop{}
	_ = c.SetCache(context.Background(), "k", []byte("v"))
	if _, hit := c.GetCache(context.Background(), "k"); hit {
		t.Error("Nop must never hit")
	}
}
