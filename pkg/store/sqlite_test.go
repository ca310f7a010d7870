package store

import (
	"bytes"
	"context"
	"path/filepath"
	"sort"
	"testing"

	"passages/pkg/db"
)

func TestSQLiteStore(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	d, err := db.Init(dbPath)
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	defer d.Close()

	store := NewSQLiteStore(d)
	ctx := context.Background()

	testCache(t, ctx, store)
	testState(t, ctx, store)
	testIngest(t, ctx, store)
}

func testCache(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("Cache", func(t *testing.T) {
		payload := bytes.Repeat([]byte(`{"type":"FeatureCollection","features":[]}`), 50)

		if _, hit := store.GetCache(ctx, "carto:routes"); hit {
			t.Error("expected miss before set")
		}
		if err := store.SetCache(ctx, "carto:routes", payload); err != nil {
			t.Fatalf("SetCache failed: %v", err)
		}
		if err := store.SetCache(ctx, "carto:metadata", []byte("{}")); err != nil {
			t.Fatalf("SetCache failed: %v", err)
		}

		got, hit := store.GetCache(ctx, "carto:routes")
		if !hit {
			t.Fatal("expected hit after set")
		}
		if !bytes.Equal(got, payload) {
			t.Error("cached value differs from stored value")
		}

		has, err := store.HasCache(ctx, "carto:metadata")
		if err != nil || !has {
			t.Errorf("HasCache = %v, %v", has, err)
		}

		keys, err := store.ListCacheKeys(ctx, "carto:")
		if err != nil {
			t.Fatalf("ListCacheKeys failed: %v", err)
		}
		sort.Strings(keys)
		if len(keys) != 2 || keys[0] != "carto:metadata" {
			t.Errorf("unexpected keys: %v", keys)
		}
	})
}

func testState(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("State", func(t *testing.T) {
		if _, ok := store.GetState(ctx, "units"); ok {
			t.Error("expected missing state")
		}
		if err := store.SetState(ctx, "units", "kilometers"); err != nil {
			t.Fatalf("SetState failed: %v", err)
		}
		val, ok := store.GetState(ctx, "units")
		if !ok || val != "kilometers" {
			t.Errorf("GetState = %q, %v", val, ok)
		}
		if err := store.DeleteState(ctx, "units"); err != nil {
			t.Fatalf("DeleteState failed: %v", err)
		}
		if _, ok := store.GetState(ctx, "units"); ok {
			t.Error("expected state deleted")
		}
	})
}

func testIngest(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("Ingest", func(t *testing.T) {
		run, err := store.LastIngest(ctx, "routes")
		if err != nil || run != nil {
			t.Fatalf("expected no run, got %v, %v", run, err)
		}

		if err := store.RecordIngest(ctx, IngestRun{Table: "routes", Source: "carto", Err: "timeout"}); err != nil {
			t.Fatalf("RecordIngest failed: %v", err)
		}
		if err := store.RecordIngest(ctx, IngestRun{Table: "routes", Source: "carto", Records: 120}); err != nil {
			t.Fatalf("RecordIngest failed: %v", err)
		}

		run, err = store.LastIngest(ctx, "routes")
		if err != nil {
			t.Fatalf("LastIngest failed: %v", err)
		}
		if run.Records != 120 || run.Err != "" {
			t.Errorf("unexpected last run: %+v", run)
		}
		if run.CreatedAt.IsZero() {
			t.Error("expected a timestamp")
		}
	})
}
