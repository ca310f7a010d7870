package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"passages/pkg/db"
)

func TestRun(t *testing.T) {
	probes := []Probe{
		{
			Name: "Success Probe",
			Check: func(ctx context.Context) error {
				return nil
			},
			Critical: true,
		},
		{
			Name: "Failure Probe (Non-Critical)",
			Check: func(ctx context.Context) error {
				return errors.New("minor issue")
			},
			Critical: false,
		},
		{
			Name: "Hanging Probe",
			Check: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
			Timeout: 20 * time.Millisecond,
		},
	}

	results := Run(context.Background(), probes)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0].Error != nil {
		t.Errorf("Expected success probe to pass, got error: %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("Expected failure probe to fail, got nil")
	}
	if !errors.Is(results[2].Error, context.DeadlineExceeded) {
		t.Errorf("Expected hanging probe to time out, got %v", results[2].Error)
	}
	if results[2].Probe.Name != "Hanging Probe" {
		t.Errorf("results out of order: %q", results[2].Probe.Name)
	}
}

func TestAnalyzeResults(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		wantErr bool
	}{
		{
			name: "All Pass",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: true}, Error: nil},
			},
			wantErr: false,
		},
		{
			name: "Critical Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: true}, Error: errors.New("fail")},
			},
			wantErr: true,
		},
		{
			name: "Non-Critical Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: false}, Error: errors.New("fail")},
			},
			wantErr: false,
		},
		{
			name: "Mixed Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: false}, Error: errors.New("fail")},
				{Probe: Probe{Name: "P2", Critical: true}, Error: errors.New("fail")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AnalyzeResults(tt.results)
			if (err != nil) != tt.wantErr {
				t.Errorf("AnalyzeResults() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDatabase(t *testing.T) {
	conn, err := db.Init(filepath.Join(t.TempDir(), "probe.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := Database(conn)(context.Background()); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

type mapCache struct {
	mu      sync.Mutex
	m       map[string][]byte
	corrupt bool
}

func (c *mapCache) GetCache(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	if ok && c.corrupt {
		return []byte("garbage"), true
	}
	return v, ok
}

func (c *mapCache) SetCache(ctx context.Context, key string, val []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = make(map[string][]byte)
	}
	c.m[key] = val
	return nil
}

type dropCache struct{}

func (dropCache) GetCache(ctx context.Context, key string) ([]byte, bool)   { return nil, false }
func (dropCache) SetCache(ctx context.Context, key string, val []byte) error { return nil }

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	if err := CacheRoundTrip(&mapCache{})(ctx); err != nil {
		t.Errorf("healthy cache failed: %v", err)
	}
	if err := CacheRoundTrip(&mapCache{corrupt: true})(ctx); err == nil {
		t.Error("expected corrupted cache to fail")
	}
	if err := CacheRoundTrip(dropCache{})(ctx); err == nil {
		t.Error("expected write-only cache to fail")
	}
}

func TestReadableFile(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "routes.geojson")
	empty := filepath.Join(dir, "empty.geojson")
	if err := os.WriteFile(full, []byte(`{"type":"FeatureCollection","features":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"Present", full, false},
		{"Empty", empty, true},
		{"Missing", filepath.Join(dir, "nope.geojson"), true},
		{"Directory", dir, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ReadableFile(tt.path)(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("ReadableFile(%s) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}
