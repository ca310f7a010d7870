package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passages/pkg/config"
	"passages/pkg/db"
	"passages/pkg/index"
	"passages/pkg/model"
	"passages/pkg/palette"
	"passages/pkg/store"
)

type fakeSource struct {
	routes    []model.RouteRecord
	meta      []model.Metadata
	routesErr error
	metaErr   error

	routeCalls int32
	metaCalls  int32
}

func (f *fakeSource) Name() string          { return "fake" }
func (f *fakeSource) RoutesTable() string   { return "routes" }
func (f *fakeSource) MetadataTable() string { return "meta" }

func (f *fakeSource) Routes(ctx context.Context) ([]model.RouteRecord, error) {
	atomic.AddInt32(&f.routeCalls, 1)
	return f.routes, f.routesErr
}

func (f *fakeSource) Metadata(ctx context.Context) ([]model.Metadata, error) {
	atomic.AddInt32(&f.metaCalls, 1)
	return f.meta, f.metaErr
}

func records() []model.RouteRecord {
	var out []model.RouteRecord
	for i := 0; i < 3; i++ {
		out = append(out, model.RouteRecord{
			NarrativeID: "1",
			CartoID:     int64(i + 1),
			HasGeometry: true,
			Lat:         float64(i),
			Lon:         float64(i),
			Prior:       "before",
			Expressed:   "Place",
			Post:        "after",
		})
	}
	return out
}

func newLoader(t *testing.T, src Source, runs store.IngestStore) *Loader {
	t.Helper()
	a, err := palette.NewAssigner(palette.StrategySorted, 1)
	require.NoError(t, err)
	opts := index.DefaultOptions()
	opts.Jitter = 0
	return NewLoader(src, opts, a, runs, NewJoin())
}

func TestJoin(t *testing.T) {
	j := NewJoin()
	assert.False(t, j.Ready())
	assert.Equal(t, 0, j.Collection().Len(), "empty collection before routes")

	_, _, ok := j.Joined()
	assert.False(t, ok)

	c := index.Empty()
	assert.True(t, j.CompleteRoutes(c))
	assert.False(t, j.CompleteRoutes(index.Empty()), "second completion ignored")
	assert.True(t, j.RoutesReady())
	assert.False(t, j.Ready(), "metadata still missing")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, j.Wait(ctx), context.DeadlineExceeded)

	assert.True(t, j.CompleteMetadata([]model.Metadata{{NarrativeID: "1"}}))
	assert.True(t, j.Ready())
	require.NoError(t, j.Wait(context.Background()))

	gotC, meta, ok := j.Joined()
	require.True(t, ok)
	assert.Same(t, c, gotC)
	assert.Len(t, meta, 1)
}

func TestJoin_MetadataFirst(t *testing.T) {
	j := NewJoin()
	j.CompleteMetadata(nil)
	assert.True(t, j.MetadataReady())
	assert.False(t, j.Ready(), "cards wait for routes")

	done := make(chan error, 1)
	go func() { done <- j.Wait(context.Background()) }()
	j.CompleteRoutes(index.Empty())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after both events")
	}
}

func TestLoader_Load(t *testing.T) {
	src := &fakeSource{
		routes: records(),
		meta:   []model.Metadata{{NarrativeID: "1", Author: "A", Img: "a.jpg", ShortTitle: "T"}},
	}
	l := newLoader(t, src, nil)

	var built *index.Collection
	l.OnRoutes(func(c *index.Collection) { built = c })

	require.NoError(t, l.Load(context.Background()))
	assert.False(t, l.Pending())
	require.NotNil(t, built)
	assert.Equal(t, 1, built.Len())
	n, ok := built.Get("1")
	require.True(t, ok)
	assert.Equal(t, 3, n.Len())

	// Nothing is refetched once both tables completed.
	require.NoError(t, l.Load(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.routeCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.metaCalls))
}

func TestLoader_PartialFailureRetries(t *testing.T) {
	src := &fakeSource{
		routes:  records(),
		metaErr: errors.New("upstream down"),
	}
	l := newLoader(t, src, nil)

	err := l.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata")
	assert.True(t, l.Join().RoutesReady(), "routes complete despite metadata failure")
	assert.True(t, l.Pending())

	src.metaErr = nil
	require.NoError(t, l.Load(context.Background()))
	assert.False(t, l.Pending())
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.routeCalls), "routes not refetched")
	assert.Equal(t, int32(2), atomic.LoadInt32(&src.metaCalls))
}

func TestLoader_RecordsRuns(t *testing.T) {
	d, err := db.Init(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	defer d.Close()
	st := store.NewSQLiteStore(d)

	src := &fakeSource{routes: records(), metaErr: errors.New("boom")}
	l := newLoader(t, src, st)
	_ = l.Load(context.Background())

	ctx := context.Background()
	run, err := st.LastIngest(ctx, "routes")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 3, run.Records)
	assert.Equal(t, "fake", run.Source)
	assert.Empty(t, run.Err)

	run, err = st.LastIngest(ctx, "meta")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "boom", run.Err)
}

func TestNewSource(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.SourceConfig
		want    string
		wantErr bool
	}{
		{"carto", config.SourceConfig{Kind: "carto", Account: "gravistar", RoutesTable: "r", MetadataTable: "m"}, "carto:gravistar", false},
		{"file", config.SourceConfig{Kind: "file", RoutesFile: "routes.geojson"}, "file:routes.geojson", false},
		{"unknown", config.SourceConfig{Kind: "ftp"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewSource(tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, src.Name())
		})
	}
}
