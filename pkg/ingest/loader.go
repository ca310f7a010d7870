package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"passages/pkg/carto"
	"passages/pkg/config"
	"passages/pkg/index"
	"passages/pkg/metrics"
	"passages/pkg/model"
	"passages/pkg/palette"
	"passages/pkg/request"
	"passages/pkg/store"
)

// Source yields the raw route and metadata rows.
type Source interface {
	Name() string
	RoutesTable() string
	MetadataTable() string
	Routes(ctx context.Context) ([]model.RouteRecord, error)
	Metadata(ctx context.Context) ([]model.Metadata, error)
}

// NewSource builds the configured source.
func NewSource(cfg config.SourceConfig, rc *request.Client) (Source, error) {
	switch cfg.Kind {
	case "carto":
		return carto.NewSource(carto.NewClient(rc, cfg.Account), cfg.RoutesTable, cfg.MetadataTable), nil
	case "file":
		return &carto.FileSource{RoutesPath: cfg.RoutesFile, MetadataPath: cfg.MetadataFile}, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// Loader fetches both tables concurrently and completes the join. Tables that
// already completed are not fetched again.
type Loader struct {
	src      Source
	opts     index.Options
	assigner *palette.Assigner
	runs     store.IngestStore
	join     *Join

	mu       sync.Mutex // Serialises Load
	onRoutes func(*index.Collection)
}

// NewLoader creates a loader. runs may be nil.
func NewLoader(src Source, opts index.Options, a *palette.Assigner, runs store.IngestStore, j *Join) *Loader {
	return &Loader{src: src, opts: opts, assigner: a, runs: runs, join: j}
}

// OnRoutes registers a callback run once the collection is built.
func (l *Loader) OnRoutes(fn func(*index.Collection)) {
	l.onRoutes = fn
}

// Source returns the configured source.
func (l *Loader) Source() Source {
	return l.src
}

// Join returns the join the loader completes.
func (l *Loader) Join() *Join {
	return l.join
}

// Pending reports whether a table is still missing.
func (l *Loader) Pending() bool {
	return !l.join.Ready()
}

// Load fetches the missing tables. A failed table is logged, recorded and
// returned; the other table still completes.
func (l *Loader) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		wg                 sync.WaitGroup
		routesErr, metaErr error
	)
	if !l.join.RoutesReady() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			routesErr = l.loadRoutes(ctx)
		}()
	}
	if !l.join.MetadataReady() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metaErr = l.loadMetadata(ctx)
		}()
	}
	wg.Wait()

	switch {
	case routesErr != nil && metaErr != nil:
		return fmt.Errorf("routes: %w; metadata: %v", routesErr, metaErr)
	case routesErr != nil:
		return fmt.Errorf("routes: %w", routesErr)
	case metaErr != nil:
		return fmt.Errorf("metadata: %w", metaErr)
	}
	return nil
}

func (l *Loader) loadRoutes(ctx context.Context) error {
	table := l.src.RoutesTable()
	start := time.Now()
	recs, err := l.src.Routes(ctx)
	metrics.IngestDurationMs.WithLabelValues("routes").Observe(float64(time.Since(start).Milliseconds()))
	l.record(ctx, table, len(recs), err)
	if err != nil {
		metrics.IngestFailuresTotal.WithLabelValues("routes").Inc()
		slog.Error("Ingest: routes fetch failed", "source", l.src.Name(), "table", table, "error", err)
		return err
	}

	c := index.Build(recs, l.opts, l.assigner)
	metrics.SetNarratives(c.IncludedCount(), c.Len()-c.IncludedCount())
	slog.Info("Ingest: collection built",
		"records", len(recs),
		"narratives", c.Len(),
		"included", c.IncludedCount(),
		"order", l.assigner.Strategy())

	if l.join.CompleteRoutes(c) && l.onRoutes != nil {
		l.onRoutes(c)
	}
	return nil
}

func (l *Loader) loadMetadata(ctx context.Context) error {
	table := l.src.MetadataTable()
	start := time.Now()
	meta, err := l.src.Metadata(ctx)
	metrics.IngestDurationMs.WithLabelValues("metadata").Observe(float64(time.Since(start).Milliseconds()))
	l.record(ctx, table, len(meta), err)
	if err != nil {
		metrics.IngestFailuresTotal.WithLabelValues("metadata").Inc()
		slog.Error("Ingest: metadata fetch failed", "source", l.src.Name(), "table", table, "error", err)
		return err
	}
	slog.Info("Ingest: metadata loaded", "rows", len(meta))
	l.join.CompleteMetadata(meta)
	return nil
}

func (l *Loader) record(ctx context.Context, table string, n int, err error) {
	if l.runs == nil {
		return
	}
	run := store.IngestRun{Table: table, Source: l.src.Name(), Records: n}
	if err != nil {
		run.Err = err.Error()
	}
	if rerr := l.runs.RecordIngest(ctx, run); rerr != nil {
		slog.Warn("Ingest: failed to record run", "table", table, "error", rerr)
	}
}
