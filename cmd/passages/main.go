package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"passages/internal/api"
	"passages/pkg/animation"
	"passages/pkg/cache"
	"passages/pkg/config"
	"passages/pkg/core"
	"passages/pkg/db"
	"passages/pkg/geo"
	"passages/pkg/index"
	"passages/pkg/ingest"
	"passages/pkg/logging"
	"passages/pkg/metrics"
	"passages/pkg/palette"
	"passages/pkg/present"
	"passages/pkg/probe"
	"passages/pkg/request"
	"passages/pkg/store"
	"passages/pkg/tracker"
	"passages/pkg/version"
)

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", "configs/passages.yaml", "Path to the config file")
	envFile    = flag.String("env", ".env", "Optional environment file")
)

func main() {
	flag.Parse()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	// Environment overrides (PASSAGES_*) may come from a .env file
	_ = godotenv.Load(*envFile)

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("Passages Started", "version", version.Version)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	// Upstream access
	tr := tracker.New()
	tr.SetHook(metrics.Upstream)
	respCache, closeCache, err := cache.Open(ctx, &appCfg.Cache, st)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer func() { _ = closeCache() }()
	reqClient := request.New(respCache, tr, appCfg.Request)

	if err := probe.AnalyzeResults(probe.Run(ctx, startupProbes(appCfg, dbConn, respCache))); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	// Engine
	cfgProv := config.NewProvider(appCfg, st)
	opts, err := engineOptions(ctx, appCfg, cfgProv)
	if err != nil {
		return err
	}
	hub := present.NewHub(appCfg.Server.StreamBuffer)
	hub.OnDrop(metrics.EffectsDroppedTotal.Inc)

	loop := core.NewLoop(256)
	engine := core.NewEngine(loop, animation.RealClock(), hub, opts)
	go loop.Run(ctx)

	// Ingestion
	loader, err := initLoader(appCfg, reqClient, st)
	if err != nil {
		return err
	}
	loader.OnRoutes(func(c *index.Collection) {
		loop.Post(func() { engine.SetCollection(c) })
	})
	go func() {
		if err := loader.Load(ctx); err != nil {
			slog.Error("Initial ingest incomplete, serving an empty collection until retry", "error", err)
		}
	}()

	// Background jobs
	hb := core.NewHeartbeat(1 * time.Second)
	hb.AddJob(core.NewTimeJob("IngestRetry", time.Duration(appCfg.Source.RetryInterval), func(c context.Context) {
		if err := loader.Load(c); err != nil {
			slog.Warn("Ingest retry failed", "error", err)
		}
	}).When(loader.Pending))
	if appCfg.Cache.Backend == "sqlite" {
		hb.AddJob(core.NewCachePruneJob(dbConn, time.Duration(appCfg.Cache.TTL), time.Duration(appCfg.Cache.PruneInterval)))
	}
	go hb.Start(ctx)

	// HTTP
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	join := loader.Join()
	src := loader.Source()
	srv := api.NewServer(appCfg.Server.Address,
		api.NewNarrativeHandler(join),
		api.NewSelectionHandler(engine),
		api.NewStreamHandler(hub),
		api.NewStatsHandler(tr, join, hub, st, src.RoutesTable(), src.MetadataTable()),
		api.NewConfigHandler(cfgProv, engine),
		func() { quit <- syscall.SIGTERM },
	)
	srv.Handler = api.LoggingMiddleware(srv.Handler)
	return runServerLifecycle(ctx, srv, quit, time.Duration(appCfg.Server.ShutdownTimeout))
}

func initDB(appCfg *config.Config) (*db.DB, store.Store, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

func startupProbes(appCfg *config.Config, dbConn *db.DB, respCache cache.Cacher) []probe.Probe {
	probes := []probe.Probe{
		{Name: "Database", Check: probe.Database(dbConn), Critical: true},
	}
	if appCfg.Cache.Backend != "none" {
		probes = append(probes, probe.Probe{
			Name:  "Response Cache",
			Check: probe.CacheRoundTrip(respCache),
		})
	}
	if appCfg.Source.Kind == "file" {
		probes = append(probes, probe.Probe{
			Name:     "Routes File",
			Check:    probe.ReadableFile(appCfg.Source.RoutesFile),
			Critical: true,
		})
		if appCfg.Source.MetadataFile != "" {
			probes = append(probes, probe.Probe{
				Name:  "Metadata File",
				Check: probe.ReadableFile(appCfg.Source.MetadataFile),
			})
		}
	}
	return probes
}

func initLoader(appCfg *config.Config, rc *request.Client, runs store.IngestStore) (*ingest.Loader, error) {
	src, err := ingest.NewSource(appCfg.Source, rc)
	if err != nil {
		return nil, fmt.Errorf("failed to configure source: %w", err)
	}
	assigner, err := palette.NewAssigner(palette.Strategy(appCfg.Palette.Order), appCfg.Palette.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to configure palette: %w", err)
	}
	opts := index.Options{
		Jitter:    appCfg.Index.Jitter,
		Seed:      appCfg.Index.Seed,
		Threshold: appCfg.Index.Threshold,
	}
	slog.Info("Source configured", "source", src.Name(), "palette", assigner.Strategy())
	return ingest.NewLoader(src, opts, assigner, runs, ingest.NewJoin()), nil
}

// engineOptions applies stored runtime overrides on top of the config file.
func engineOptions(ctx context.Context, appCfg *config.Config, prov config.Provider) (core.Options, error) {
	opts, err := core.OptionsFromConfig(appCfg.Animation, appCfg.Distance)
	if err != nil {
		return core.Options{}, fmt.Errorf("invalid engine settings: %w", err)
	}
	if unit, err := geo.ParseUnit(prov.Units(ctx)); err == nil {
		opts.Unit = unit
	}
	opts.FlyZoom = prov.FlyZoom(ctx)
	return opts, nil
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal, timeout time.Duration) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
