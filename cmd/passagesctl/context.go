package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"passages/pkg/config"
	"passages/pkg/index"
	"passages/pkg/ingest"
	"passages/pkg/model"
	"passages/pkg/palette"
	"passages/pkg/request"
)

type rootFlags struct {
	configPath   string
	envFile      string
	routesFile   string
	metadataFile string
	json         bool
}

type commandContext struct {
	flags *rootFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *rootFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.flags.configPath))
		if err != nil {
			c.configErr = err
			return
		}
		if c.flags.routesFile != "" {
			cfg.Source.Kind = "file"
			cfg.Source.RoutesFile = c.flags.routesFile
			cfg.Source.MetadataFile = c.flags.metadataFile
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// load fetches the collection and, when available, its metadata. A missing
// metadata table is not fatal for the CLI.
func (c *commandContext) load(ctx context.Context) (*index.Collection, []model.Metadata, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	src, err := ingest.NewSource(cfg.Source, request.New(nil, nil, cfg.Request))
	if err != nil {
		return nil, nil, err
	}
	assigner, err := palette.NewAssigner(palette.Strategy(cfg.Palette.Order), cfg.Palette.Seed)
	if err != nil {
		return nil, nil, err
	}
	opts := index.Options{Jitter: cfg.Index.Jitter, Seed: cfg.Index.Seed, Threshold: cfg.Index.Threshold}

	loader := ingest.NewLoader(src, opts, assigner, nil, ingest.NewJoin())
	loadErr := loader.Load(ctx)

	join := loader.Join()
	if !join.RoutesReady() {
		return nil, nil, fmt.Errorf("load %s: %w", src.Name(), loadErr)
	}
	_, meta, _ := join.Joined()
	return join.Collection(), meta, nil
}

func metadataByID(meta []model.Metadata) map[string]*model.Metadata {
	out := make(map[string]*model.Metadata, len(meta))
	for i := range meta {
		out[meta[i].NarrativeID] = &meta[i]
	}
	return out
}
