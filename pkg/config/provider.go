package config

import (
	"context"
	"fmt"
	"strconv"

	"passages/pkg/store"
)

// Provider gives access to settings that may be overridden at runtime.
type Provider interface {
	Units(ctx context.Context) string
	FlyZoom(ctx context.Context) int
	SetUnits(ctx context.Context, unit string) error
	SetFlyZoom(ctx context.Context, zoom int) error

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

// Units returns the distance unit, preferring a stored override.
func (p *UnifiedProvider) Units(ctx context.Context) string {
	u := p.getString(ctx, KeyUnits, p.base.Distance.Unit)
	if !isValidUnit(u) {
		return p.base.Distance.Unit
	}
	return u
}

// FlyZoom returns the camera zoom used when flying to a waypoint.
func (p *UnifiedProvider) FlyZoom(ctx context.Context) int {
	return p.getInt(ctx, KeyFlyZoom, p.base.Animation.FlyZoom)
}

// SetUnits stores a unit override.
func (p *UnifiedProvider) SetUnits(ctx context.Context, unit string) error {
	if !isValidUnit(unit) {
		return fmt.Errorf("invalid unit '%s'", unit)
	}
	return p.setState(ctx, KeyUnits, unit)
}

// SetFlyZoom stores a zoom override.
func (p *UnifiedProvider) SetFlyZoom(ctx context.Context, zoom int) error {
	if zoom < 1 || zoom > 18 {
		return fmt.Errorf("invalid zoom %d: must be within [1, 18]", zoom)
	}
	return p.setState(ctx, KeyFlyZoom, strconv.Itoa(zoom))
}

// --- Helpers ---

func (p *UnifiedProvider) setState(ctx context.Context, key, val string) error {
	if p.store == nil {
		return fmt.Errorf("no state store configured")
	}
	return p.store.SetState(ctx, key, val)
}

func (p *UnifiedProvider) getString(ctx context.Context, key, fallback string) string {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val
		}
	}
	return fallback
}

func (p *UnifiedProvider) getInt(ctx context.Context, key string, fallback int) int {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if i, err := strconv.Atoi(val); err == nil {
				return i
			}
		}
	}
	return fallback
}
