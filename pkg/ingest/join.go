// Package ingest fetches the route and metadata tables, builds the narrative
// collection and gates metadata-dependent views on both arriving.
package ingest

import (
	"context"
	"sync"

	"passages/pkg/index"
	"passages/pkg/model"
)

// Join tracks the two independent completion events. Each completes once;
// later calls are ignored.
type Join struct {
	mu         sync.RWMutex
	collection *index.Collection
	metadata   []model.Metadata

	routesOnce sync.Once
	metaOnce   sync.Once
	routesDone chan struct{}
	metaDone   chan struct{}
}

// NewJoin creates a join with neither event complete.
func NewJoin() *Join {
	return &Join{
		routesDone: make(chan struct{}),
		metaDone:   make(chan struct{}),
	}
}

// CompleteRoutes publishes the built collection. Returns false if routes were
// already complete.
func (j *Join) CompleteRoutes(c *index.Collection) bool {
	done := false
	j.routesOnce.Do(func() {
		j.mu.Lock()
		j.collection = c
		j.mu.Unlock()
		close(j.routesDone)
		done = true
	})
	return done
}

// CompleteMetadata publishes the metadata rows. Returns false if metadata was
// already complete.
func (j *Join) CompleteMetadata(meta []model.Metadata) bool {
	done := false
	j.metaOnce.Do(func() {
		j.mu.Lock()
		j.metadata = append([]model.Metadata(nil), meta...)
		j.mu.Unlock()
		close(j.metaDone)
		done = true
	})
	return done
}

// RoutesReady reports whether the collection has been built.
func (j *Join) RoutesReady() bool {
	select {
	case <-j.routesDone:
		return true
	default:
		return false
	}
}

// MetadataReady reports whether metadata has arrived.
func (j *Join) MetadataReady() bool {
	select {
	case <-j.metaDone:
		return true
	default:
		return false
	}
}

// Ready reports whether both events completed.
func (j *Join) Ready() bool {
	return j.RoutesReady() && j.MetadataReady()
}

// Collection returns the built collection, or an empty one before routes complete.
func (j *Join) Collection() *index.Collection {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.collection == nil {
		return index.Empty()
	}
	return j.collection
}

// Joined returns the collection and metadata once both are present.
func (j *Join) Joined() (*index.Collection, []model.Metadata, bool) {
	if !j.Ready() {
		return nil, nil, false
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.collection, j.metadata, true
}

// Wait blocks until both events complete or ctx ends.
func (j *Join) Wait(ctx context.Context) error {
	for _, ch := range []<-chan struct{}{j.routesDone, j.metaDone} {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
