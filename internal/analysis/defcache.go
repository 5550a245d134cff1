package analysis

import (
	"context"
	"sync"
	"time"

	"analysis-enginev1/internal/model"
)

// definitionCache holds the component catalog for one timeframe, refreshed
// from storage when older than the TTL. It is owned by the analysis
// service — no module-level shared state — and can be invalidated on
// demand when the catalog is edited.
type definitionCache struct {
	store     model.DefinitionReader
	timeframe string
	ttl       time.Duration

	mu         sync.Mutex
	indicators []model.IndicatorDefinition
	patterns   []model.PatternDefinition
	loadedAt   time.Time
}

func newDefinitionCache(store model.DefinitionReader, timeframe string, ttl time.Duration) *definitionCache {
	return &definitionCache{store: store, timeframe: timeframe, ttl: ttl}
}

// Indicators returns the enabled indicator definitions, reloading the
// whole catalog when stale.
func (c *definitionCache) Indicators(ctx context.Context) ([]model.IndicatorDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return c.indicators, nil
}

// Patterns returns the enabled pattern definitions applicable to the
// cache's timeframe.
func (c *definitionCache) Patterns(ctx context.Context) ([]model.PatternDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return c.patterns, nil
}

// Invalidate forces a reload on the next read.
func (c *definitionCache) Invalidate() {
	c.mu.Lock()
	c.loadedAt = time.Time{}
	c.mu.Unlock()
}

func (c *definitionCache) refreshLocked(ctx context.Context) error {
	if !c.loadedAt.IsZero() && time.Since(c.loadedAt) < c.ttl {
		return nil
	}
	inds, err := c.store.LoadEnabledIndicatorDefinitions(ctx)
	if err != nil {
		return err
	}
	pats, err := c.store.LoadEnabledPatternDefinitions(ctx, c.timeframe)
	if err != nil {
		return err
	}
	c.indicators = inds
	c.patterns = pats
	c.loadedAt = time.Now()
	return nil
}
