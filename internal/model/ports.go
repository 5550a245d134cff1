package model

import (
	"context"
	"time"
)

// ── Storage Port Interfaces ──
// These interfaces decouple the engine from concrete storage implementations
// (SQLite, Redis). Each implementation satisfies one or more of these interfaces.

// BarReader loads bar series for analysis.
type BarReader interface {
	// LoadBars reads bars for a symbol and timeframe within [start, end),
	// ordered by timestamp ascending.
	LoadBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]Bar, error)
}

// DefinitionReader loads the component catalog.
type DefinitionReader interface {
	// LoadEnabledIndicatorDefinitions returns all enabled indicator rows.
	LoadEnabledIndicatorDefinitions(ctx context.Context) ([]IndicatorDefinition, error)

	// LoadEnabledPatternDefinitions returns enabled pattern rows applicable
	// to the given timeframe.
	LoadEnabledPatternDefinitions(ctx context.Context, timeframe string) ([]PatternDefinition, error)
}

// ResultWriter persists calculation output. Both operations are single-row
// appends keyed by (symbol, component, timestamp); the engine assumes they
// are durable once they return nil.
type ResultWriter interface {
	StoreIndicatorResult(ctx context.Context, r *IndicatorResult) error
	StorePatternDetection(ctx context.Context, d *PatternDetection) error
}

// Store combines everything the analysis service needs from storage.
type Store interface {
	BarReader
	DefinitionReader
	ResultWriter

	// Close releases underlying resources.
	Close() error
}
