// Package analysis orchestrates the per-symbol pipeline (load bars,
// indicators, patterns, persist) and the parallel per-universe fan-out.
//
// Within one symbol the phases are strictly sequential: every indicator
// completes before any pattern runs, because patterns consume indicator
// output as read-only context. Across symbols there is no ordering
// guarantee — only the bounded worker pool.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"analysis-enginev1/internal/logger"
	"analysis-enginev1/internal/metrics"
	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/registry"
	"analysis-enginev1/internal/series"
	redisstore "analysis-enginev1/internal/store/redis"

	"github.com/google/uuid"
)

// Config holds the externally tunable parameters. Everything else
// (indicator/pattern parameters, thresholds) lives in the definition
// catalog, not in process configuration.
type Config struct {
	Timeframe          string
	LookbackBars       int
	Workers            int           // bounded pool for AnalyzeUniverse
	SymbolTimeout      time.Duration // per-symbol budget
	ConfidenceOverride float64       // negative = honor definition thresholds
	DefinitionCacheTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeframe == "" {
		c.Timeframe = "1day"
	}
	if c.LookbackBars <= 0 {
		c.LookbackBars = 250
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.SymbolTimeout <= 0 {
		c.SymbolTimeout = 30 * time.Second
	}
	if c.DefinitionCacheTTL <= 0 {
		c.DefinitionCacheTTL = time.Minute
	}
	return c
}

// Service is the top-level analysis orchestrator.
type Service struct {
	cfg   Config
	store model.Store
	cache *redisstore.Cache // optional, nil disables

	defs       *definitionCache
	indicators *IndicatorService
	patterns   *PatternService

	prom *metrics.Metrics
	log  *slog.Logger
}

// New wires the analysis service and its two phase services.
func New(cfg Config, store model.Store, cache *redisstore.Cache, reg *registry.Registry, prom *metrics.Metrics, log *slog.Logger) *Service {
	cfg = cfg.withDefaults()
	defs := newDefinitionCache(store, cfg.Timeframe, cfg.DefinitionCacheTTL)
	return &Service{
		cfg:        cfg,
		store:      store,
		cache:      cache,
		defs:       defs,
		indicators: NewIndicatorService(reg, defs, prom, log),
		patterns:   NewPatternService(reg, defs, cfg.ConfidenceOverride, prom, log),
		prom:       prom,
		log:        log,
	}
}

// RefreshDefinitions drops the cached catalog so the next run reloads it.
func (svc *Service) RefreshDefinitions() {
	svc.defs.Invalidate()
}

// AnalyzeSymbol runs the full pipeline for one symbol under the
// per-symbol timeout. The returned outcome is always non-nil; a non-nil
// error means the symbol-level run failed and nothing was persisted.
func (svc *Service) AnalyzeSymbol(ctx context.Context, symbol string) (*model.AnalysisOutcome, error) {
	started := time.Now()
	outcome := &model.AnalysisOutcome{
		Symbol:    symbol,
		RunID:     uuid.NewString(),
		StartedAt: started,
	}

	sctx, cancel := context.WithTimeout(logger.WithRunID(ctx, outcome.RunID), svc.cfg.SymbolTimeout)
	defer cancel()

	fail := func(err error) (*model.AnalysisOutcome, error) {
		outcome.Err = err.Error()
		outcome.Duration = time.Since(started)
		svc.prom.SymbolFailures.Inc()
		if errors.Is(err, context.DeadlineExceeded) {
			svc.prom.SymbolTimeouts.Inc()
		}
		svc.log.Error("symbol analysis failed",
			slog.String("symbol", symbol),
			slog.String("run_id", outcome.RunID),
			slog.String("error", err.Error()))
		return outcome, err
	}

	// ---- Load the bar snapshot ----
	end := time.Now().UTC()
	start := end.Add(-time.Duration(svc.cfg.LookbackBars) * TimeframeDuration(svc.cfg.Timeframe))
	bars, err := svc.store.LoadBars(sctx, symbol, svc.cfg.Timeframe, start, end)
	if err != nil {
		return fail(fmt.Errorf("load bars: %w", err))
	}
	if len(bars) == 0 {
		return fail(fmt.Errorf("load bars: no %s history for %s", svc.cfg.Timeframe, symbol))
	}
	svc.prom.BarsLoaded.Add(float64(len(bars)))
	outcome.Bars = len(bars)

	ser, err := series.New(symbol, svc.cfg.Timeframe, bars)
	if err != nil {
		return fail(fmt.Errorf("build series: %w", err))
	}

	// ---- Indicators, then patterns, staged into the run buffer ----
	buf := newRunBuffer()
	indctx, indFailures, err := svc.indicators.CalculateAll(sctx, ser, buf, outcome.RunID)
	if err != nil {
		return fail(fmt.Errorf("indicator phase: %w", err))
	}
	detections, patFailures, err := svc.patterns.DetectAll(sctx, ser, indctx, buf, outcome.RunID)
	if err != nil {
		return fail(fmt.Errorf("pattern phase: %w", err))
	}

	// ---- Commit: nothing durable happens before this point ----
	flushStart := time.Now()
	if err := buf.Flush(sctx, svc.store); err != nil {
		return fail(fmt.Errorf("flush: %w", err))
	}
	svc.prom.SQLiteFlushDur.Observe(time.Since(flushStart).Seconds())

	// Cache writes run on the parent context: the symbol committed, so a
	// slow cache must not turn the run into a failure.
	svc.cache.WriteRun(ctx, buf.results, buf.detections)

	outcome.Indicators = len(indctx)
	outcome.Detections = detections
	outcome.Failures = append(indFailures, patFailures...)
	outcome.Duration = time.Since(started)
	svc.prom.SymbolAnalysisDur.Observe(outcome.Duration.Seconds())

	svc.log.Info("symbol analysis complete",
		slog.String("symbol", symbol),
		slog.String("run_id", outcome.RunID),
		slog.Int("bars", outcome.Bars),
		slog.Int("indicators", outcome.Indicators),
		slog.Int("detections", outcome.Detections),
		slog.Int("component_failures", len(outcome.Failures)),
		slog.Duration("duration", outcome.Duration))
	return outcome, nil
}

// AnalyzeUniverse fans AnalyzeSymbol out across the bounded worker pool.
// One symbol's failure or timeout never aborts the batch, and the batch
// itself never returns an error — the outcome carries the counts.
func (svc *Service) AnalyzeUniverse(ctx context.Context, symbols []string) *model.BatchOutcome {
	batch := &model.BatchOutcome{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Symbols:   make([]*model.AnalysisOutcome, len(symbols)),
	}
	svc.prom.BatchSize.Set(float64(len(symbols)))

	sem := make(chan struct{}, svc.cfg.Workers)
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome, _ := svc.AnalyzeSymbol(ctx, symbol)
			batch.Symbols[i] = outcome
		}(i, symbol)
	}
	wg.Wait()

	for _, o := range batch.Symbols {
		if o.Succeeded() {
			batch.Succeeded++
		} else {
			batch.Failed++
		}
	}
	batch.Duration = time.Since(batch.StartedAt)
	svc.prom.BatchDur.Observe(batch.Duration.Seconds())

	svc.log.Info("universe analysis complete",
		slog.String("run_id", batch.RunID),
		slog.Int("symbols", len(symbols)),
		slog.Int("succeeded", batch.Succeeded),
		slog.Int("failed", batch.Failed),
		slog.Duration("duration", batch.Duration))
	return batch
}

// TimeframeDuration maps a timeframe label to its bar interval. Unknown
// labels fall back to one day, the widest supported lookback unit.
func TimeframeDuration(tf string) time.Duration {
	switch tf {
	case "1min":
		return time.Minute
	case "5min":
		return 5 * time.Minute
	case "15min":
		return 15 * time.Minute
	case "30min":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1day":
		return 24 * time.Hour
	case "1week":
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
