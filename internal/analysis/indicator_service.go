package analysis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"analysis-enginev1/internal/logger"
	"analysis-enginev1/internal/metrics"
	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/pattern"
	"analysis-enginev1/internal/registry"
	"analysis-enginev1/internal/series"
)

// IndicatorService runs every enabled indicator for one symbol. A single
// indicator's failure is recorded and does not abort its siblings; the
// collected failures surface in the run's outcome.
type IndicatorService struct {
	registry *registry.Registry
	defs     *definitionCache
	prom     *metrics.Metrics
	log      *slog.Logger
}

// NewIndicatorService creates an indicator service.
func NewIndicatorService(reg *registry.Registry, defs *definitionCache, prom *metrics.Metrics, log *slog.Logger) *IndicatorService {
	return &IndicatorService{registry: reg, defs: defs, prom: prom, log: log}
}

// CalculateAll loads the enabled indicator definitions, resolves and runs
// each, writes results through w, and returns the indicator context for
// the pattern phase. The returned error is symbol-level (catalog load
// failure or expired context); component failures are returned alongside.
func (s *IndicatorService) CalculateAll(ctx context.Context, ser *series.Series, w model.ResultWriter, runID string) (pattern.IndicatorContext, []model.ComponentFailure, error) {
	defs, err := s.defs.Indicators(ctx)
	if err != nil {
		return nil, nil, err
	}

	log := s.log
	if rid := logger.RunID(ctx); rid != "" {
		log = log.With(slog.String("run_id", rid))
	}

	results := make(pattern.IndicatorContext, len(defs))
	var failures []model.ComponentFailure

	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		impl, err := s.registry.ResolveIndicator(def)
		if err != nil {
			// Registry failures are never downgraded: log loudly, record,
			// move on to the next component.
			log.Error("indicator unresolved",
				slog.String("indicator", def.Name),
				slog.String("symbol", ser.Symbol()),
				slog.String("error", err.Error()))
			s.prom.IndicatorFailures.WithLabelValues("unresolved_component").Inc()
			failures = append(failures, model.ComponentFailure{
				Component: def.Name, Kind: "indicator", Reason: err.Error(),
			})
			continue
		}

		start := time.Now()
		result, err := impl.Calculate(ser, def.Params)
		s.prom.IndicatorDur.Observe(time.Since(start).Seconds())
		if err != nil {
			log.Warn("indicator failed",
				slog.String("indicator", def.Name),
				slog.String("symbol", ser.Symbol()),
				slog.Int("bars", ser.Len()),
				slog.String("error", err.Error()))
			s.prom.IndicatorFailures.WithLabelValues(failureReason(err)).Inc()
			failures = append(failures, model.ComponentFailure{
				Component: def.Name, Kind: "indicator", Reason: err.Error(),
			})
			continue
		}

		result.Indicator = def.Name
		result.RunID = runID
		if err := w.StoreIndicatorResult(ctx, result); err != nil {
			return nil, nil, err
		}
		results[def.Name] = result
		s.prom.IndicatorsComputed.Inc()
	}

	return results, failures, nil
}

// failureReason maps a component error to a metrics label.
func failureReason(err error) string {
	var insufficient *model.InsufficientDataError
	var missingField *model.MissingFieldError
	var unresolved *model.UnresolvedComponentError
	var missingDep *model.MissingDependencyError
	switch {
	case errors.As(err, &insufficient):
		return "insufficient_data"
	case errors.As(err, &missingField):
		return "missing_field"
	case errors.As(err, &unresolved):
		return "unresolved_component"
	case errors.As(err, &missingDep):
		return "missing_dependency"
	default:
		return "other"
	}
}
