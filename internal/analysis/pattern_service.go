package analysis

import (
	"context"
	"log/slog"

	"analysis-enginev1/internal/logger"
	"analysis-enginev1/internal/metrics"
	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/pattern"
	"analysis-enginev1/internal/registry"
	"analysis-enginev1/internal/series"
)

// PatternService runs every enabled pattern applicable to the run's
// timeframe, consuming the indicator context produced by the indicator
// phase. Detections below a pattern's confidence threshold are filtered
// before they ever reach the writer.
type PatternService struct {
	registry *registry.Registry
	defs     *definitionCache
	prom     *metrics.Metrics
	log      *slog.Logger

	// confidenceOverride replaces every definition's threshold when >= 0.
	confidenceOverride float64
}

// NewPatternService creates a pattern service. Pass a negative override
// to honor each definition's own confidence threshold.
func NewPatternService(reg *registry.Registry, defs *definitionCache, confidenceOverride float64, prom *metrics.Metrics, log *slog.Logger) *PatternService {
	return &PatternService{
		registry:           reg,
		defs:               defs,
		confidenceOverride: confidenceOverride,
		prom:               prom,
		log:                log,
	}
}

// DetectAll resolves and runs each applicable pattern, writing qualifying
// detections through w. Returns the number of detections written and the
// per-component failures; the error is symbol-level only.
func (s *PatternService) DetectAll(ctx context.Context, ser *series.Series, indctx pattern.IndicatorContext, w model.ResultWriter, runID string) (int, []model.ComponentFailure, error) {
	defs, err := s.defs.Patterns(ctx)
	if err != nil {
		return 0, nil, err
	}

	log := s.log
	if rid := logger.RunID(ctx); rid != "" {
		log = log.With(slog.String("run_id", rid))
	}

	persisted := 0
	var failures []model.ComponentFailure

	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}

		impl, err := s.registry.ResolvePattern(def)
		if err != nil {
			log.Error("pattern unresolved",
				slog.String("pattern", def.Name),
				slog.String("symbol", ser.Symbol()),
				slog.String("error", err.Error()))
			s.prom.PatternFailures.WithLabelValues("unresolved_component").Inc()
			failures = append(failures, model.ComponentFailure{
				Component: def.Name, Kind: "pattern", Reason: err.Error(),
			})
			continue
		}

		det, err := impl.Detect(ser, def.Params, indctx)
		if err != nil {
			log.Warn("pattern failed",
				slog.String("pattern", def.Name),
				slog.String("symbol", ser.Symbol()),
				slog.Int("bars", ser.Len()),
				slog.String("error", err.Error()))
			s.prom.PatternFailures.WithLabelValues(failureReason(err)).Inc()
			failures = append(failures, model.ComponentFailure{
				Component: def.Name, Kind: "pattern", Reason: err.Error(),
			})
			continue
		}
		s.prom.PatternsEvaluated.Inc()

		threshold := def.ConfidenceThreshold
		if s.confidenceOverride >= 0 {
			threshold = s.confidenceOverride
		}

		for i, fired := range det.Detected {
			if !fired {
				continue
			}
			if det.Confidence[i] < threshold {
				s.prom.DetectionsFiltered.Inc()
				continue
			}
			bar := ser.Bar(i)
			row := &model.PatternDetection{
				Symbol:     ser.Symbol(),
				Pattern:    def.Name,
				Timeframe:  ser.Timeframe(),
				DetectedAt: bar.TS,
				Confidence: det.Confidence[i],
				Price:      bar.Close,
				Volume:     bar.Volume,
				Detail: map[string]float64{
					"threshold": threshold,
				},
				RunID: runID,
			}
			if err := w.StorePatternDetection(ctx, row); err != nil {
				return 0, nil, err
			}
			s.prom.DetectionsPersisted.WithLabelValues(def.Name).Inc()
			persisted++
		}
	}

	return persisted, failures, nil
}
