// Package pattern provides chart pattern detection over bar series.
//
// All patterns implement the Pattern interface: a pure, stateless, batch
// transform producing one boolean-per-bar detection series plus a
// confidence score for each detected bar. Detection is vectorized over the
// whole series; "previous bar" access goes through series.Shift, never
// manual off-by-one indexing.
package pattern

import (
	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/series"
)

// IndicatorContext carries already-computed indicator results, keyed by
// definition name. Patterns read it; they never write it.
type IndicatorContext map[string]*model.IndicatorResult

// DetectionSeries is a per-bar boolean detection result. Both slices are
// always exactly as long as the input series; Confidence is 0 wherever
// Detected is false.
type DetectionSeries struct {
	Detected   []bool
	Confidence []float64
}

// Count returns the number of detected bars.
func (d *DetectionSeries) Count() int {
	n := 0
	for _, v := range d.Detected {
		if v {
			n++
		}
	}
	return n
}

// Pattern is the interface for all chart patterns.
type Pattern interface {
	// Name returns the implementation name (e.g. "doji").
	Name() string

	// MinPeriods returns the minimum series length required for the
	// given parameters.
	MinPeriods(params model.Params) int

	// Dependencies returns the definition names of indicators this
	// pattern requires in its context. Empty for self-contained patterns.
	Dependencies() []string

	// Detect runs detection over the whole series. It must not mutate the
	// series or the context, and fails with MissingDependencyError when a
	// required indicator result is absent.
	Detect(s *series.Series, params model.Params, ctx IndicatorContext) (*DetectionSeries, error)
}

// minValidRange is the floor below which a candle's high-low range is
// treated as degenerate: body/range ratios are undefined there, so such
// bars can never be detections.
const minValidRange = 1e-9

// newDetections allocates an all-false detection series of length n.
func newDetections(n int) *DetectionSeries {
	return &DetectionSeries{
		Detected:   make([]bool, n),
		Confidence: make([]float64, n),
	}
}

// checkLen refuses series shorter than the pattern's declared minimum.
func checkLen(name string, s *series.Series, need int) error {
	if s.Len() < need {
		return &model.InsufficientDataError{Component: name, Need: need, Got: s.Len()}
	}
	return nil
}

// bodies returns per-bar |close-open|.
func bodies(s *series.Series) []float64 {
	opens, closes := s.Opens(), s.Closes()
	out := make([]float64, s.Len())
	for i := range out {
		b := closes[i] - opens[i]
		if b < 0 {
			b = -b
		}
		out[i] = b
	}
	return out
}

// ranges returns per-bar high-low.
func ranges(s *series.Series) []float64 {
	highs, lows := s.Highs(), s.Lows()
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = highs[i] - lows[i]
	}
	return out
}

// clamp01 bounds a confidence score to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
