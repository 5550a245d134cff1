// Package indicator provides technical indicator calculations over bar series.
//
// All indicators implement the Indicator interface: a pure, stateless, batch
// transform of a read-only series into one result. Each result carries a
// single canonical value plus a map of every computed sub-value. Indicators
// never compute on insufficient data — they refuse instead.
package indicator

import (
	"math"

	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/series"
)

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the implementation name (e.g. "rsi", "macd").
	Name() string

	// MinPeriods returns the minimum series length required for the
	// given parameters.
	MinPeriods(params model.Params) int

	// Calculate computes the indicator over the whole series. It must not
	// mutate the series, and returns InsufficientDataError when the series
	// is shorter than MinPeriods.
	Calculate(s *series.Series, params model.Params) (*model.IndicatorResult, error)
}

// checkLen refuses series shorter than the component's declared minimum.
func checkLen(name string, s *series.Series, need int) error {
	if s.Len() < need {
		return &model.InsufficientDataError{Component: name, Need: need, Got: s.Len()}
	}
	return nil
}

// newResult builds a result for the series' final bar. The primary value
// becomes nil unless finite; non-finite sub-values are dropped rather than
// coerced to zero.
func newResult(s *series.Series, primary float64, data map[string]float64) *model.IndicatorResult {
	r := &model.IndicatorResult{
		Symbol:       s.Symbol(),
		Timeframe:    s.Timeframe(),
		CalculatedAt: s.LastTS(),
		ValueData:    make(map[string]float64, len(data)),
	}
	if series.Valid(primary) {
		v := primary
		r.Value = &v
	}
	for k, v := range data {
		if series.Valid(v) {
			r.ValueData[k] = v
		}
	}
	return r
}

// last returns the final element of a vector, or NaN for an empty one.
func last(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return vals[len(vals)-1]
}
