package indicator

import (
	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/series"
)

// SMA calculates the Simple Moving Average of closes over a rolling window.
// Only full windows are valid — the first (period-1) bars have no value.
type SMA struct{}

func (SMA) Name() string { return "sma" }

func (SMA) MinPeriods(params model.Params) int {
	return params.Int("period", 20)
}

func (i SMA) Calculate(s *series.Series, params model.Params) (*model.IndicatorResult, error) {
	period := params.Int("period", 20)
	if err := checkLen(i.Name(), s, period); err != nil {
		return nil, err
	}

	sma := series.RollingMean(s.Closes(), period)
	v := last(sma)
	return newResult(s, v, map[string]float64{
		"sma":   v,
		"close": last(s.Closes()),
	}), nil
}

// EMA calculates the Exponential Moving Average of closes with the
// unadjusted recursion alpha = 2/(span+1), seeded from the first full
// simple average.
type EMA struct{}

func (EMA) Name() string { return "ema" }

func (EMA) MinPeriods(params model.Params) int {
	return params.Int("period", 20)
}

func (i EMA) Calculate(s *series.Series, params model.Params) (*model.IndicatorResult, error) {
	period := params.Int("period", 20)
	if err := checkLen(i.Name(), s, period); err != nil {
		return nil, err
	}

	ema := series.EMA(s.Closes(), period)
	v := last(ema)
	return newResult(s, v, map[string]float64{
		"ema":   v,
		"close": last(s.Closes()),
	}), nil
}
