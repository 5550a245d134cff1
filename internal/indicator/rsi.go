package indicator

import (
	"math"

	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/series"
)

// RSI calculates the Relative Strength Index using Wilder's smoothing
// (alpha = 1/period, not the EMA alpha). Price deltas are split into gains
// and losses, each smoothed independently.
type RSI struct{}

func (RSI) Name() string { return "rsi" }

// MinPeriods needs period+1 bars: one extra bar to form the first delta.
func (RSI) MinPeriods(params model.Params) int {
	return params.Int("period", 14) + 1
}

func (i RSI) Calculate(s *series.Series, params model.Params) (*model.IndicatorResult, error) {
	period := params.Int("period", 14)
	if err := checkLen(i.Name(), s, period+1); err != nil {
		return nil, err
	}

	deltas := series.Diff(s.Closes())
	gains := make([]float64, len(deltas))
	losses := make([]float64, len(deltas))
	for j, d := range deltas {
		if !series.Valid(d) {
			gains[j] = math.NaN()
			losses[j] = math.NaN()
			continue
		}
		if d > 0 {
			gains[j] = d
		} else {
			losses[j] = -d
		}
	}

	avgGain := series.Wilder(gains, period)
	avgLoss := series.Wilder(losses, period)

	rsi := RSIFromAverages(avgGain, avgLoss)
	v := last(rsi)
	return newResult(s, v, map[string]float64{
		"rsi":      v,
		"avg_gain": last(avgGain),
		"avg_loss": last(avgLoss),
	}), nil
}

// RSIFromAverages converts smoothed gain/loss vectors into RSI values.
// When avg_loss is exactly 0 the RSI is pinned to 100; a zero avg_gain
// with non-zero losses yields 0 through the ordinary formula.
func RSIFromAverages(avgGain, avgLoss []float64) []float64 {
	rsi := make([]float64, len(avgGain))
	for j := range rsi {
		g, l := avgGain[j], avgLoss[j]
		if !series.Valid(g) || !series.Valid(l) {
			rsi[j] = math.NaN()
			continue
		}
		if l == 0 {
			rsi[j] = 100.0
			continue
		}
		rs := g / l
		rsi[j] = 100.0 - 100.0/(1.0+rs)
	}
	return rsi
}
