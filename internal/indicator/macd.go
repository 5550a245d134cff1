package indicator

import (
	"math"

	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/series"
)

// MACD calculates Moving Average Convergence Divergence.
// The canonical value is the MACD line (fast EMA − slow EMA); the signal
// line is an EMA of the MACD line, and histogram = macd − signal exactly.
type MACD struct{}

func (MACD) Name() string { return "macd" }

func (MACD) MinPeriods(params model.Params) int {
	return params.Int("slow_period", 26) + params.Int("signal_period", 9)
}

func (i MACD) Calculate(s *series.Series, params model.Params) (*model.IndicatorResult, error) {
	fast := params.Int("fast_period", 12)
	slow := params.Int("slow_period", 26)
	signalPeriod := params.Int("signal_period", 9)
	if err := checkLen(i.Name(), s, slow+signalPeriod); err != nil {
		return nil, err
	}

	macd, signal, hist := MACDLines(s.Closes(), fast, slow, signalPeriod)
	v := last(macd)
	return newResult(s, v, map[string]float64{
		"macd":      v,
		"signal":    last(signal),
		"histogram": last(hist),
	}), nil
}

// MACDLines computes the three MACD vectors over a close series.
func MACDLines(closes []float64, fast, slow, signalPeriod int) (macd, signal, hist []float64) {
	emaFast := series.EMA(closes, fast)
	emaSlow := series.EMA(closes, slow)

	macd = make([]float64, len(closes))
	for j := range macd {
		if series.Valid(emaFast[j]) && series.Valid(emaSlow[j]) {
			macd[j] = emaFast[j] - emaSlow[j]
		} else {
			macd[j] = math.NaN()
		}
	}

	// The signal EMA seeds from the first full window of defined MACD values.
	signal = series.EMA(macd, signalPeriod)

	hist = make([]float64, len(closes))
	for j := range hist {
		if series.Valid(macd[j]) && series.Valid(signal[j]) {
			hist[j] = macd[j] - signal[j]
		} else {
			hist[j] = math.NaN()
		}
	}
	return macd, signal, hist
}
