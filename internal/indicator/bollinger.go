package indicator

import (
	"math"

	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/series"
)

// Bollinger calculates Bollinger Bands: a rolling mean of closes with
// upper/lower bands a configurable number of standard deviations away.
// The canonical value is the middle band.
type Bollinger struct{}

func (Bollinger) Name() string { return "bollinger" }

func (Bollinger) MinPeriods(params model.Params) int {
	return params.Int("period", 20)
}

func (i Bollinger) Calculate(s *series.Series, params model.Params) (*model.IndicatorResult, error) {
	period := params.Int("period", 20)
	numStd := params.Float("num_std", 2.0)
	if err := checkLen(i.Name(), s, period); err != nil {
		return nil, err
	}

	middle := series.RollingMean(s.Closes(), period)
	std := series.RollingStd(s.Closes(), period)

	mid := last(middle)
	sd := last(std)
	upper := mid + numStd*sd
	lower := mid - numStd*sd
	close := last(s.Closes())

	data := map[string]float64{
		"middle": mid,
		"upper":  upper,
		"lower":  lower,
	}
	// Width and %B are undefined for a degenerate band; omit rather than
	// divide by zero.
	if series.Valid(mid) && mid != 0 {
		data["bandwidth"] = (upper - lower) / mid
	}
	if w := upper - lower; series.Valid(w) && w != 0 {
		data["percent_b"] = (close - lower) / w
	}
	return newResult(s, mid, data), nil
}

// ATR calculates the Average True Range with Wilder's smoothing.
// True range folds gaps against the previous close into the bar's range.
type ATR struct{}

func (ATR) Name() string { return "atr" }

// MinPeriods needs period+1 bars so every smoothed range sees a previous close.
func (ATR) MinPeriods(params model.Params) int {
	return params.Int("period", 14) + 1
}

func (i ATR) Calculate(s *series.Series, params model.Params) (*model.IndicatorResult, error) {
	period := params.Int("period", 14)
	if err := checkLen(i.Name(), s, period+1); err != nil {
		return nil, err
	}

	tr := TrueRange(s)
	atr := series.Wilder(tr, period)

	v := last(atr)
	data := map[string]float64{
		"atr":        v,
		"true_range": last(tr),
	}
	if c := last(s.Closes()); c != 0 {
		data["atr_pct"] = v / c * 100.0
	}
	return newResult(s, v, data), nil
}

// TrueRange computes per-bar true range. The first bar has no previous
// close, so its true range is undefined.
func TrueRange(s *series.Series) []float64 {
	highs, lows := s.Highs(), s.Lows()
	prevClose := series.Shift(s.Closes(), 1)

	tr := make([]float64, s.Len())
	for j := range tr {
		if !series.Valid(prevClose[j]) {
			tr[j] = math.NaN()
			continue
		}
		hl := highs[j] - lows[j]
		hc := math.Abs(highs[j] - prevClose[j])
		lc := math.Abs(lows[j] - prevClose[j])
		tr[j] = math.Max(hl, math.Max(hc, lc))
	}
	return tr
}
