package indicator

import (
	"math"

	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/series"
)

// Stochastic calculates the stochastic oscillator %K and its %D smoothing.
// The canonical value is %K.
type Stochastic struct{}

func (Stochastic) Name() string { return "stochastic" }

func (Stochastic) MinPeriods(params model.Params) int {
	return params.Int("k_period", 14) + params.Int("d_period", 3) - 1
}

func (i Stochastic) Calculate(s *series.Series, params model.Params) (*model.IndicatorResult, error) {
	kPeriod := params.Int("k_period", 14)
	dPeriod := params.Int("d_period", 3)
	if err := checkLen(i.Name(), s, kPeriod+dPeriod-1); err != nil {
		return nil, err
	}

	lowest := series.RollingMin(s.Lows(), kPeriod)
	highest := series.RollingMax(s.Highs(), kPeriod)
	closes := s.Closes()

	k := make([]float64, s.Len())
	for j := range k {
		if !series.Valid(lowest[j]) || !series.Valid(highest[j]) {
			k[j] = math.NaN()
			continue
		}
		span := highest[j] - lowest[j]
		if span == 0 {
			// Flat window: price sits at neither extreme, report neutral.
			k[j] = 50.0
			continue
		}
		k[j] = 100.0 * (closes[j] - lowest[j]) / span
	}

	d := series.RollingMean(k, dPeriod)

	kv := last(k)
	return newResult(s, kv, map[string]float64{
		"k": kv,
		"d": last(d),
	}), nil
}

// OBV calculates On-Balance Volume: a running volume total signed by the
// direction of each close-to-close move.
type OBV struct{}

func (OBV) Name() string { return "obv" }

func (OBV) MinPeriods(params model.Params) int { return 2 }

func (i OBV) Calculate(s *series.Series, params model.Params) (*model.IndicatorResult, error) {
	if err := checkLen(i.Name(), s, 2); err != nil {
		return nil, err
	}

	closes, volumes := s.Closes(), s.Volumes()
	obv := make([]float64, s.Len())
	for j := 1; j < s.Len(); j++ {
		switch {
		case closes[j] > closes[j-1]:
			obv[j] = obv[j-1] + volumes[j]
		case closes[j] < closes[j-1]:
			obv[j] = obv[j-1] - volumes[j]
		default:
			obv[j] = obv[j-1]
		}
	}

	v := last(obv)
	data := map[string]float64{
		"obv":    v,
		"change": v - obv[len(obv)-2],
	}
	// Trend context when enough history exists for the smoothing window.
	maPeriod := params.Int("ma_period", 20)
	if s.Len() >= maPeriod {
		data["obv_ma"] = last(series.RollingMean(obv, maPeriod))
	}
	return newResult(s, v, data), nil
}
