package pattern

import (
	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/series"
)

// Breakout detects a close escaping a consolidation range. Detection
// decomposes into two phases over shifted windows: the trailing N bars
// (excluding the current one) must form a tight consolidation — range to
// mean-close ratio below a ceiling — and the current close must exceed the
// consolidation high by a configured strength. A volume surge against the
// consolidation average raises confidence but is not required.
type Breakout struct{}

func (Breakout) Name() string { return "breakout" }

// MinPeriods needs the consolidation window plus the breakout bar itself.
func (Breakout) MinPeriods(params model.Params) int {
	return params.Int("consolidation_period", 20) + 1
}

func (Breakout) Dependencies() []string { return nil }

func (p Breakout) Detect(s *series.Series, params model.Params, _ IndicatorContext) (*DetectionSeries, error) {
	window := params.Int("consolidation_period", 20)
	maxRatio := params.Float("max_range_ratio", 0.05)
	strength := params.Float("breakout_strength", 0.01)
	volumeFactor := params.Float("volume_factor", 1.5)
	if err := checkLen(p.Name(), s, window+1); err != nil {
		return nil, err
	}

	// Consolidation stats over the window ending one bar back.
	consHigh := series.Shift(series.RollingMax(s.Highs(), window), 1)
	consLow := series.Shift(series.RollingMin(s.Lows(), window), 1)
	consMean := series.Shift(series.RollingMean(s.Closes(), window), 1)
	consVolume := series.Shift(series.RollingMean(s.Volumes(), window), 1)

	closes, volumes := s.Closes(), s.Volumes()
	det := newDetections(s.Len())

	for i := 0; i < s.Len(); i++ {
		if !series.Valid(consHigh[i]) || !series.Valid(consMean[i]) || consMean[i] <= 0 {
			continue
		}
		ratio := (consHigh[i] - consLow[i]) / consMean[i]
		if ratio > maxRatio {
			continue // no consolidation, no breakout
		}
		bound := consHigh[i] * (1.0 + strength)
		if closes[i] < bound {
			continue
		}

		det.Detected[i] = true
		conf := 0.6
		// Excess over the required strength, capped at +0.2.
		if excess := closes[i]/consHigh[i] - 1.0 - strength; excess > 0 {
			conf += min2(excess*10.0, 0.2)
		}
		if series.Valid(consVolume[i]) && consVolume[i] > 0 && volumes[i] >= volumeFactor*consVolume[i] {
			conf += 0.15
		}
		det.Confidence[i] = clamp01(conf)
	}
	return det, nil
}
