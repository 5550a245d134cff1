package pattern

import (
	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/series"
)

// Doji detects indecision candles: a body no larger than a tolerance
// fraction of the candle's range. Bars with a degenerate (near-zero)
// range are never detections.
type Doji struct{}

func (Doji) Name() string { return "doji" }

func (Doji) MinPeriods(params model.Params) int { return 1 }

func (Doji) Dependencies() []string { return nil }

func (p Doji) Detect(s *series.Series, params model.Params, _ IndicatorContext) (*DetectionSeries, error) {
	tolerance := params.Float("body_tolerance", 0.1)
	if err := checkLen(p.Name(), s, 1); err != nil {
		return nil, err
	}

	body := bodies(s)
	rng := ranges(s)
	det := newDetections(s.Len())

	for i := 0; i < s.Len(); i++ {
		if rng[i] < minValidRange {
			continue
		}
		limit := tolerance * rng[i]
		if body[i] > limit {
			continue
		}
		det.Detected[i] = true
		// Thinner bodies score higher: a perfect doji (zero body) hits 1.0.
		det.Confidence[i] = clamp01(0.5 + 0.5*(1.0-body[i]/limit))
	}
	return det, nil
}

// Hammer detects a bullish rejection candle: a small body near the top of
// the range with a lower wick at least twice the body.
type Hammer struct{}

func (Hammer) Name() string { return "hammer" }

func (Hammer) MinPeriods(params model.Params) int { return 1 }

func (Hammer) Dependencies() []string { return nil }

func (p Hammer) Detect(s *series.Series, params model.Params, _ IndicatorContext) (*DetectionSeries, error) {
	wickRatio := params.Float("wick_ratio", 2.0)
	if err := checkLen(p.Name(), s, 1); err != nil {
		return nil, err
	}

	opens, highs, lows, closes := s.Opens(), s.Highs(), s.Lows(), s.Closes()
	body := bodies(s)
	rng := ranges(s)
	det := newDetections(s.Len())

	for i := 0; i < s.Len(); i++ {
		if rng[i] < minValidRange {
			continue
		}
		top := max2(opens[i], closes[i])
		bottom := min2(opens[i], closes[i])
		upperWick := highs[i] - top
		lowerWick := bottom - lows[i]

		smallBody := body[i] < 0.3*rng[i]
		longLowerWick := lowerWick >= wickRatio*body[i] && lowerWick > 0.5*rng[i]
		minimalUpperWick := upperWick < 0.2*rng[i]
		if !(smallBody && longLowerWick && minimalUpperWick) {
			continue
		}
		det.Detected[i] = true
		conf := 0.55
		if body[i] > 0 && lowerWick/body[i] >= 2*wickRatio {
			conf += 0.15
		}
		if closes[i] > opens[i] {
			conf += 0.1 // bullish close strengthens the rejection
		}
		det.Confidence[i] = clamp01(conf)
	}
	return det, nil
}

// ShootingStar detects the bearish mirror of a hammer: a small body near
// the bottom of the range with a long upper wick.
type ShootingStar struct{}

func (ShootingStar) Name() string { return "shooting_star" }

func (ShootingStar) MinPeriods(params model.Params) int { return 1 }

func (ShootingStar) Dependencies() []string { return nil }

func (p ShootingStar) Detect(s *series.Series, params model.Params, _ IndicatorContext) (*DetectionSeries, error) {
	wickRatio := params.Float("wick_ratio", 2.0)
	if err := checkLen(p.Name(), s, 1); err != nil {
		return nil, err
	}

	opens, highs, lows, closes := s.Opens(), s.Highs(), s.Lows(), s.Closes()
	body := bodies(s)
	rng := ranges(s)
	det := newDetections(s.Len())

	for i := 0; i < s.Len(); i++ {
		if rng[i] < minValidRange {
			continue
		}
		top := max2(opens[i], closes[i])
		bottom := min2(opens[i], closes[i])
		upperWick := highs[i] - top
		lowerWick := bottom - lows[i]

		smallBody := body[i] < 0.3*rng[i]
		longUpperWick := upperWick >= wickRatio*body[i] && upperWick > 0.5*rng[i]
		minimalLowerWick := lowerWick < 0.2*rng[i]
		if !(smallBody && longUpperWick && minimalLowerWick) {
			continue
		}
		det.Detected[i] = true
		conf := 0.55
		if body[i] > 0 && upperWick/body[i] >= 2*wickRatio {
			conf += 0.15
		}
		if closes[i] < opens[i] {
			conf += 0.1 // bearish close strengthens the rejection
		}
		det.Confidence[i] = clamp01(conf)
	}
	return det, nil
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
