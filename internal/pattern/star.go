package pattern

import (
	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/series"
)

// MorningStar detects the three-bar bullish reversal: a long bearish bar,
// a small-bodied pause, then a bullish bar closing above the midpoint of
// the first bar's body. The first two bars of a series never detect.
type MorningStar struct{}

func (MorningStar) Name() string { return "morning_star" }

func (MorningStar) MinPeriods(params model.Params) int { return 3 }

func (MorningStar) Dependencies() []string { return nil }

func (p MorningStar) Detect(s *series.Series, params model.Params, _ IndicatorContext) (*DetectionSeries, error) {
	if err := checkLen(p.Name(), s, 3); err != nil {
		return nil, err
	}

	opens, closes := s.Opens(), s.Closes()
	body := bodies(s)
	rng := ranges(s)

	open2 := series.Shift(opens, 2) // first bar of the triple
	close2 := series.Shift(closes, 2)
	body2 := series.Shift(body, 2)
	rng2 := series.Shift(rng, 2)
	body1 := series.Shift(body, 1) // middle bar

	det := newDetections(s.Len())
	for i := 0; i < s.Len(); i++ {
		if !series.Valid(open2[i]) {
			continue
		}
		if rng2[i] < minValidRange || rng[i] < minValidRange {
			continue
		}
		firstBearish := close2[i] < open2[i] && body2[i] > 0.5*rng2[i]
		middleSmall := body1[i] < 0.5*body2[i]
		midpoint := (open2[i] + close2[i]) / 2.0
		thirdBullish := closes[i] > opens[i] && closes[i] > midpoint
		if !(firstBearish && middleSmall && thirdBullish) {
			continue
		}

		det.Detected[i] = true
		conf := 0.65
		if closes[i] > open2[i] {
			conf += 0.15 // third bar recovers the whole first body
		}
		if body1[i] < 0.2*body2[i] {
			conf += 0.1 // clearer indecision in the middle
		}
		det.Confidence[i] = clamp01(conf)
	}
	return det, nil
}

// EveningStar detects the bearish mirror of the morning star.
type EveningStar struct{}

func (EveningStar) Name() string { return "evening_star" }

func (EveningStar) MinPeriods(params model.Params) int { return 3 }

func (EveningStar) Dependencies() []string { return nil }

func (p EveningStar) Detect(s *series.Series, params model.Params, _ IndicatorContext) (*DetectionSeries, error) {
	if err := checkLen(p.Name(), s, 3); err != nil {
		return nil, err
	}

	opens, closes := s.Opens(), s.Closes()
	body := bodies(s)
	rng := ranges(s)

	open2 := series.Shift(opens, 2)
	close2 := series.Shift(closes, 2)
	body2 := series.Shift(body, 2)
	rng2 := series.Shift(rng, 2)
	body1 := series.Shift(body, 1)

	det := newDetections(s.Len())
	for i := 0; i < s.Len(); i++ {
		if !series.Valid(open2[i]) {
			continue
		}
		if rng2[i] < minValidRange || rng[i] < minValidRange {
			continue
		}
		firstBullish := close2[i] > open2[i] && body2[i] > 0.5*rng2[i]
		middleSmall := body1[i] < 0.5*body2[i]
		midpoint := (open2[i] + close2[i]) / 2.0
		thirdBearish := closes[i] < opens[i] && closes[i] < midpoint
		if !(firstBullish && middleSmall && thirdBearish) {
			continue
		}

		det.Detected[i] = true
		conf := 0.65
		if closes[i] < open2[i] {
			conf += 0.15
		}
		if body1[i] < 0.2*body2[i] {
			conf += 0.1
		}
		det.Confidence[i] = clamp01(conf)
	}
	return det, nil
}
