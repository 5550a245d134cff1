package pattern

import (
	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/series"
)

// BullishEngulfing detects a bullish bar whose body fully engulfs the
// previous bar's bearish body. The first bar of any series can never be a
// detection — no predecessor exists.
type BullishEngulfing struct{}

func (BullishEngulfing) Name() string { return "bullish_engulfing" }

func (BullishEngulfing) MinPeriods(params model.Params) int { return 2 }

func (BullishEngulfing) Dependencies() []string { return nil }

func (p BullishEngulfing) Detect(s *series.Series, params model.Params, _ IndicatorContext) (*DetectionSeries, error) {
	if err := checkLen(p.Name(), s, 2); err != nil {
		return nil, err
	}

	opens, closes, volumes := s.Opens(), s.Closes(), s.Volumes()
	prevOpen := series.Shift(opens, 1)
	prevClose := series.Shift(closes, 1)
	prevVolume := series.Shift(volumes, 1)

	det := newDetections(s.Len())
	for i := 0; i < s.Len(); i++ {
		if !series.Valid(prevOpen[i]) {
			continue // first bar
		}
		prevBearish := prevClose[i] < prevOpen[i]
		currBullish := closes[i] > opens[i]
		engulfs := opens[i] <= prevClose[i] && closes[i] >= prevOpen[i]
		if !(prevBearish && currBullish && engulfs) {
			continue
		}

		det.Detected[i] = true
		conf := 0.7
		prevBody := prevOpen[i] - prevClose[i]
		currBody := closes[i] - opens[i]
		if prevBody > 0 && currBody >= 1.5*prevBody {
			conf += 0.1 // decisively larger body
		}
		if series.Valid(prevVolume[i]) && prevVolume[i] > 0 && volumes[i] > prevVolume[i] {
			conf += 0.1 // volume expansion confirms the reversal
		}
		det.Confidence[i] = clamp01(conf)
	}
	return det, nil
}

// BearishEngulfing detects a bearish bar whose body fully engulfs the
// previous bar's bullish body.
type BearishEngulfing struct{}

func (BearishEngulfing) Name() string { return "bearish_engulfing" }

func (BearishEngulfing) MinPeriods(params model.Params) int { return 2 }

func (BearishEngulfing) Dependencies() []string { return nil }

func (p BearishEngulfing) Detect(s *series.Series, params model.Params, _ IndicatorContext) (*DetectionSeries, error) {
	if err := checkLen(p.Name(), s, 2); err != nil {
		return nil, err
	}

	opens, closes, volumes := s.Opens(), s.Closes(), s.Volumes()
	prevOpen := series.Shift(opens, 1)
	prevClose := series.Shift(closes, 1)
	prevVolume := series.Shift(volumes, 1)

	det := newDetections(s.Len())
	for i := 0; i < s.Len(); i++ {
		if !series.Valid(prevOpen[i]) {
			continue
		}
		prevBullish := prevClose[i] > prevOpen[i]
		currBearish := closes[i] < opens[i]
		engulfs := opens[i] >= prevClose[i] && closes[i] <= prevOpen[i]
		if !(prevBullish && currBearish && engulfs) {
			continue
		}

		det.Detected[i] = true
		conf := 0.7
		prevBody := prevClose[i] - prevOpen[i]
		currBody := opens[i] - closes[i]
		if prevBody > 0 && currBody >= 1.5*prevBody {
			conf += 0.1
		}
		if series.Valid(prevVolume[i]) && prevVolume[i] > 0 && volumes[i] > prevVolume[i] {
			conf += 0.1
		}
		det.Confidence[i] = clamp01(conf)
	}
	return det, nil
}
