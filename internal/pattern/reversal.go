package pattern

import (
	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/series"
)

// rsiDependency is the catalog definition name this pattern requires in
// its indicator context.
const rsiDependency = "rsi_14"

// OversoldReversal detects a bullish reversal bar while the symbol's RSI
// sits in oversold territory. It is the one built-in pattern with a hard
// indicator dependency: if the RSI result is absent from the context the
// pattern fails with MissingDependencyError instead of treating the
// missing input as neutral.
//
// The reversal shape is computed per bar; the RSI reading applies to the
// series' final bar, so only the final bar's detection gets the oversold
// confidence boost.
type OversoldReversal struct{}

func (OversoldReversal) Name() string { return "oversold_reversal" }

func (OversoldReversal) MinPeriods(params model.Params) int { return 2 }

func (OversoldReversal) Dependencies() []string { return []string{rsiDependency} }

func (p OversoldReversal) Detect(s *series.Series, params model.Params, ctx IndicatorContext) (*DetectionSeries, error) {
	oversold := params.Float("oversold", 30.0)
	if err := checkLen(p.Name(), s, 2); err != nil {
		return nil, err
	}

	rsiResult, ok := ctx[rsiDependency]
	if !ok || rsiResult == nil || rsiResult.Value == nil {
		return nil, &model.MissingDependencyError{Pattern: p.Name(), Indicator: rsiDependency}
	}
	rsi := *rsiResult.Value

	opens, closes, lows := s.Opens(), s.Closes(), s.Lows()
	prevOpen := series.Shift(opens, 1)
	prevClose := series.Shift(closes, 1)
	prevLow := series.Shift(lows, 1)

	det := newDetections(s.Len())
	for i := 0; i < s.Len(); i++ {
		if !series.Valid(prevOpen[i]) {
			continue
		}
		prevBearish := prevClose[i] < prevOpen[i]
		currBullish := closes[i] > opens[i]
		higherLow := lows[i] >= prevLow[i]
		recovers := closes[i] > prevClose[i]
		if !(prevBearish && currBullish && higherLow && recovers) {
			continue
		}

		det.Detected[i] = true
		conf := 0.5
		if closes[i] > prevOpen[i] {
			conf += 0.1 // full recovery of the prior bar's body
		}
		if i == s.Len()-1 && rsi <= oversold {
			// Deeper oversold readings score higher, up to +0.3 at RSI 0.
			conf += 0.15 + 0.15*(oversold-rsi)/oversold
		}
		det.Confidence[i] = clamp01(conf)
	}
	return det, nil
}
