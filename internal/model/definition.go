package model

import "strings"

// IndicatorDefinition is one row of the indicator catalog. Rows are managed
// by an external administrative process; the engine only reads them.
type IndicatorDefinition struct {
	Name    string // unique, e.g. "rsi_14"
	Impl    string // implementation reference, e.g. "rsi"
	Params  Params // default parameters
	Enabled bool
}

// PatternDefinition is one row of the pattern catalog.
type PatternDefinition struct {
	Name                string  // unique, e.g. "bullish_engulfing"
	Impl                string  // implementation reference
	Params              Params  // default parameters
	ConfidenceThreshold float64 // 0..1, minimum score to persist a detection
	Timeframes          string  // comma-separated applicable timeframes, "" = all
	RiskLevel           string  // "low", "medium", "high"
	Enabled             bool
}

// AppliesTo reports whether the pattern is applicable to the given timeframe.
// An empty timeframe set means the pattern applies everywhere.
func (d *PatternDefinition) AppliesTo(timeframe string) bool {
	if d.Timeframes == "" {
		return true
	}
	for _, tf := range strings.Split(d.Timeframes, ",") {
		if strings.TrimSpace(tf) == timeframe {
			return true
		}
	}
	return false
}
