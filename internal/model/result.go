package model

import (
	"encoding/json"
	"time"
)

// IndicatorResult holds one calculation run's output for a single indicator.
// Value is the canonical metric (e.g. the MACD line, never the histogram);
// ValueData carries every computed sub-value. A nil Value means the indicator
// produced no finite primary value for the final bar.
type IndicatorResult struct {
	Symbol       string             `json:"symbol"`
	Indicator    string             `json:"indicator"`
	Timeframe    string             `json:"timeframe"`
	CalculatedAt time.Time          `json:"calculated_at"` // timestamp of the last bar used
	Value        *float64           `json:"value"`
	ValueData    map[string]float64 `json:"value_data"`
	RunID        string             `json:"run_id"`
}

// JSON returns the JSON-encoded result.
func (r *IndicatorResult) JSON() []byte {
	data, _ := json.Marshal(r)
	return data
}

// PatternDetection records one pattern firing above its confidence
// threshold on a specific bar. Rows are append-only.
type PatternDetection struct {
	Symbol     string             `json:"symbol"`
	Pattern    string             `json:"pattern"`
	Timeframe  string             `json:"timeframe"`
	DetectedAt time.Time          `json:"detected_at"` // timestamp of the bar that fired
	Confidence float64            `json:"confidence"`  // 0..1
	Price      float64            `json:"price"`       // close at detection
	Volume     float64            `json:"volume"`
	Detail     map[string]float64 `json:"detail"`
	RunID      string             `json:"run_id"`
}

// JSON returns the JSON-encoded detection.
func (d *PatternDetection) JSON() []byte {
	data, _ := json.Marshal(d)
	return data
}

// ComponentFailure records one indicator or pattern that failed within a run.
type ComponentFailure struct {
	Component string `json:"component"`
	Kind      string `json:"kind"` // "indicator" or "pattern"
	Reason    string `json:"reason"`
}

// AnalysisOutcome summarizes one symbol's analysis run. A run either commits
// all of its results or none of them; Failures lists components that were
// skipped without aborting their siblings.
type AnalysisOutcome struct {
	Symbol     string             `json:"symbol"`
	RunID      string             `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	Duration   time.Duration      `json:"duration"`
	Bars       int                `json:"bars"`
	Indicators int                `json:"indicators"` // successfully computed
	Detections int                `json:"detections"` // persisted above threshold
	Failures   []ComponentFailure `json:"failures,omitempty"`
	Err        string             `json:"error,omitempty"` // symbol-level failure, empty on success
}

// Succeeded reports whether the symbol-level run committed.
func (o *AnalysisOutcome) Succeeded() bool { return o.Err == "" }

// Clean reports whether the run committed with zero component failures.
func (o *AnalysisOutcome) Clean() bool { return o.Err == "" && len(o.Failures) == 0 }

// BatchOutcome aggregates a parallel universe run. A partial-failure batch is
// always distinguishable from a clean one: Failed > 0 or a non-clean symbol.
type BatchOutcome struct {
	RunID     string             `json:"run_id"`
	StartedAt time.Time          `json:"started_at"`
	Duration  time.Duration      `json:"duration"`
	Symbols   []*AnalysisOutcome `json:"symbols"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
}

// Outcome returns the per-symbol outcome, or nil if the symbol was not in the batch.
func (b *BatchOutcome) Outcome(symbol string) *AnalysisOutcome {
	for _, o := range b.Symbols {
		if o.Symbol == symbol {
			return o
		}
	}
	return nil
}
