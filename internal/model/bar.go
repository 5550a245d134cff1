package model

import (
	"encoding/json"
	"time"
)

// Bar represents one OHLCV sample for a symbol at a fixed time interval.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"` // e.g. "1day", "1h"
	TS        time.Time `json:"ts"`        // bucket start time (UTC)
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Key returns a unique key for this bar's series: "symbol:timeframe".
func (b *Bar) Key() string {
	return b.Symbol + ":" + b.Timeframe
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *Bar) JSON() []byte {
	data, _ := json.Marshal(b)
	return data
}

// Params holds component parameters from a definition row, keyed by name.
// Values are numeric; periods are stored as whole numbers.
type Params map[string]float64

// Int returns the parameter as an int, or fallback if absent or non-positive.
func (p Params) Int(key string, fallback int) int {
	if v, ok := p[key]; ok && int(v) > 0 {
		return int(v)
	}
	return fallback
}

// Float returns the parameter as a float64, or fallback if absent.
func (p Params) Float(key string, fallback float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return fallback
}

// ParseParams decodes a JSON parameter object ("{}" and "" mean empty).
func ParseParams(raw string) (Params, error) {
	if raw == "" {
		return Params{}, nil
	}
	var p Params
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, err
	}
	if p == nil {
		p = Params{}
	}
	return p, nil
}
