// Package series provides the read-only bar series abstraction and the
// rolling/shift helpers all indicators and patterns are built on.
//
// Positions where a windowed value is undefined hold NaN — never zero,
// never an extrapolation. Callers check validity with series.Valid.
package series

import (
	"math"
	"time"

	"analysis-enginev1/internal/model"
)

// Series is an ordered, read-only view over one symbol's bars. Columns are
// extracted once at construction; no component may mutate them.
type Series struct {
	symbol    string
	timeframe string
	bars      []model.Bar

	opens   []float64
	highs   []float64
	lows    []float64
	closes  []float64
	volumes []float64
}

// New builds a Series from bars ordered by timestamp ascending. It returns a
// MissingFieldError if any bar carries a non-finite OHLC field, and rejects
// out-of-order timestamps because every rolling and shifted calculation
// depends on ascending order.
func New(symbol, timeframe string, bars []model.Bar) (*Series, error) {
	s := &Series{
		symbol:    symbol,
		timeframe: timeframe,
		bars:      bars,
		opens:     make([]float64, len(bars)),
		highs:     make([]float64, len(bars)),
		lows:      make([]float64, len(bars)),
		closes:    make([]float64, len(bars)),
		volumes:   make([]float64, len(bars)),
	}

	var prev time.Time
	for i, b := range bars {
		switch {
		case !finite(b.Open):
			return nil, &model.MissingFieldError{Component: "series", Field: "open", Index: i}
		case !finite(b.High):
			return nil, &model.MissingFieldError{Component: "series", Field: "high", Index: i}
		case !finite(b.Low):
			return nil, &model.MissingFieldError{Component: "series", Field: "low", Index: i}
		case !finite(b.Close):
			return nil, &model.MissingFieldError{Component: "series", Field: "close", Index: i}
		case !finite(b.Volume):
			return nil, &model.MissingFieldError{Component: "series", Field: "volume", Index: i}
		}
		if i > 0 && !b.TS.After(prev) {
			return nil, &model.MissingFieldError{Component: "series", Field: "ts", Index: i}
		}
		prev = b.TS

		s.opens[i] = b.Open
		s.highs[i] = b.High
		s.lows[i] = b.Low
		s.closes[i] = b.Close
		s.volumes[i] = b.Volume
	}
	return s, nil
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.bars) }

// Symbol returns the series symbol.
func (s *Series) Symbol() string { return s.symbol }

// Timeframe returns the series timeframe.
func (s *Series) Timeframe() string { return s.timeframe }

// Bar returns the bar at index i.
func (s *Series) Bar(i int) model.Bar { return s.bars[i] }

// LastTS returns the timestamp of the final bar, or the zero time if empty.
func (s *Series) LastTS() time.Time {
	if len(s.bars) == 0 {
		return time.Time{}
	}
	return s.bars[len(s.bars)-1].TS
}

// Column accessors return the internal slices. Callers must treat them as
// read-only; indicators and patterns never write through these.

func (s *Series) Opens() []float64   { return s.opens }
func (s *Series) Highs() []float64   { return s.highs }
func (s *Series) Lows() []float64    { return s.lows }
func (s *Series) Closes() []float64  { return s.closes }
func (s *Series) Volumes() []float64 { return s.volumes }

// Valid reports whether v is a defined (finite) value.
func Valid(v float64) bool { return finite(v) }

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
