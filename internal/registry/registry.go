// Package registry resolves catalog definitions to concrete indicator and
// pattern implementations.
//
// Resolution is a startup-time registration table: a string implementation
// reference maps to a factory. A reference that cannot be found is a hard
// UnresolvedComponentError — never a skip, never a warning. Silently
// omitting a configured analysis would be indistinguishable from "nothing
// detected", so a missing implementation halts that component loudly.
package registry

import (
	"sync"

	"analysis-enginev1/internal/indicator"
	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/pattern"
)

// IndicatorFactory creates a fresh indicator instance.
type IndicatorFactory func() indicator.Indicator

// PatternFactory creates a fresh pattern instance.
type PatternFactory func() pattern.Pattern

// Registry maps implementation references to factories.
type Registry struct {
	mu         sync.RWMutex
	indicators map[string]IndicatorFactory
	patterns   map[string]PatternFactory
}

// New returns an empty registry. Most callers want Builtins instead.
func New() *Registry {
	return &Registry{
		indicators: make(map[string]IndicatorFactory),
		patterns:   make(map[string]PatternFactory),
	}
}

// RegisterIndicator binds an implementation reference to a factory.
func (r *Registry) RegisterIndicator(impl string, f IndicatorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indicators[impl] = f
}

// RegisterPattern binds an implementation reference to a factory.
func (r *Registry) RegisterPattern(impl string, f PatternFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns[impl] = f
}

// ResolveIndicator resolves a definition to a concrete indicator, or fails
// with UnresolvedComponentError. No partial computation happens on failure.
func (r *Registry) ResolveIndicator(def model.IndicatorDefinition) (indicator.Indicator, error) {
	r.mu.RLock()
	f, ok := r.indicators[def.Impl]
	r.mu.RUnlock()
	if !ok {
		return nil, &model.UnresolvedComponentError{Kind: "indicator", Name: def.Name, Impl: def.Impl}
	}
	impl := f()
	if impl == nil {
		return nil, &model.UnresolvedComponentError{Kind: "indicator", Name: def.Name, Impl: def.Impl}
	}
	return impl, nil
}

// ResolvePattern resolves a definition to a concrete pattern, or fails
// with UnresolvedComponentError.
func (r *Registry) ResolvePattern(def model.PatternDefinition) (pattern.Pattern, error) {
	r.mu.RLock()
	f, ok := r.patterns[def.Impl]
	r.mu.RUnlock()
	if !ok {
		return nil, &model.UnresolvedComponentError{Kind: "pattern", Name: def.Name, Impl: def.Impl}
	}
	impl := f()
	if impl == nil {
		return nil, &model.UnresolvedComponentError{Kind: "pattern", Name: def.Name, Impl: def.Impl}
	}
	return impl, nil
}

// Builtins returns a registry preloaded with every built-in indicator and
// pattern implementation.
func Builtins() *Registry {
	r := New()

	r.RegisterIndicator("sma", func() indicator.Indicator { return indicator.SMA{} })
	r.RegisterIndicator("ema", func() indicator.Indicator { return indicator.EMA{} })
	r.RegisterIndicator("rsi", func() indicator.Indicator { return indicator.RSI{} })
	r.RegisterIndicator("macd", func() indicator.Indicator { return indicator.MACD{} })
	r.RegisterIndicator("bollinger", func() indicator.Indicator { return indicator.Bollinger{} })
	r.RegisterIndicator("atr", func() indicator.Indicator { return indicator.ATR{} })
	r.RegisterIndicator("stochastic", func() indicator.Indicator { return indicator.Stochastic{} })
	r.RegisterIndicator("obv", func() indicator.Indicator { return indicator.OBV{} })

	r.RegisterPattern("doji", func() pattern.Pattern { return pattern.Doji{} })
	r.RegisterPattern("hammer", func() pattern.Pattern { return pattern.Hammer{} })
	r.RegisterPattern("shooting_star", func() pattern.Pattern { return pattern.ShootingStar{} })
	r.RegisterPattern("bullish_engulfing", func() pattern.Pattern { return pattern.BullishEngulfing{} })
	r.RegisterPattern("bearish_engulfing", func() pattern.Pattern { return pattern.BearishEngulfing{} })
	r.RegisterPattern("morning_star", func() pattern.Pattern { return pattern.MorningStar{} })
	r.RegisterPattern("evening_star", func() pattern.Pattern { return pattern.EveningStar{} })
	r.RegisterPattern("breakout", func() pattern.Pattern { return pattern.Breakout{} })
	r.RegisterPattern("oversold_reversal", func() pattern.Pattern { return pattern.OversoldReversal{} })

	return r
}
