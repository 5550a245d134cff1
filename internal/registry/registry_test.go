package registry

import (
	"errors"
	"testing"

	"analysis-enginev1/internal/indicator"
	"analysis-enginev1/internal/model"
	"analysis-enginev1/internal/pattern"
)

func TestResolveIndicator_Registered(t *testing.T) {
	r := New()
	r.RegisterIndicator("rsi", func() indicator.Indicator { return indicator.RSI{} })

	impl, err := r.ResolveIndicator(model.IndicatorDefinition{Name: "rsi_14", Impl: "rsi"})
	if err != nil {
		t.Fatalf("ResolveIndicator: %v", err)
	}
	if impl.Name() != "rsi" {
		t.Errorf("resolved %q, want rsi", impl.Name())
	}
}

func TestResolveIndicator_Unregistered(t *testing.T) {
	r := New()

	_, err := r.ResolveIndicator(model.IndicatorDefinition{Name: "super_trend", Impl: "supertrend"})
	var unresolved *model.UnresolvedComponentError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected UnresolvedComponentError, got %v", err)
	}
	if unresolved.Kind != "indicator" || unresolved.Name != "super_trend" || unresolved.Impl != "supertrend" {
		t.Errorf("error fields = %+v", unresolved)
	}
}

func TestResolvePattern_Unregistered(t *testing.T) {
	r := New()

	_, err := r.ResolvePattern(model.PatternDefinition{Name: "cup_handle", Impl: "cup_handle"})
	var unresolved *model.UnresolvedComponentError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected UnresolvedComponentError, got %v", err)
	}
	if unresolved.Kind != "pattern" {
		t.Errorf("Kind=%q, want pattern", unresolved.Kind)
	}
}

func TestResolve_NilFactoryProduct(t *testing.T) {
	r := New()
	r.RegisterPattern("broken", func() pattern.Pattern { return nil })

	_, err := r.ResolvePattern(model.PatternDefinition{Name: "broken", Impl: "broken"})
	var unresolved *model.UnresolvedComponentError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected UnresolvedComponentError for nil product, got %v", err)
	}
}

func TestBuiltins_CoversDefaultCatalog(t *testing.T) {
	r := Builtins()

	indicators := []string{"sma", "ema", "rsi", "macd", "bollinger", "atr", "stochastic", "obv"}
	for _, impl := range indicators {
		if _, err := r.ResolveIndicator(model.IndicatorDefinition{Name: impl, Impl: impl}); err != nil {
			t.Errorf("builtin indicator %q: %v", impl, err)
		}
	}

	patterns := []string{
		"doji", "hammer", "shooting_star",
		"bullish_engulfing", "bearish_engulfing",
		"morning_star", "evening_star",
		"breakout", "oversold_reversal",
	}
	for _, impl := range patterns {
		if _, err := r.ResolvePattern(model.PatternDefinition{Name: impl, Impl: impl}); err != nil {
			t.Errorf("builtin pattern %q: %v", impl, err)
		}
	}
}
