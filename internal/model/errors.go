package model

import "fmt"

// Error taxonomy for the engine. Component-level errors are caught at the
// service boundary and never abort sibling components; symbol-level errors
// are caught at the analysis boundary and never abort other symbols.

// InsufficientDataError means a bar series is shorter than a component's
// declared minimum. Recoverable: the caller may retry with more history.
type InsufficientDataError struct {
	Component string
	Need      int
	Got       int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need %d bars, got %d", e.Component, e.Need, e.Got)
}

// MissingFieldError means an input series is malformed (a required OHLCV
// field is absent or unusable). Fatal for the affected component only.
type MissingFieldError struct {
	Component string
	Field     string
	Index     int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing field %q at bar %d", e.Component, e.Field, e.Index)
}

// UnresolvedComponentError means a definition's implementation reference
// could not be resolved. Always fatal: a configured analysis that cannot
// be loaded must fail loudly, never be skipped. It is not retried and never
// downgraded to a warning.
type UnresolvedComponentError struct {
	Kind string // "indicator" or "pattern"
	Name string // definition name
	Impl string // implementation reference that failed to resolve
}

func (e *UnresolvedComponentError) Error() string {
	return fmt.Sprintf("unresolved %s %q: no implementation registered for %q", e.Kind, e.Name, e.Impl)
}

// MissingDependencyError means a pattern requires an indicator result that
// is absent from its context. Fatal for that pattern only.
type MissingDependencyError struct {
	Pattern   string
	Indicator string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("pattern %q: required indicator %q absent from context", e.Pattern, e.Indicator)
}
