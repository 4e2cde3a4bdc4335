package domain

import (
	"time"
)

// ElementKind classifies a canvas element. The classifier in internal/css
// computes it once from a fixed decision table; nothing downstream re-infers
// shape from property presence.
type ElementKind string

const (
	KindRectangle ElementKind = "rectangle"
	KindCircle    ElementKind = "circle"
	KindText      ElementKind = "text"
	KindLine      ElementKind = "line"
	KindImage     ElementKind = "image"
	KindContainer ElementKind = "container"
)

// Position is a canvas coordinate in pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// LayoutKind is the inferred layout mode of a container.
type LayoutKind string

const (
	LayoutStatic   LayoutKind = "static"
	LayoutFlex     LayoutKind = "flex"
	LayoutGrid     LayoutKind = "grid"
	LayoutAbsolute LayoutKind = "absolute"
)

// Layout describes how a container arranges its children. Flex fields and
// grid fields are mutually exclusive per Kind.
type Layout struct {
	Kind      LayoutKind `json:"kind"`
	Direction string     `json:"direction,omitempty"` // row | column
	Justify   string     `json:"justify,omitempty"`
	Align     string     `json:"align,omitempty"`
	Gap       float64    `json:"gap,omitempty"`
	Columns   int        `json:"columns,omitempty"`
	Rows      int        `json:"rows,omitempty"`
}

// CanvasElement is one visual primitive on the canvas. ID is stable across
// edits; SourceSelector/SourceFile record provenance so a re-parse can match
// the element and preserve its canvas-side position and layer.
type CanvasElement struct {
	ID             string         `json:"id"`
	Kind           ElementKind    `json:"kind"`
	Position       Position       `json:"position"`
	Size           Size           `json:"size"`
	Style          map[string]any `json:"style"`
	Layout         *Layout        `json:"layout,omitempty"`
	Layer          int            `json:"layer"`
	SourceSelector string         `json:"sourceSelector"`
	SourceFile     string         `json:"sourceFile"`
	LastUpdated    time.Time      `json:"lastUpdated"`
}

// Key returns the identity used to match elements across document
// generations: provenance first, generated ID as fallback.
func (e *CanvasElement) Key() string {
	if e.SourceSelector != "" {
		return e.SourceSelector
	}
	return e.ID
}

// CloneStyle returns a shallow copy of the style map. Style values are
// strings or numbers, so a shallow copy is a full copy in practice.
func (e *CanvasElement) CloneStyle() map[string]any {
	out := make(map[string]any, len(e.Style))
	for k, v := range e.Style {
		out[k] = v
	}
	return out
}

// StyleEqual reports whether two style maps hold the same keys and values.
// Numeric values compare by float64 so JSON round-trips don't flag phantom
// changes.
func StyleEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !styleValueEqual(av, bv) {
			return false
		}
	}
	return true
}

func styleValueEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
