// Package diff computes the semantic change set between two canvas element
// collections. Elements match by source selector, falling back to ID for
// canvas-born shapes that never had one.
package diff

import (
	"stylecanvas/internal/domain"
)

// PropertyChange is one style property transition. From or To is nil when
// the property appears on only one side.
type PropertyChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// ElementChange pairs a modified element with its field-level style diff.
type ElementChange struct {
	Element   domain.CanvasElement      `json:"element"`
	StyleDiff map[string]PropertyChange `json:"styleDiff"`
}

// Result partitions the current collection against the previous one.
type Result struct {
	Added     []domain.CanvasElement `json:"added"`
	Modified  []ElementChange        `json:"modified"`
	Removed   []domain.CanvasElement `json:"removed"`
	Unchanged []domain.CanvasElement `json:"unchanged"`
}

// HasChanges reports whether anything semantically changed.
func (r *Result) HasChanges() bool {
	return len(r.Added) > 0 || len(r.Modified) > 0 || len(r.Removed) > 0
}

// Summary is a compact change description for broadcast payloads and logs.
func (r *Result) Summary() map[string]int {
	return map[string]int{
		"added":     len(r.Added),
		"modified":  len(r.Modified),
		"removed":   len(r.Removed),
		"unchanged": len(r.Unchanged),
	}
}

// Diff compares two element collections. An element counts as modified only
// when its size, style, or kind differs; a moved element with identical
// styling is unchanged, because position is canvas-side metadata rather than
// CSS-derived state. Callers that care about position deltas inspect the
// element payloads directly.
func Diff(previous, current []domain.CanvasElement) *Result {
	res := &Result{}

	prevByKey := make(map[string]*domain.CanvasElement, len(previous))
	for i := range previous {
		prevByKey[previous[i].Key()] = &previous[i]
	}

	seen := make(map[string]struct{}, len(current))
	for i := range current {
		cur := current[i]
		key := cur.Key()
		seen[key] = struct{}{}

		prev, ok := prevByKey[key]
		if !ok {
			res.Added = append(res.Added, cur)
			continue
		}
		if semanticallyEqual(prev, &cur) {
			res.Unchanged = append(res.Unchanged, cur)
			continue
		}
		res.Modified = append(res.Modified, ElementChange{
			Element:   cur,
			StyleDiff: styleDiff(prev.Style, cur.Style),
		})
	}

	for i := range previous {
		if _, ok := seen[previous[i].Key()]; !ok {
			res.Removed = append(res.Removed, previous[i])
		}
	}
	return res
}

func semanticallyEqual(a, b *domain.CanvasElement) bool {
	return a.Kind == b.Kind &&
		a.Size == b.Size &&
		domain.StyleEqual(a.Style, b.Style)
}

// styleDiff produces {property: {from, to}} for every key present on either
// side whose value differs.
func styleDiff(from, to map[string]any) map[string]PropertyChange {
	changes := map[string]PropertyChange{}
	for k, fv := range from {
		tv, ok := to[k]
		if !ok {
			changes[k] = PropertyChange{From: fv, To: nil}
			continue
		}
		if !domain.StyleEqual(map[string]any{k: fv}, map[string]any{k: tv}) {
			changes[k] = PropertyChange{From: fv, To: tv}
		}
	}
	for k, tv := range to {
		if _, ok := from[k]; !ok {
			changes[k] = PropertyChange{From: nil, To: tv}
		}
	}
	return changes
}
