// Package layout infers alignment and flow from raw element geometry. These
// are heuristics over positions and sizes, not a layout solver: the rules
// run in a fixed priority order and the first match wins.
package layout

import (
	"math"
	"sort"

	"stylecanvas/internal/domain"
)

const (
	// axisTolerance is the band within which coordinates count as aligned.
	axisTolerance = 10.0
	// clusterTolerance buckets rows/columns for grid detection.
	clusterTolerance = 20.0
	// gapVariance below this, with a mean gap above minSpreadGap, reads as
	// deliberate space-between distribution.
	gapVarianceThreshold = 100.0
	minSpreadGap         = 20.0
	// defaultGridGap is used when no positive gaps exist between cells.
	defaultGridGap = 16.0
)

// Descriptor is the inferred layout of a set of sibling elements.
type Descriptor struct {
	Kind      domain.LayoutKind
	Direction string
	Justify   string
	Gap       float64
	Columns   int
	Rows      int
}

// ToLayout converts the descriptor to the document layout form. Static
// layouts carry no descriptor at all.
func (d Descriptor) ToLayout() *domain.Layout {
	if d.Kind == domain.LayoutStatic {
		return nil
	}
	return &domain.Layout{
		Kind:      d.Kind,
		Direction: d.Direction,
		Justify:   d.Justify,
		Gap:       d.Gap,
		Columns:   d.Columns,
		Rows:      d.Rows,
	}
}

// Analyze infers the layout of elements. Priority: static for fewer than two
// elements, then row flex, column flex, grid, and absolute as the fallback.
func Analyze(elements []domain.CanvasElement) Descriptor {
	if len(elements) < 2 {
		return Descriptor{Kind: domain.LayoutStatic}
	}

	if aligned(elements, func(e domain.CanvasElement) float64 { return e.Position.Y }) {
		return rowDescriptor(elements, "row")
	}
	if aligned(elements, func(e domain.CanvasElement) float64 { return e.Position.X }) {
		return rowDescriptor(elements, "column")
	}

	rows := clusters(elements, func(e domain.CanvasElement) float64 { return e.Position.Y })
	cols := clusters(elements, func(e domain.CanvasElement) float64 { return e.Position.X })
	if len(rows) >= 2 && len(cols) >= 2 {
		return Descriptor{
			Kind:    domain.LayoutGrid,
			Columns: len(cols),
			Rows:    len(rows),
			Gap:     gridGap(rows),
		}
	}

	return Descriptor{Kind: domain.LayoutAbsolute}
}

// aligned reports whether every coordinate falls in one tolerance band.
func aligned(elements []domain.CanvasElement, coord func(domain.CanvasElement) float64) bool {
	lo, hi := coord(elements[0]), coord(elements[0])
	for _, e := range elements[1:] {
		c := coord(e)
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}
	return hi-lo <= axisTolerance
}

// rowDescriptor builds a flex descriptor along the given direction, deriving
// justify-content from inter-element gap variance and gap from the rounded
// mean positive gap.
func rowDescriptor(elements []domain.CanvasElement, direction string) Descriptor {
	sorted := make([]domain.CanvasElement, len(elements))
	copy(sorted, elements)
	if direction == "row" {
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position.X < sorted[j].Position.X })
	} else {
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position.Y < sorted[j].Position.Y })
	}

	var gaps []float64
	for i := 1; i < len(sorted); i++ {
		var gap float64
		if direction == "row" {
			gap = sorted[i].Position.X - (sorted[i-1].Position.X + sorted[i-1].Size.Width)
		} else {
			gap = sorted[i].Position.Y - (sorted[i-1].Position.Y + sorted[i-1].Size.Height)
		}
		if gap > 0 {
			gaps = append(gaps, gap)
		}
	}

	d := Descriptor{
		Kind:      domain.LayoutFlex,
		Direction: direction,
		Justify:   "flex-start",
	}
	if len(gaps) == 0 {
		return d
	}
	m := mean(gaps)
	d.Gap = math.Round(m)
	if variance(gaps, m) < gapVarianceThreshold && m > minSpreadGap {
		d.Justify = "space-between"
	}
	return d
}

// clusters buckets coordinates: a value joins an existing cluster when it is
// within clusterTolerance of the cluster's first member.
func clusters(elements []domain.CanvasElement, coord func(domain.CanvasElement) float64) [][]domain.CanvasElement {
	var groups [][]domain.CanvasElement
next:
	for _, e := range elements {
		c := coord(e)
		for i, g := range groups {
			if math.Abs(coord(g[0])-c) <= clusterTolerance {
				groups[i] = append(groups[i], e)
				continue next
			}
		}
		groups = append(groups, []domain.CanvasElement{e})
	}
	return groups
}

// gridGap is the mean positive horizontal gap across all rows, or the
// default when cells touch or overlap everywhere.
func gridGap(rows [][]domain.CanvasElement) float64 {
	var gaps []float64
	for _, row := range rows {
		sorted := make([]domain.CanvasElement, len(row))
		copy(sorted, row)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position.X < sorted[j].Position.X })
		for i := 1; i < len(sorted); i++ {
			gap := sorted[i].Position.X - (sorted[i-1].Position.X + sorted[i-1].Size.Width)
			if gap > 0 {
				gaps = append(gaps, gap)
			}
		}
	}
	if len(gaps) == 0 {
		return defaultGridGap
	}
	return math.Round(mean(gaps))
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func variance(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += (v - m) * (v - m)
	}
	return sum / float64(len(vals))
}
