package css

import (
	"fmt"
	"strconv"
	"strings"

	"stylecanvas/internal/domain"
	"stylecanvas/internal/layout"
)

// Stylesheet renders a full stylesheet from canvas elements: one rule per
// selector block, two-space indentation, insertion order preserved.
// Containers without a precomputed layout get one inferred from the elements
// inside their bounds.
func Stylesheet(elements []domain.CanvasElement) string {
	var b strings.Builder
	for i := range elements {
		el := elements[i]
		if el.Kind == domain.KindContainer && el.Layout == nil {
			desc := layout.Analyze(childrenOf(el, elements))
			el.Layout = desc.ToLayout()
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(ElementToRule(el))
	}
	return b.String()
}

// ElementToRule renders one element as a CSS rule block. Output is
// deterministic for identical input; properties the parser can extract are
// all emitted so a parse of the output reproduces the element's kind, size,
// and retained style.
func ElementToRule(el domain.CanvasElement) string {
	var b strings.Builder
	b.WriteString(selectorFor(el))
	b.WriteString(" {\n")

	emitStructure(&b, el)
	emitStyle(&b, el)

	b.WriteString("}\n")
	return b.String()
}

// selectorFor prefers provenance; canvas-born elements get a class selector
// derived from their ID.
func selectorFor(el domain.CanvasElement) string {
	if el.SourceSelector != "" {
		return el.SourceSelector
	}
	return "." + el.ID
}

// emitStructure writes the kind-dependent skeleton: display, box model, and
// the declarations that make the kind recognizable on a re-parse.
func emitStructure(b *strings.Builder, el domain.CanvasElement) {
	switch el.Kind {
	case domain.KindContainer:
		emitLayout(b, el.Layout)
		decl(b, "box-sizing", "border-box")
		if el.Size.Width > 0 {
			decl(b, "width", px(el.Size.Width))
		}
		if el.Size.Height > 0 {
			decl(b, "height", px(el.Size.Height))
		}
	case domain.KindCircle:
		// The rendered radius is half the shorter edge; the 50% border
		// radius is forced so a re-parse classifies the shape as a circle.
		decl(b, "display", "block")
		decl(b, "box-sizing", "border-box")
		decl(b, "width", px(el.Size.Width))
		decl(b, "height", px(el.Size.Height))
		decl(b, "border-radius", "50%")
	default:
		decl(b, "display", "block")
		decl(b, "box-sizing", "border-box")
		decl(b, "width", px(el.Size.Width))
		decl(b, "height", px(el.Size.Height))
	}
}

// emitLayout writes flex or grid declarations from an inferred descriptor.
func emitLayout(b *strings.Builder, lay *domain.Layout) {
	if lay == nil {
		decl(b, "display", "block")
		return
	}
	switch lay.Kind {
	case domain.LayoutFlex:
		decl(b, "display", "flex")
		if lay.Direction != "" && lay.Direction != "row" {
			decl(b, "flex-direction", lay.Direction)
		}
		if lay.Justify != "" {
			decl(b, "justify-content", lay.Justify)
		}
		if lay.Align != "" {
			decl(b, "align-items", lay.Align)
		}
		if lay.Gap > 0 {
			decl(b, "gap", px(lay.Gap))
		}
	case domain.LayoutGrid:
		decl(b, "display", "grid")
		if lay.Columns > 0 {
			decl(b, "grid-template-columns", fmt.Sprintf("repeat(%d, 1fr)", lay.Columns))
		}
		if lay.Rows > 0 {
			decl(b, "grid-template-rows", fmt.Sprintf("repeat(%d, 1fr)", lay.Rows))
		}
		if lay.Gap > 0 {
			decl(b, "grid-gap", px(lay.Gap))
		}
	case domain.LayoutAbsolute:
		decl(b, "display", "block")
		decl(b, "position", "relative")
	default:
		decl(b, "display", "block")
	}
}

// styleEmitOrder fixes the emission sequence for style-driven declarations.
// The mapping is the inverse of the parser's extraction table.
var styleEmitOrder = []struct {
	key  string
	prop string
}{
	{"fill", "background-color"},
	{"imageSource", "background-image"},
	{"borderRadius", "border-radius"},
	{"opacity", "opacity"},
	{"color", "color"},
	{"fontFamily", "font-family"},
	{"fontSize", "font-size"},
	{"fontWeight", "font-weight"},
	{"fontStyle", "font-style"},
	{"lineHeight", "line-height"},
	{"textAlign", "text-align"},
	{"shadow", "box-shadow"},
	{"textShadow", "text-shadow"},
	{"transform", "transform"},
	{"margin", "margin"},
	{"padding", "padding"},
	{"zIndex", "z-index"},
	{"visibility", "visibility"},
	{"overflow", "overflow"},
	{"cursor", "cursor"},
	{"clipPath", "clip-path"},
}

func emitStyle(b *strings.Builder, el domain.CanvasElement) {
	emitBorder(b, el)
	for _, m := range styleEmitOrder {
		v, ok := el.Style[m.key]
		if !ok {
			continue
		}
		if m.key == "borderRadius" && el.Kind == domain.KindCircle {
			continue // forced to 50% by the structure block
		}
		decl(b, m.prop, styleValue(m.key, v))
	}
}

// emitBorder contracts stroke fields back into the border shorthand when all
// three parts exist, and falls back to longhands otherwise.
func emitBorder(b *strings.Builder, el domain.CanvasElement) {
	width, hasWidth := el.Style["strokeWidth"]
	style, hasStyle := el.Style["strokeStyle"]
	color, hasColor := el.Style["stroke"]

	if hasWidth && hasColor {
		borderStyle := "solid"
		if hasStyle {
			borderStyle = fmt.Sprintf("%v", style)
		}
		decl(b, "border", fmt.Sprintf("%s %s %v", styleValue("strokeWidth", width), borderStyle, color))
		return
	}
	if hasWidth {
		decl(b, "border-width", styleValue("strokeWidth", width))
	}
	if hasStyle {
		decl(b, "border-style", fmt.Sprintf("%v", style))
	}
	if hasColor {
		decl(b, "border-color", fmt.Sprintf("%v", color))
	}
}

// styleValue renders a style map value as CSS text. Bare numerics become
// pixels, except unitless-by-definition fields.
func styleValue(key string, v any) string {
	switch n := v.(type) {
	case float64:
		switch key {
		case "opacity":
			return strconv.FormatFloat(n, 'f', -1, 64)
		case "zIndex":
			return strconv.Itoa(int(n))
		default:
			return px(n)
		}
	case float32:
		return styleValue(key, float64(n))
	case int:
		if key == "zIndex" {
			return strconv.Itoa(n)
		}
		return px(float64(n))
	case int64:
		return styleValue(key, float64(n))
	default:
		return fmt.Sprintf("%v", v)
	}
}

func decl(b *strings.Builder, property, value string) {
	b.WriteString("  ")
	b.WriteString(property)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString(";\n")
}

func px(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64) + "px"
}

// childrenOf returns the elements whose position falls inside the container's
// bounds. Containment by top-left corner is enough for layout inference.
func childrenOf(container domain.CanvasElement, all []domain.CanvasElement) []domain.CanvasElement {
	var children []domain.CanvasElement
	for _, el := range all {
		if el.ID == container.ID {
			continue
		}
		if el.Position.X >= container.Position.X &&
			el.Position.Y >= container.Position.Y &&
			el.Position.X < container.Position.X+container.Size.Width &&
			el.Position.Y < container.Position.Y+container.Size.Height {
			children = append(children, el)
		}
	}
	return children
}

// PolygonClipPath renders a freehand point sequence as a clip-path polygon,
// downsampled to at most maxVertices points relative to the bounding box.
// Exact vector fidelity is not a goal; a bounded approximation is.
func PolygonClipPath(points []domain.Position, size domain.Size, maxVertices int) string {
	if len(points) == 0 || size.Width <= 0 || size.Height <= 0 {
		return ""
	}
	if maxVertices < 3 {
		maxVertices = 3
	}
	step := 1
	if len(points) > maxVertices {
		step = len(points) / maxVertices
	}
	var parts []string
	for i := 0; i < len(points); i += step {
		p := points[i]
		parts = append(parts, fmt.Sprintf("%s%% %s%%",
			pct(p.X/size.Width*100), pct(p.Y/size.Height*100)))
	}
	return "polygon(" + strings.Join(parts, ", ") + ")"
}

func pct(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
