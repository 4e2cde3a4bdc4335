package css

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"stylecanvas/internal/domain"
)

// Classification thresholds. A line is a box at least this many times wider
// than it is tall (or the transpose) and no thicker than the cap.
const (
	lineAspectRatio  = 10.0
	lineMaxThickness = 4.0
	defaultEdge      = 100.0
)

var fontProperties = []string{
	"font", "font-family", "font-size", "font-weight", "font-style",
	"line-height", "text-align",
}

// Classify computes an element kind from a fixed decision table. The table
// runs in priority order; the first match wins.
func Classify(rule domain.StyleRule) domain.ElementKind {
	if v, ok := rule.Properties.Get("display"); ok {
		switch strings.TrimSpace(v) {
		case "flex", "inline-flex", "grid", "inline-grid":
			return domain.KindContainer
		}
	}
	if v, ok := rule.Properties.Get("border-radius"); ok && strings.TrimSpace(v) == "50%" {
		return domain.KindCircle
	}
	if _, ok := rule.Properties.Get("background-image"); ok {
		return domain.KindImage
	}
	w, h := ruleSize(rule)
	if h > 0 && h <= lineMaxThickness && w/h >= lineAspectRatio {
		return domain.KindLine
	}
	if w > 0 && w <= lineMaxThickness && h/w >= lineAspectRatio {
		return domain.KindLine
	}
	for _, p := range fontProperties {
		if _, ok := rule.Properties.Get(p); ok {
			return domain.KindText
		}
	}
	return domain.KindRectangle
}

// RuleToElement translates one retained rule into a canvas element. Position
// comes from absolute offsets when declared and is otherwise zero; the
// coordinator preserves the existing position when the selector matches an
// element it already owns.
func RuleToElement(rule domain.StyleRule) domain.CanvasElement {
	kind := Classify(rule)
	w, h := ruleSize(rule)
	if w == 0 {
		w = defaultEdge
	}
	if h == 0 {
		h = defaultEdge
	}

	el := domain.CanvasElement{
		ID:             SelectorID(rule.Selector),
		Kind:           kind,
		Size:           domain.Size{Width: w, Height: h},
		Style:          extractStyle(rule),
		SourceSelector: rule.Selector,
		SourceFile:     rule.SourceFile,
	}
	if kind == domain.KindContainer {
		el.Layout = extractLayout(rule)
	}
	if pos, ok := rulePosition(rule); ok {
		el.Position = pos
	}
	return el
}

// SelectorID derives a stable element ID from a selector, or generates a
// UUID when nothing usable remains after sanitizing.
func SelectorID(selector string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(selector) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	id := strings.Trim(b.String(), "-")
	if id == "" {
		return uuid.New().String()
	}
	return id
}

// extractStyle maps retained declarations onto canvas style fields. The
// generator's emission table is the inverse of this one.
func extractStyle(rule domain.StyleRule) map[string]any {
	style := map[string]any{}
	rule.Properties.Each(func(prop, value string) {
		switch prop {
		case "background", "background-color":
			style["fill"] = value
		case "border":
			width, borderStyle, color := splitBorder(value)
			if width > 0 {
				style["strokeWidth"] = width
			}
			if borderStyle != "" {
				style["strokeStyle"] = borderStyle
			}
			if color != "" {
				style["stroke"] = color
			}
		case "border-color":
			style["stroke"] = value
		case "border-width":
			if px, ok := parsePx(value); ok {
				style["strokeWidth"] = px
			}
		case "border-style":
			style["strokeStyle"] = value
		case "border-radius":
			if px, ok := parsePx(value); ok {
				style["borderRadius"] = px
			} else {
				style["borderRadius"] = value
			}
		case "opacity":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				style["opacity"] = f
			}
		case "color":
			style["color"] = value
		case "font-family":
			style["fontFamily"] = value
		case "font-size":
			if px, ok := parsePx(value); ok {
				style["fontSize"] = px
			} else {
				style["fontSize"] = value
			}
		case "font-weight":
			style["fontWeight"] = value
		case "font-style":
			style["fontStyle"] = value
		case "line-height":
			style["lineHeight"] = value
		case "text-align":
			style["textAlign"] = value
		case "box-shadow":
			style["shadow"] = value
		case "text-shadow":
			style["textShadow"] = value
		case "transform":
			style["transform"] = value
		case "background-image":
			style["imageSource"] = value
		case "margin":
			style["margin"] = value
		case "padding":
			style["padding"] = value
		case "z-index":
			if n, err := strconv.Atoi(value); err == nil {
				style["zIndex"] = n
			}
		case "visibility":
			style["visibility"] = value
		case "overflow":
			style["overflow"] = value
		case "cursor":
			style["cursor"] = value
		case "clip-path":
			style["clipPath"] = value
		}
	})
	return style
}

// extractLayout reads flex/grid declarations off a container rule.
func extractLayout(rule domain.StyleRule) *domain.Layout {
	display, _ := rule.Properties.Get("display")
	lay := &domain.Layout{Kind: domain.LayoutFlex, Direction: "row"}
	if strings.Contains(display, "grid") {
		lay.Kind = domain.LayoutGrid
		lay.Direction = ""
		if v, ok := rule.Properties.Get("grid-template-columns"); ok {
			lay.Columns = countTracks(v)
		}
		if v, ok := rule.Properties.Get("grid-template-rows"); ok {
			lay.Rows = countTracks(v)
		}
		if v, ok := rule.Properties.Get("grid-gap"); ok {
			if px, ok := parsePx(v); ok {
				lay.Gap = px
			}
		}
	}
	if v, ok := rule.Properties.Get("flex-direction"); ok {
		lay.Direction = v
	}
	if v, ok := rule.Properties.Get("justify-content"); ok {
		lay.Justify = v
	}
	if v, ok := rule.Properties.Get("align-items"); ok {
		lay.Align = v
	}
	if v, ok := rule.Properties.Get("gap"); ok {
		if px, ok := parsePx(v); ok {
			lay.Gap = px
		}
	}
	return lay
}

// countTracks counts grid template tracks, expanding repeat(n, ...).
func countTracks(value string) int {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "repeat(") {
		inner := strings.TrimSuffix(strings.TrimPrefix(value, "repeat("), ")")
		if countStr, _, ok := strings.Cut(inner, ","); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(countStr)); err == nil {
				return n
			}
		}
		return 0
	}
	return len(strings.Fields(value))
}

func ruleSize(rule domain.StyleRule) (w, h float64) {
	if v, ok := rule.Properties.Get("width"); ok {
		if px, ok := parsePx(v); ok {
			w = px
		}
	}
	if v, ok := rule.Properties.Get("height"); ok {
		if px, ok := parsePx(v); ok {
			h = px
		}
	}
	return w, h
}

func rulePosition(rule domain.StyleRule) (domain.Position, bool) {
	pos, _ := rule.Properties.Get("position")
	if pos != "absolute" && pos != "fixed" {
		return domain.Position{}, false
	}
	var p domain.Position
	found := false
	if v, ok := rule.Properties.Get("left"); ok {
		if px, ok := parsePx(v); ok {
			p.X = px
			found = true
		}
	}
	if v, ok := rule.Properties.Get("top"); ok {
		if px, ok := parsePx(v); ok {
			p.Y = px
			found = true
		}
	}
	return p, found
}

// parsePx parses "12px", "12.5px" or a bare number. Percentages and other
// units are not canvas sizes.
func parsePx(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	value = strings.TrimSuffix(value, "px")
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// splitBorder unpacks a "width style color" border shorthand. Any of the
// three parts may be missing.
func splitBorder(value string) (width float64, style, color string) {
	for _, part := range strings.Fields(value) {
		if px, ok := parsePx(part); ok {
			width = px
			continue
		}
		switch part {
		case "solid", "dashed", "dotted", "double", "none":
			style = part
		default:
			if color == "" {
				color = part
			} else {
				color += " " + part
			}
		}
	}
	return width, style, color
}
