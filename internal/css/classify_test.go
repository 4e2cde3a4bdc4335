package css_test

import (
	"testing"

	"stylecanvas/internal/css"
	"stylecanvas/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Classification tests
// ─────────────────────────────────────────────────────────────

func ruleWith(selector string, props ...string) domain.StyleRule {
	d := domain.NewDeclarations()
	for i := 0; i+1 < len(props); i += 2 {
		d.Set(props[i], props[i+1])
	}
	return domain.StyleRule{Selector: selector, Properties: d}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		rule domain.StyleRule
		want domain.ElementKind
	}{
		{"flex container", ruleWith(".c", "display", "flex"), domain.KindContainer},
		{"grid container", ruleWith(".c", "display", "grid"), domain.KindContainer},
		{"circle", ruleWith(".c", "border-radius", "50%", "width", "40px", "height", "40px"), domain.KindCircle},
		{"partial radius is not a circle", ruleWith(".c", "border-radius", "8px", "width", "40px", "height", "40px"), domain.KindRectangle},
		{"image", ruleWith(".c", "background-image", "url(x.png)"), domain.KindImage},
		{"horizontal line", ruleWith(".c", "width", "200px", "height", "2px"), domain.KindLine},
		{"vertical line", ruleWith(".c", "width", "3px", "height", "100px"), domain.KindLine},
		{"too thick for a line", ruleWith(".c", "width", "200px", "height", "5px"), domain.KindRectangle},
		{"text", ruleWith(".c", "font-size", "16px", "color", "#333"), domain.KindText},
		{"default rectangle", ruleWith(".c", "background", "red"), domain.KindRectangle},
		// display wins over every later row of the table
		{"container beats circle", ruleWith(".c", "display", "flex", "border-radius", "50%"), domain.KindContainer},
		// radius wins over image
		{"circle beats image", ruleWith(".c", "border-radius", "50%", "background-image", "url(x)"), domain.KindCircle},
	}
	for _, tc := range cases {
		if got := css.Classify(tc.rule); got != tc.want {
			t.Errorf("%s: Classify = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestRuleToElement_Defaults(t *testing.T) {
	el := css.RuleToElement(ruleWith(".box", "background", "red"))
	if el.Size.Width != 100 || el.Size.Height != 100 {
		t.Errorf("size = %+v, want 100x100", el.Size)
	}
	if el.SourceSelector != ".box" {
		t.Errorf("sourceSelector = %q", el.SourceSelector)
	}
	if el.ID != "box" {
		t.Errorf("id = %q, want box", el.ID)
	}
	if el.Style["fill"] != "red" {
		t.Errorf("fill = %v", el.Style["fill"])
	}
}

func TestRuleToElement_AbsolutePosition(t *testing.T) {
	el := css.RuleToElement(ruleWith(".box",
		"background", "red", "position", "absolute", "left", "20px", "top", "30px"))
	if el.Position.X != 20 || el.Position.Y != 30 {
		t.Errorf("position = %+v, want {20 30}", el.Position)
	}

	static := css.RuleToElement(ruleWith(".box", "background", "red", "left", "20px"))
	if static.Position.X != 0 {
		t.Errorf("left without position: absolute should be ignored, got %+v", static.Position)
	}
}

func TestRuleToElement_BorderShorthand(t *testing.T) {
	el := css.RuleToElement(ruleWith(".box", "border", "2px solid #000", "width", "50px"))
	if el.Style["strokeWidth"] != 2.0 {
		t.Errorf("strokeWidth = %v", el.Style["strokeWidth"])
	}
	if el.Style["strokeStyle"] != "solid" {
		t.Errorf("strokeStyle = %v", el.Style["strokeStyle"])
	}
	if el.Style["stroke"] != "#000" {
		t.Errorf("stroke = %v", el.Style["stroke"])
	}
}

func TestRuleToElement_ContainerLayout(t *testing.T) {
	el := css.RuleToElement(ruleWith(".row",
		"display", "flex", "flex-direction", "column", "justify-content", "center", "gap", "12px"))
	if el.Layout == nil {
		t.Fatal("container should carry a layout")
	}
	if el.Layout.Kind != domain.LayoutFlex || el.Layout.Direction != "column" {
		t.Errorf("layout = %+v", el.Layout)
	}
	if el.Layout.Gap != 12 {
		t.Errorf("gap = %v, want 12", el.Layout.Gap)
	}

	grid := css.RuleToElement(ruleWith(".grid",
		"display", "grid", "grid-template-columns", "repeat(3, 1fr)", "grid-gap", "8px"))
	if grid.Layout == nil || grid.Layout.Kind != domain.LayoutGrid {
		t.Fatalf("layout = %+v", grid.Layout)
	}
	if grid.Layout.Columns != 3 {
		t.Errorf("columns = %d, want 3", grid.Layout.Columns)
	}
}

func TestSelectorID(t *testing.T) {
	cases := []struct {
		selector string
		want     string
	}{
		{".hero-banner", "hero-banner"},
		{"#nav .item", "nav-item"},
		{".Card:hover", "card-hover"},
	}
	for _, tc := range cases {
		if got := css.SelectorID(tc.selector); got != tc.want {
			t.Errorf("SelectorID(%q) = %q, want %q", tc.selector, got, tc.want)
		}
	}
	// Nothing sanitizable left: a generated UUID still yields a non-empty ID.
	if css.SelectorID("***") == "" {
		t.Error("expected generated id for unsanitizable selector")
	}
}
