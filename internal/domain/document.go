package domain

import "time"

// ChangeOrigin records which side of the translation produced a document
// generation.
type ChangeOrigin string

const (
	OriginCSS    ChangeOrigin = "css"
	OriginCanvas ChangeOrigin = "canvas"
	OriginSystem ChangeOrigin = "system"
)

// CanvasSettings holds the drawing-surface configuration.
type CanvasSettings struct {
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	BackgroundColor string  `json:"backgroundColor"`
	Grid            bool    `json:"grid"`
}

// Layer groups elements for stacking and visibility control.
type Layer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
}

// PaletteEntry is one named color with a usage hint (fill, stroke, text).
type PaletteEntry struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Usage string `json:"usage"`
}

// DesignTokens are the reusable values extracted from the stylesheet.
type DesignTokens struct {
	Spacing    []float64         `json:"spacing,omitempty"`
	Colors     map[string]string `json:"colors,omitempty"`
	Typography map[string]string `json:"typography,omitempty"`
}

// DocumentMeta tracks the provenance of the current document generation.
type DocumentMeta struct {
	Version     int          `json:"version"`
	LastUpdated time.Time    `json:"lastUpdated"`
	UpdatedFrom ChangeOrigin `json:"updatedFrom"`
	ChangeType  string       `json:"changeType"`
}

// CanvasDocument is the single authoritative design state. All mutations go
// through the sync coordinator, which bumps Meta on every commit. Elements
// keep insertion order across writes.
type CanvasDocument struct {
	Canvas   CanvasSettings  `json:"canvas"`
	Layers   []Layer         `json:"layers"`
	Elements []CanvasElement `json:"elements"`
	Palette  []PaletteEntry  `json:"colorPalette"`
	Tokens   DesignTokens    `json:"designTokens"`
	Meta     DocumentMeta    `json:"metadata"`
}

// NewCanvasDocument returns a minimal valid document: one default layer, a
// white 1280x800 canvas, no elements.
func NewCanvasDocument() *CanvasDocument {
	return &CanvasDocument{
		Canvas: CanvasSettings{
			Width:           1280,
			Height:          800,
			BackgroundColor: "#ffffff",
			Grid:            true,
		},
		Layers: []Layer{{ID: "default", Name: "Default", Visible: true}},
		Meta: DocumentMeta{
			Version:     1,
			LastUpdated: time.Now(),
			UpdatedFrom: OriginSystem,
			ChangeType:  "init",
		},
	}
}

// Validate checks the structural invariants a persisted document must hold:
// unique element IDs, at most one element per source selector, at least one
// layer.
func (d *CanvasDocument) Validate() error {
	if len(d.Layers) == 0 {
		return errNoLayers
	}
	ids := make(map[string]struct{}, len(d.Elements))
	selectors := make(map[string]struct{}, len(d.Elements))
	for i := range d.Elements {
		el := &d.Elements[i]
		if el.ID == "" {
			return &InvalidDocumentError{Reason: "element without id"}
		}
		if _, dup := ids[el.ID]; dup {
			return &InvalidDocumentError{Reason: "duplicate element id " + el.ID}
		}
		ids[el.ID] = struct{}{}
		if el.SourceSelector != "" {
			if _, dup := selectors[el.SourceSelector]; dup {
				return &InvalidDocumentError{Reason: "duplicate source selector " + el.SourceSelector}
			}
			selectors[el.SourceSelector] = struct{}{}
		}
	}
	return nil
}

// FindBySelector returns the element with the given source selector, or nil.
func (d *CanvasDocument) FindBySelector(selector string) *CanvasElement {
	for i := range d.Elements {
		if d.Elements[i].SourceSelector == selector {
			return &d.Elements[i]
		}
	}
	return nil
}

// FindByID returns the element with the given ID, or nil.
func (d *CanvasDocument) FindByID(id string) *CanvasElement {
	for i := range d.Elements {
		if d.Elements[i].ID == id {
			return &d.Elements[i]
		}
	}
	return nil
}

// InvalidDocumentError marks a persisted document that fails validation.
// The loader backs the file up and starts from a default document instead
// of failing startup.
type InvalidDocumentError struct {
	Reason string
}

func (e *InvalidDocumentError) Error() string {
	return "invalid canvas document: " + e.Reason
}

var errNoLayers = &InvalidDocumentError{Reason: "no layers"}
