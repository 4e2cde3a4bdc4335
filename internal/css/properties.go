package css

import "strings"

// supportedProperties is the fixed translation allow-list. Declarations
// outside it are parsed but not retained on the rule. Not configurable at
// runtime.
var supportedProperties = map[string]struct{}{
	// box model
	"width": {}, "height": {},
	"min-width": {}, "min-height": {},
	"max-width": {}, "max-height": {},
	"box-sizing": {}, "display": {},
	// background
	"background": {}, "background-color": {}, "background-image": {},
	"background-size": {}, "background-position": {}, "background-repeat": {},
	// border
	"border": {}, "border-width": {}, "border-style": {}, "border-color": {},
	"border-top": {}, "border-right": {}, "border-bottom": {}, "border-left": {},
	"border-radius": {},
	// text
	"color": {}, "font": {}, "font-family": {}, "font-size": {},
	"font-weight": {}, "font-style": {}, "line-height": {}, "text-align": {},
	// spacing
	"margin": {}, "margin-top": {}, "margin-right": {}, "margin-bottom": {}, "margin-left": {},
	"padding": {}, "padding-top": {}, "padding-right": {}, "padding-bottom": {}, "padding-left": {},
	"gap": {},
	// flex
	"flex": {}, "flex-direction": {}, "flex-wrap": {}, "flex-grow": {},
	"flex-shrink": {}, "flex-basis": {},
	"justify-content": {}, "align-items": {}, "align-content": {}, "align-self": {},
	// grid
	"grid-template-columns": {}, "grid-template-rows": {}, "grid-gap": {},
	"grid-column": {}, "grid-row": {}, "grid-area": {},
	// positioning
	"position": {}, "top": {}, "right": {}, "bottom": {}, "left": {}, "z-index": {},
	// effects
	"transform": {}, "transition": {}, "animation": {},
	"box-shadow": {}, "text-shadow": {}, "opacity": {},
	"visibility": {}, "overflow": {}, "cursor": {},
	"clip-path": {},
}

// visualPrefixes gates rule retention: a rule becomes a canvas element only
// if at least one declaration matches. Structural-only rules (resets,
// cursor tweaks, transitions) stay out of the canvas.
var visualPrefixes = []string{
	"background",
	"border",
	"color",
	"font",
	"box-shadow",
	"text-shadow",
	"transform",
	"opacity",
	"width",
	"height",
}

// IsSupported reports whether property is in the translation allow-list.
func IsSupported(property string) bool {
	_, ok := supportedProperties[strings.ToLower(property)]
	return ok
}

// isVisual reports whether property alone justifies keeping a rule on the
// canvas.
func isVisual(property string) bool {
	property = strings.ToLower(property)
	for _, p := range visualPrefixes {
		if property == p || strings.HasPrefix(property, p+"-") {
			return true
		}
	}
	return false
}
