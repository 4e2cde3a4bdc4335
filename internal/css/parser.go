package css

import (
	"regexp"
	"strings"

	"stylecanvas/internal/domain"
)

// ParseWarning records a malformed or unsupported fragment the parser
// skipped. Skipping is always recoverable: the remaining rules still parse.
type ParseWarning struct {
	Fragment string `json:"fragment"`
	Reason   string `json:"reason"`
}

// ParseResult is the outcome of one parse pass over a stylesheet.
type ParseResult struct {
	Rules    []domain.StyleRule
	Warnings []ParseWarning
}

// maxNestDepth bounds SCSS-style nesting. Deeper trees are skipped with a
// warning instead of recursing without limit.
const maxNestDepth = 8

// Parse turns stylesheet text into an ordered rule list. It never fails:
// unparseable fragments become warnings and the rest of the sheet still
// translates. Custom properties are substituted textually before rule
// extraction, first definition wins.
func Parse(text, sourceFile string) *ParseResult {
	res := &ParseResult{}
	text = stripComments(text)
	text = substituteVariables(text)

	for _, blk := range scanBlocks(text, res) {
		parseBlock(blk, "", sourceFile, res, 0)
	}
	return res
}

// block is one brace-delimited unit found by the scanner: the text before
// the opening brace and the balanced body inside it.
type block struct {
	prelude string
	body    string
}

// scanBlocks extracts top-level blocks with an explicit brace-depth counter.
// Regex brace matching only survives one nesting level; at-rules and nested
// selectors need real depth tracking.
func scanBlocks(text string, res *ParseResult) []block {
	var blocks []block
	var prelude strings.Builder
	start := -1
	depth := 0

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '{':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case '}':
			depth--
			if depth == 0 {
				blocks = append(blocks, block{
					prelude: strings.TrimSpace(prelude.String()),
					body:    text[start:i],
				})
				prelude.Reset()
			}
			if depth < 0 {
				// Stray closing brace: resynchronize and keep going.
				depth = 0
			}
		case ';':
			if depth == 0 {
				// Braceless at-statement (@import, @charset) or stray text.
				stmt := strings.TrimSpace(prelude.String())
				if stmt != "" && !strings.HasPrefix(stmt, "@") {
					res.Warnings = append(res.Warnings, ParseWarning{
						Fragment: clip(stmt), Reason: "declaration outside a rule block",
					})
				}
				prelude.Reset()
			}
		default:
			if depth == 0 {
				prelude.WriteByte(c)
			}
		}
	}

	if depth > 0 {
		res.Warnings = append(res.Warnings, ParseWarning{
			Fragment: clip(strings.TrimSpace(text[start:])),
			Reason:   "unclosed block",
		})
	}
	if leftover := strings.TrimSpace(prelude.String()); leftover != "" && depth == 0 {
		res.Warnings = append(res.Warnings, ParseWarning{
			Fragment: clip(leftover), Reason: "text after last rule",
		})
	}
	return blocks
}

// parseBlock dispatches one scanned block: media recursion, at-rule skip, or
// selector rule (possibly nested).
func parseBlock(blk block, media, sourceFile string, res *ParseResult, depth int) {
	switch {
	case blk.prelude == "":
		res.Warnings = append(res.Warnings, ParseWarning{
			Fragment: clip(blk.body), Reason: "block without selector",
		})
	case strings.HasPrefix(blk.prelude, "@media"):
		condition := strings.TrimSpace(strings.TrimPrefix(blk.prelude, "@media"))
		if media != "" {
			// Nested media conditions combine conjunctively.
			condition = media + " and " + condition
		}
		for _, inner := range scanBlocks(blk.body, res) {
			parseBlock(inner, condition, sourceFile, res, depth)
		}
	case strings.HasPrefix(blk.prelude, "@"):
		// @keyframes, @font-face, @supports and friends have no canvas
		// representation.
	default:
		for _, selector := range splitSelectors(blk.prelude) {
			parseRuleBody(selector, blk.body, media, sourceFile, res, depth)
		}
	}
}

// parseRuleBody parses the declarations of one rule and recursively flattens
// nested blocks using selector combination: "&" substitutes the parent, a
// leading ":" concatenates, anything else becomes a descendant selector.
func parseRuleBody(selector, body, media, sourceFile string, res *ParseResult, depth int) {
	if depth > maxNestDepth {
		res.Warnings = append(res.Warnings, ParseWarning{
			Fragment: clip(selector), Reason: "nesting too deep",
		})
		return
	}

	var declText strings.Builder
	var segment strings.Builder

	i := 0
	for i < len(body) {
		c := body[i]
		if c != '{' {
			segment.WriteByte(c)
			i++
			continue
		}

		// Text since the last ';' is the nested selector; everything before
		// it belongs to this rule's declarations.
		nested := segment.String()
		cut := strings.LastIndexByte(nested, ';')
		if cut >= 0 {
			declText.WriteString(nested[:cut+1])
			nested = nested[cut+1:]
		}
		nestedSelector := strings.TrimSpace(nested)
		segment.Reset()

		end, ok := matchBrace(body, i)
		if !ok {
			res.Warnings = append(res.Warnings, ParseWarning{
				Fragment: clip(nestedSelector), Reason: "unclosed nested block",
			})
			break
		}
		inner := body[i+1 : end]
		if strings.HasPrefix(nestedSelector, "@") {
			res.Warnings = append(res.Warnings, ParseWarning{
				Fragment: clip(nestedSelector), Reason: "nested at-rule skipped",
			})
		} else if nestedSelector != "" {
			for _, sub := range splitSelectors(nestedSelector) {
				parseRuleBody(combineSelectors(selector, sub), inner, media, sourceFile, res, depth+1)
			}
		}
		i = end + 1
	}
	declText.WriteString(segment.String())

	decls, kept := parseDeclarations(declText.String(), res)
	if !kept {
		return
	}
	res.Rules = append(res.Rules, domain.StyleRule{
		Selector:       selector,
		Properties:     decls,
		Specificity:    domain.Specificity(selector),
		MediaCondition: media,
		SourceFile:     sourceFile,
	})
}

// matchBrace returns the index of the brace closing body[open], or false if
// the block never closes.
func matchBrace(body string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(body); i++ {
		switch body[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// parseDeclarations parses "prop: value;" pairs. The returned flag reports
// whether the declarations qualify the rule for canvas retention: at least
// one visual property must be present, and only allow-listed properties are
// kept.
func parseDeclarations(text string, res *ParseResult) (domain.Declarations, bool) {
	decls := domain.NewDeclarations()
	visual := false

	for _, raw := range strings.Split(text, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		prop, value, found := strings.Cut(raw, ":")
		if !found {
			res.Warnings = append(res.Warnings, ParseWarning{
				Fragment: clip(raw), Reason: "declaration without colon",
			})
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if prop == "" || value == "" {
			res.Warnings = append(res.Warnings, ParseWarning{
				Fragment: clip(raw), Reason: "empty property or value",
			})
			continue
		}
		if strings.HasPrefix(prop, "--") {
			// Custom properties were substituted before rule extraction.
			continue
		}
		if !IsSupported(prop) {
			continue
		}
		if isVisual(prop) {
			visual = true
		}
		decls.Set(prop, value)
	}
	return decls, visual && decls.Len() > 0
}

// combineSelectors flattens one nesting level.
func combineSelectors(parent, child string) string {
	switch {
	case strings.Contains(child, "&"):
		return strings.ReplaceAll(child, "&", parent)
	case strings.HasPrefix(child, ":"):
		return parent + child
	default:
		return parent + " " + child
	}
}

// splitSelectors splits a grouped selector on top-level commas. Each part
// becomes its own rule so provenance stays one selector per element.
func splitSelectors(prelude string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(prelude); i++ {
		switch prelude[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				if s := normalizeSelector(prelude[start:i]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := normalizeSelector(prelude[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// normalizeSelector collapses internal whitespace runs to single spaces.
func normalizeSelector(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ── preprocessing ──────────────────────────────────────────

var (
	customPropRe = regexp.MustCompile(`--([a-zA-Z0-9_-]+)\s*:\s*([^;}]+)`)
	varRefRe     = regexp.MustCompile(`var\(\s*--([a-zA-Z0-9_-]+)\s*(?:,\s*([^()]*))?\)`)
)

// substituteVariables resolves var(--name) references textually before rule
// extraction. Redefinitions are not scoped: the first definition wins.
// Unresolvable references fall back to the declared fallback, or stay
// untouched when there is none.
func substituteVariables(text string) string {
	vars := map[string]string{}
	for _, m := range customPropRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if _, seen := vars[name]; !seen {
			vars[name] = strings.TrimSpace(m[2])
		}
	}
	if len(vars) == 0 {
		return text
	}
	// Values may themselves reference other variables; two passes cover the
	// depth seen in practice without risking substitution cycles.
	for pass := 0; pass < 2; pass++ {
		text = varRefRe.ReplaceAllStringFunc(text, func(ref string) string {
			m := varRefRe.FindStringSubmatch(ref)
			if v, ok := vars[m[1]]; ok {
				return v
			}
			if m[2] != "" {
				return strings.TrimSpace(m[2])
			}
			return ref
		})
	}
	return text
}

// stripComments removes /* ... */ runs. An unterminated comment swallows the
// rest of the sheet, matching how browsers recover.
func stripComments(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '/' && i+1 < len(text) && text[i+1] == '*' {
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				break
			}
			i += end + 3
			continue
		}
		b.WriteByte(text[i])
	}
	return b.String()
}

// clip bounds warning fragments so log lines stay readable.
func clip(s string) string {
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}
