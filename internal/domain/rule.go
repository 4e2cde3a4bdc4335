package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StyleRule is one parsed stylesheet rule: a selector, its declarations in
// source order, and the media condition it appeared under, if any.
// Rules are immutable once produced by the parser; a re-parse regenerates
// the whole set.
type StyleRule struct {
	Selector       string       `json:"selector"`
	Properties     Declarations `json:"properties"`
	Specificity    int          `json:"specificity"`
	MediaCondition string       `json:"mediaCondition,omitempty"`
	SourceFile     string       `json:"sourceFile,omitempty"`
}

// Declarations is an insertion-ordered property map. Order matters for
// shorthand/longhand override semantics, so a plain map won't do.
type Declarations struct {
	keys   []string
	values map[string]string
}

// NewDeclarations returns an empty ordered declaration set.
func NewDeclarations() Declarations {
	return Declarations{values: map[string]string{}}
}

// Set adds or overwrites a declaration. A re-declared property keeps its
// original position, matching how later declarations override earlier ones
// without reordering the block.
func (d *Declarations) Set(property, value string) {
	if d.values == nil {
		d.values = map[string]string{}
	}
	if _, ok := d.values[property]; !ok {
		d.keys = append(d.keys, property)
	}
	d.values[property] = value
}

// Get returns the value for property and whether it is present.
func (d Declarations) Get(property string) (string, bool) {
	v, ok := d.values[property]
	return v, ok
}

// Len returns the number of declarations.
func (d Declarations) Len() int { return len(d.keys) }

// Keys returns property names in insertion order.
func (d Declarations) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Each calls fn for every declaration in insertion order.
func (d Declarations) Each(fn func(property, value string)) {
	for _, k := range d.keys {
		fn(k, d.values[k])
	}
}

// Clone returns a deep copy.
func (d Declarations) Clone() Declarations {
	c := NewDeclarations()
	d.Each(c.Set)
	return c
}

// Equal reports whether two declaration sets hold the same properties and
// values, ignoring order.
func (d Declarations) Equal(other Declarations) bool {
	if len(d.values) != len(other.values) {
		return false
	}
	for k, v := range d.values {
		if ov, ok := other.values[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// MarshalJSON emits declarations as a JSON object in insertion order.
func (d Declarations) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object preserving key order.
func (d *Declarations) UnmarshalJSON(data []byte) error {
	*d = NewDeclarations()
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("declarations: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var val string
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("declarations: value for %q: %w", key, err)
		}
		d.Set(key, val)
	}
	_, err = dec.Token() // closing brace
	return err
}

// Specificity scores a selector the CSS way: IDs count 100, classes,
// attributes and pseudo-classes count 10, element names count 1. Used to
// decide which rule wins when several target the same element.
func Specificity(selector string) int {
	score := 0
	for _, part := range strings.FieldsFunc(selector, func(r rune) bool {
		return r == ' ' || r == '>' || r == '+' || r == '~' || r == ','
	}) {
		score += simpleSpecificity(part)
	}
	return score
}

func simpleSpecificity(part string) int {
	score := 0
	i := 0
	for i < len(part) {
		switch part[i] {
		case '#':
			score += 100
			i += tokenLen(part[i+1:]) + 1
		case '.', ':':
			// :: pseudo-elements score like pseudo-classes here; the
			// translation layer never distinguishes them.
			if part[i] == ':' && i+1 < len(part) && part[i+1] == ':' {
				i++
			}
			score += 10
			i += tokenLen(part[i+1:]) + 1
		case '[':
			end := strings.IndexByte(part[i:], ']')
			if end < 0 {
				return score
			}
			score += 10
			i += end + 1
		case '*':
			i++
		default:
			score++
			i += tokenLen(part[i:])
		}
	}
	return score
}

// tokenLen measures an identifier run starting at s[0].
func tokenLen(s string) int {
	n := 0
	for n < len(s) {
		c := s[n]
		if c == '#' || c == '.' || c == ':' || c == '[' || c == '*' {
			break
		}
		n++
	}
	if n == 0 {
		return 1
	}
	return n
}
