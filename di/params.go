package di

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	tokenRe       = regexp.MustCompile(`%([^%\s]+)%`)
	placeholderRe = regexp.MustCompile(`^%([^%\s]+)%$`)
)

// Parameters is the named parameter store shared by every service definition.
//
// Keys are case-insensitive: they are trimmed and lower-cased on the way in and on
// every lookup. Values are arbitrary and are substituted into string arguments that
// carry %name% tokens.
type Parameters struct {
	items map[string]any
}

// NewParameters returns an empty store.
func NewParameters() *Parameters {
	return &Parameters{items: map[string]any{}}
}

// NewParametersFrom builds a store from m using Add semantics.
func NewParametersFrom(m map[string]any) (*Parameters, error) {
	p := NewParameters()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := p.Add(k, m[k]); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ParametersOf copies a snapshot produced by All into a new store. Generated
// containers use it to rebuild their compiled parameters.
func ParametersOf(m map[string]any) *Parameters {
	p := NewParameters()
	for k, v := range m {
		p.Set(k, v)
	}
	return p
}

// NormalizeKey returns the canonical form of a parameter or service key.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Add stores v under key. It fails if key is empty or already present.
func (p *Parameters) Add(key string, v any) error {
	k := NormalizeKey(key)
	if k == "" {
		return invalid("parameter key", "must not be empty")
	}
	if _, exists := p.items[k]; exists {
		return DuplicateKeyError{Key: k}
	}
	p.items[k] = v
	return nil
}

// Set stores v under key, overwriting any previous value, and returns the store for chaining.
// It panics with an InvalidArgumentError when key is empty.
func (p *Parameters) Set(key string, v any) *Parameters {
	k := NormalizeKey(key)
	if k == "" {
		panic(invalid("parameter key", "must not be empty"))
	}
	p.items[k] = v
	return p
}

// Get returns the value stored under key.
func (p *Parameters) Get(key string) (any, bool) {
	v, ok := p.items[NormalizeKey(key)]
	return v, ok
}

// MustGet returns the value or panics with a helpful message.
// Useful in examples/tests where missing parameters should fail fast.
func (p *Parameters) MustGet(key string) any {
	v, ok := p.Get(key)
	if !ok {
		panic(fmt.Errorf("di: parameter %q is not set", NormalizeKey(key)))
	}
	return v
}

// Has reports whether key is stored.
func (p *Parameters) Has(key string) bool {
	_, ok := p.items[NormalizeKey(key)]
	return ok
}

// Len returns the number of stored parameters.
func (p *Parameters) Len() int { return len(p.items) }

// Keys returns the stored keys in sorted order.
func (p *Parameters) Keys() []string {
	out := make([]string, 0, len(p.items))
	for k := range p.items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// All returns a snapshot copy of the store.
func (p *Parameters) All() map[string]any {
	out := make(map[string]any, len(p.items))
	for k, v := range p.items {
		out[k] = v
	}
	return out
}

// Placeholder reports whether text is exactly one %name% token and returns the
// normalized name. The name does not have to be stored.
func (p *Parameters) Placeholder(text string) (string, bool) {
	m := placeholderRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return NormalizeKey(m[1]), true
}

// Segment is one piece of a string split around %name% tokens. Exactly one of
// Literal or Key is meaningful: Key is set for a token naming a stored parameter.
type Segment struct {
	Literal string
	Key     string
	Value   any
}

// IsParam reports whether the segment refers to a stored parameter.
func (s Segment) IsParam() bool { return s.Key != "" }

// Segments splits text into literal runs and stored-parameter tokens, left to right.
// Tokens naming unknown parameters are kept as literal text.
func (p *Parameters) Segments(text string) []Segment {
	var out []Segment
	lit := func(s string) {
		if s == "" {
			return
		}
		if n := len(out); n > 0 && !out[n-1].IsParam() {
			out[n-1].Literal += s
			return
		}
		out = append(out, Segment{Literal: s})
	}

	pos := 0
	for _, m := range tokenRe.FindAllStringSubmatchIndex(text, -1) {
		key := NormalizeKey(text[m[2]:m[3]])
		v, ok := p.items[key]
		if !ok {
			continue
		}
		lit(text[pos:m[0]])
		out = append(out, Segment{Key: key, Value: v})
		pos = m[1]
	}
	lit(text[pos:])
	return out
}

// Contains reports whether text carries at least one token naming a stored parameter.
func (p *Parameters) Contains(text string) bool {
	for _, s := range p.Segments(text) {
		if s.IsParam() {
			return true
		}
	}
	return false
}

// Resolve substitutes parameters into v.
//
// Non-string values are returned unchanged. A string that is exactly %name% for a
// stored name yields the stored value itself, whatever its type. Any other string has
// each stored token replaced by the textual form of its value; unknown tokens are left
// as they are.
func (p *Parameters) Resolve(v any) any {
	text, ok := v.(string)
	if !ok {
		return v
	}
	if key, ok := p.Placeholder(text); ok {
		if stored, ok := p.items[key]; ok {
			return stored
		}
		return text
	}
	segs := p.Segments(text)
	if len(segs) == 1 && !segs[0].IsParam() {
		return text
	}
	var sb strings.Builder
	for _, s := range segs {
		if s.IsParam() {
			sb.WriteString(fmt.Sprint(s.Value))
			continue
		}
		sb.WriteString(s.Literal)
	}
	return sb.String()
}
