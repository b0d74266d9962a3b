package di

import (
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//
// -----------------------------------------------------------------------------
// Add / Set / Get
// -----------------------------------------------------------------------------

// TestParameters_AddRejectsDuplicates verifies keys are unique regardless of case.
func TestParameters_AddRejectsDuplicates(t *testing.T) {
	t.Parallel()

	p := NewParameters()
	require.NoError(t, p.Add("DB.Host", "localhost"))

	err := p.Add("db.host", "other")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateKey))

	var dk DuplicateKeyError
	require.True(t, errors.As(err, &dk))
	assert.Equal(t, "db.host", dk.Key)
	assert.Equal(t, `di: duplicate parameter key "db.host"`, err.Error())

	got, ok := p.Get("DB.HOST")
	require.True(t, ok)
	assert.Equal(t, "localhost", got)
}

// TestParameters_AddRejectsEmptyKey verifies empty keys are invalid arguments.
func TestParameters_AddRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	err := NewParameters().Add("  ", 1)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

// TestParameters_SetOverwritesAndChains verifies Set is unconditional and chainable.
func TestParameters_SetOverwritesAndChains(t *testing.T) {
	t.Parallel()

	p := NewParameters()
	ret := p.Set("a", 1).Set("A", 2).Set("b", "x")
	require.Same(t, p, ret)

	assert.Equal(t, 2, p.MustGet("a"))
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []string{"a", "b"}, p.Keys())
	assert.True(t, p.Has("B"))
	assert.False(t, p.Has("c"))
}

// TestParameters_SetPanicsOnEmptyKey verifies Set fails fast on an empty key.
func TestParameters_SetPanicsOnEmptyKey(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewParameters().Set("", 1) })
}

// TestParameters_MustGetPanicsOnMissing verifies MustGet panics for missing keys.
func TestParameters_MustGetPanicsOnMissing(t *testing.T) {
	t.Parallel()

	assert.PanicsWithError(t, `di: parameter "nope" is not set`, func() { NewParameters().MustGet("NOPE") })
}

// TestParameters_AllIsACopy verifies All returns a snapshot that does not alias the store.
func TestParameters_AllIsACopy(t *testing.T) {
	t.Parallel()

	p := NewParameters().Set("a", 1)
	snap := p.All()
	snap["a"] = 99
	snap["b"] = 2

	assert.Equal(t, 1, p.MustGet("a"))
	assert.False(t, p.Has("b"))
}

// TestNewParametersFrom_Duplicates verifies keys colliding after normalization fail.
func TestNewParametersFrom_Duplicates(t *testing.T) {
	t.Parallel()

	_, err := NewParametersFrom(map[string]any{"Port": 1, "port": 2})
	assert.True(t, errors.Is(err, ErrDuplicateKey))

	p, err := NewParametersFrom(map[string]any{"Port": 1, "host": "h"})
	require.NoError(t, err)
	assert.Equal(t, 1, p.MustGet("port"))
}

//
// -----------------------------------------------------------------------------
// Placeholder / Segments / Resolve
// -----------------------------------------------------------------------------

// TestParameters_Placeholder verifies the anchored %name% check.
func TestParameters_Placeholder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		wantKey string
		wantOK  bool
	}{
		{in: "%a%", wantKey: "a", wantOK: true},
		{in: "%Mail.From%", wantKey: "mail.from", wantOK: true},
		{in: "x%a%", wantOK: false},
		{in: "%a%x", wantOK: false},
		{in: "%a b%", wantOK: false},
		{in: "%%", wantOK: false},
		{in: "a", wantOK: false},
	}

	p := NewParameters()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			key, ok := p.Placeholder(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

// TestParameters_Resolve covers raw placeholder values, interpolation and passthrough.
func TestParameters_Resolve(t *testing.T) {
	t.Parallel()

	p := NewParameters().Set("x", 5).Set("host", "smtp.local").Set("flags", []string{"a"})

	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "exact_placeholder_keeps_type", in: "%x%", want: 5},
		{name: "exact_placeholder_slice", in: "%flags%", want: []string{"a"}},
		{name: "embedded_int", in: "prefix-%x%-suffix", want: "prefix-5-suffix"},
		{name: "two_tokens", in: "%host%:%x%", want: "smtp.local:5"},
		{name: "case_insensitive_token", in: "%HOST%", want: "smtp.local"},
		{name: "unknown_placeholder_passthrough", in: "%missing%", want: "%missing%"},
		{name: "unknown_embedded_passthrough", in: "a-%missing%-%x%", want: "a-%missing%-5"},
		{name: "no_tokens", in: "plain", want: "plain"},
		{name: "empty", in: "", want: ""},
		{name: "non_string", in: 42, want: 42},
		{name: "nil", in: nil, want: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.Resolve(tt.in))
		})
	}
}

// TestParameters_Segments verifies literal runs are merged around unknown tokens.
func TestParameters_Segments(t *testing.T) {
	t.Parallel()

	p := NewParameters().Set("x", 5)
	segs := p.Segments("a%nope%b%x%c")

	require.Len(t, segs, 3)
	assert.Equal(t, Segment{Literal: "a%nope%b"}, segs[0])
	assert.Equal(t, Segment{Key: "x", Value: 5}, segs[1])
	assert.Equal(t, Segment{Literal: "c"}, segs[2])
	assert.True(t, p.Contains("a%x%"))
	assert.False(t, p.Contains("a%y%"))
}

//
// -----------------------------------------------------------------------------
// Properties
// -----------------------------------------------------------------------------

// TestParameters_ResolveProperties checks interpolation laws over generated inputs.
func TestParameters_ResolveProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("exact placeholder yields the stored value", prop.ForAll(
		func(key string, v int) bool {
			p := NewParameters().Set(key, v)
			return p.Resolve("%"+key+"%") == v
		},
		gen.Identifier(),
		gen.Int(),
	))

	properties.Property("embedded placeholder is spliced between prefix and suffix", prop.ForAll(
		func(key, value, prefix, suffix string) bool {
			p := NewParameters().Set(key, value)
			got := p.Resolve(prefix + "-%" + key + "%-" + suffix)
			return got == prefix+"-"+value+"-"+suffix
		},
		gen.Identifier(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("keys are case-insensitive", prop.ForAll(
		func(key string) bool {
			p := NewParameters().Set(key, true)
			return p.Has(strings.ToUpper(key)) && p.Has(strings.ToLower(key))
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
