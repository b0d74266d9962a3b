package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/dic/compiler"
	"github.com/sghaida/dic/di"
)

func decode(t *testing.T, doc string) *File {
	t.Helper()
	f, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	return f
}

func quietCompiler(b *di.Builder, opts ...compiler.Option) *compiler.Compiler {
	l := log.New()
	l.SetOutput(io.Discard)
	return compiler.New(b, append([]compiler.Option{compiler.WithLogger(l)}, opts...)...)
}

// TestLoad_Testdata verifies every section of a full definition file.
func TestLoad_Testdata(t *testing.T) {
	t.Parallel()

	f, err := Load(filepath.Join("testdata", "services.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "app", f.Package)
	assert.Equal(t, []string{"property_injection", "Method-Injection"}, f.Extensions)

	b, err := f.Builder()
	require.NoError(t, err)

	t.Run("parameters", func(t *testing.T) {
		assert.Equal(t, []string{"mail.from", "mail.host", "mail.port"}, b.Params().Keys())
		assert.Equal(t, 2525, b.Params().MustGet("mail.port"))
		assert.Equal(t, "noreply@smtp.local", b.Params().Resolve(b.Params().MustGet("mail.from")))
	})

	t.Run("types", func(t *testing.T) {
		assert.Equal(t, []string{"app.Sender", "*app.Mailer", "*app.Logger", "*app.Newsletter"}, b.Types().Names())

		mailer, ok := b.Types().Lookup("*app.Mailer")
		require.True(t, ok)
		assert.Equal(t, "example.com/app", mailer.Import)
		assert.Equal(t, []string{"app.Sender"}, mailer.Implements)
		require.NotNil(t, mailer.Constructor)
		assert.Equal(t, "app.NewMailer", mailer.Constructor.Symbol)
		assert.True(t, mailer.Constructor.ReturnsError)
		assert.Equal(t, []di.Param{
			{Name: "host", Type: "string"},
			{Name: "port", HasDefault: true, Default: 25},
			{Name: "tls", HasDefault: true},
		}, mailer.Constructor.Params)

		assert.Equal(t, "SetLogger", mailer.Methods["SetLogger"].Symbol)
		assert.True(t, mailer.Methods["SetLogger"].Inject)
		assert.Equal(t, []di.Param{{Name: "l", Type: "*app.Logger"}}, mailer.Methods["SetLogger"].Params)
		assert.True(t, mailer.Methods["Use"].ReturnsError)
		assert.Equal(t, []di.Field{
			{Name: "From", Type: "string"},
			{Name: "Logger", Type: "*app.Logger", Inject: true},
		}, mailer.Fields)

		assert.True(t, b.Types().Assignable("*app.Mailer", "app.Sender"))
	})

	t.Run("functions", func(t *testing.T) {
		fn, ok := b.Types().Func("hooks.Register")
		require.True(t, ok)
		assert.Equal(t, "example.com/hooks", fn.Import)

		ctor, ok := b.Types().Func("app.NewMailer")
		require.True(t, ok)
		assert.Equal(t, "example.com/app", ctor.Import)
	})

	t.Run("services", func(t *testing.T) {
		assert.Equal(t, []string{"logger", "mailer", "newsletter", "sender", "report", "digest"}, b.Definitions().Keys())

		logger, _ := b.Definition("logger")
		assert.Equal(t, di.FuncFactory{Symbol: "app.NewLogger"}, logger.Factory())
		assert.True(t, logger.Shared())

		newsletter, _ := b.Definition("newsletter")
		assert.False(t, newsletter.Shared())
		assert.Nil(t, newsletter.Factory())

		mailer, _ := b.Definition("mailer")
		assert.Equal(t, []any{"%mail.host%", "%mail.port%"}, mailer.Arguments())
		require.Len(t, mailer.PropertySetters(), 1)
		assert.Equal(t, "From", mailer.PropertySetters()[0].Name())
		assert.Equal(t, "%mail.from%", mailer.PropertySetters()[0].Value())

		calls := mailer.MethodCalls()
		require.Len(t, calls, 2)
		assert.Equal(t, "Use", calls[0].Method())
		assert.Nil(t, calls[0].Target())
		assert.Equal(t, []any{"@literal", []any{1, di.Ref("logger")}}, calls[0].Arguments())
		assert.Equal(t, "Register", calls[1].Method())
		assert.Equal(t, "hooks", calls[1].Target())
		assert.Equal(t, []any{di.Ref("mailer")}, calls[1].Arguments())

		sender, _ := b.Definition("sender")
		assert.Equal(t, di.MethodOf("newsletter", "Sender"), sender.Factory())

		report, _ := b.Definition("report")
		assert.Equal(t, di.ServiceFactory{Service: di.Ref("mailer"), Method: "Report"}, report.Factory())

		digest, _ := b.Definition("digest")
		assert.Equal(t,
			di.MethodOf("mailer", "Digest", map[string]any{"level": di.Ref("logger")}),
			digest.Factory())
	})
}

// TestValue verifies the argument syntax.
func TestValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "plain", in: "text", want: "text"},
		{name: "number", in: 3, want: 3},
		{name: "nil", in: nil, want: nil},
		{name: "parameter", in: "%x%", want: "%x%"},
		{name: "ref", in: "@svc", want: di.Ref("svc")},
		{name: "method_ref", in: "@svc::Build", want: di.MethodOf("svc", "Build")},
		{name: "escaped", in: "@@svc", want: "@svc"},
		{name: "list", in: []any{"@a", 1}, want: []any{di.Ref("a"), 1}},
		{name: "map", in: map[string]any{"k": "@a"}, want: map[string]any{"k": di.Ref("a")}},
		{
			name: "method_ref_map",
			in:   map[string]any{"service": "@a", "method": "Open", "arguments": []any{"@b", "x"}},
			want: di.MethodOf("a", "Open", di.Ref("b"), "x"),
		},
		{
			name: "method_ref_map_bare_key",
			in:   map[string]any{"service": "a", "method": "Open"},
			want: di.MethodOf("a", "Open"),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Value(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestValue_Errors verifies malformed references are rejected.
func TestValue_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
	}{
		{name: "empty_ref", in: "@"},
		{name: "empty_method", in: "@svc::"},
		{name: "nested_empty_ref", in: []any{"ok", "@"}},
		{name: "map_missing_method", in: map[string]any{"service": "a"}},
		{name: "map_unknown_key", in: map[string]any{"service": "a", "method": "M", "extra": 1}},
		{name: "map_bad_arguments", in: map[string]any{"service": "a", "method": "M", "arguments": "x"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Value(tt.in)
			require.Error(t, err)
		})
	}
}

// TestDecode verifies strict decoding and empty documents.
func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		f := decode(t, "")
		assert.Empty(t, f.Services)
		assert.Empty(t, f.Package)
	})

	t.Run("unknown_top_level_key", func(t *testing.T) {
		t.Parallel()
		_, err := Decode(strings.NewReader("servises: {}\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "servises")
	})

	t.Run("unknown_service_key", func(t *testing.T) {
		t.Parallel()
		_, err := Decode(strings.NewReader("services:\n  a:\n    type: T\n    share: true\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "share")
	})

	t.Run("service_order", func(t *testing.T) {
		t.Parallel()
		f := decode(t, "services:\n  zeta: {type: T}\n  alpha: {type: T}\n  mid: {type: T}\n")
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, f.ServiceKeys())

		b, err := f.Builder()
		require.NoError(t, err)
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, b.Definitions().Keys())

		built := &File{Services: map[string]Service{"b": {Type: "T"}, "a": {Type: "T"}}}
		assert.Equal(t, []string{"a", "b"}, built.ServiceKeys())
	})

	t.Run("missing_file", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}

// TestApply_Errors verifies failures are wrapped with the offending entry and keep
// their kind.
func TestApply_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		prepare func(b *di.Builder)
		kind    error
		where   string
	}{
		{
			name:    "duplicate_parameter",
			doc:     "parameters:\n  Host: x\n",
			prepare: func(b *di.Builder) { b.Params().Set("host", "y") },
			kind:    di.ErrDuplicateKey,
			where:   `parameter "Host"`,
		},
		{
			name:  "duplicate_type",
			doc:   "types:\n  - name: T\n  - name: T\n",
			kind:  di.ErrDuplicateType,
			where: `type "T"`,
		},
		{
			name:  "empty_function",
			doc:   "functions:\n  - symbol: \"\"\n",
			kind:  di.ErrInvalidArgument,
			where: "function",
		},
		{
			name:    "duplicate_service",
			doc:     "services:\n  a: {type: T}\n",
			prepare: func(b *di.Builder) { b.MustRegister("a", "T") },
			kind:    di.ErrDuplicateDefinition,
			where:   `service "a"`,
		},
		{
			name:  "missing_type",
			doc:   "services:\n  a: {}\n",
			kind:  di.ErrInvalidArgument,
			where: `service "a"`,
		},
		{
			name:  "bad_factory",
			doc:   "services:\n  a: {type: T, factory: [x]}\n",
			kind:  di.ErrInvalidArgument,
			where: `service "a"`,
		},
		{
			name:  "bad_call",
			doc:   "services:\n  a: {type: T, calls: [{method: \"\"}]}\n",
			kind:  di.ErrInvalidArgument,
			where: `service "a"`,
		},
		{
			name:  "bad_call_target",
			doc:   "services:\n  a: {type: T, calls: [{method: M, target: \"@\"}]}\n",
			kind:  di.ErrInvalidArgument,
			where: `call "M"`,
		},
		{
			name:  "bad_property",
			doc:   "services:\n  a: {type: T, properties: [{name: \"\", value: 1}]}\n",
			kind:  di.ErrInvalidArgument,
			where: `service "a"`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := di.NewBuilder()
			if tt.prepare != nil {
				tt.prepare(b)
			}
			err := decode(t, tt.doc).Apply(b)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), err.Error())
			assert.Contains(t, err.Error(), tt.where)
		})
	}
}

// TestAttachExtensions verifies extension names are normalized and validated.
func TestAttachExtensions(t *testing.T) {
	t.Parallel()

	f := decode(t, "extensions: [method_injection, Property-Injection]\n")
	c := quietCompiler(di.NewBuilder())
	require.NoError(t, f.AttachExtensions(c))
	assert.Equal(t, []string{"methodinjection", "propertyinjection"}, c.Extensions())

	dup := decode(t, "extensions: [methodinjection, METHOD_INJECTION]\n")
	err := dup.AttachExtensions(quietCompiler(di.NewBuilder()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, di.ErrDuplicateExtension))

	unknown := decode(t, "extensions: [tracing]\n")
	err = unknown.AttachExtensions(quietCompiler(di.NewBuilder()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown extension "tracing"`)
}

// TestCompileFromFile verifies a decoded file compiles, including injected setters.
func TestCompileFromFile(t *testing.T) {
	t.Parallel()

	f := decode(t, `
parameters:
  host: smtp.local
types:
  - name: "*app.Logger"
    import: example.com/app
  - name: "*app.Mailer"
    import: example.com/app
    constructor:
      symbol: app.NewMailer
      params:
        - {name: host, type: string}
    fields:
      - {name: Logger, type: "*app.Logger", inject: true}
services:
  logger: {type: "*app.Logger"}
  mailer:
    type: "*app.Mailer"
    arguments: ["%host%"]
extensions: [property_injection]
`)
	b, err := f.Builder()
	require.NoError(t, err)

	c := quietCompiler(b, compiler.WithPackage("app"))
	require.NoError(t, f.AttachExtensions(c))

	src, err := c.Source("Container")
	require.NoError(t, err)
	out := string(src)
	assert.Contains(t, out, "package app")
	assert.Contains(t, out, "func (c *Container) MailerService() (*app.Mailer, error) {")
	assert.Contains(t, out, `app.NewMailer("smtp.local")`)
	assert.Contains(t, out, "service.Logger = dep1")
	assert.Equal(t, []string{"logger", "mailer"}, c.BuildOrder())
}
