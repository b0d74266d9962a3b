// Package compiler turns a di.Builder's service definitions into the source of a
// concrete container type with one accessor method per service.
//
// The generated container embeds *di.Container, caches shared services on first
// construction and never walks the definition graph at run time.
package compiler

import (
	"go/token"

	log "github.com/sirupsen/logrus"

	"github.com/sghaida/dic/codegen"
	"github.com/sghaida/dic/di"
)

// DefaultRuntimeImport is the import path of the runtime package generated code uses.
const DefaultRuntimeImport = "github.com/sghaida/dic/di"

// Compiler emits container source for the definitions of a builder.
type Compiler struct {
	builder    *di.Builder
	pkg        string
	runtime    string
	header     []string
	printer    codegen.Printer
	log        log.FieldLogger
	extensions []namedExtension
	order      []string
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithPackage sets the package clause of generated files. Default "main".
func WithPackage(name string) Option {
	return func(c *Compiler) { c.pkg = name }
}

// WithRuntimeImport overrides the import path of the di runtime package.
func WithRuntimeImport(path string) Option {
	return func(c *Compiler) { c.runtime = path }
}

// WithHeader adds comment lines after the "Code generated" line.
func WithHeader(lines ...string) Option {
	return func(c *Compiler) { c.header = append(c.header, lines...) }
}

// WithPrinter replaces the default go/format based printer.
func WithPrinter(p codegen.Printer) Option {
	return func(c *Compiler) { c.printer = p }
}

// WithLogger sets the logger. Default is the logrus standard logger.
func WithLogger(l log.FieldLogger) Option {
	return func(c *Compiler) { c.log = l }
}

// New returns a compiler for the definitions registered on b.
func New(b *di.Builder, opts ...Option) *Compiler {
	c := &Compiler{
		builder: b,
		pkg:     "main",
		runtime: DefaultRuntimeImport,
		printer: codegen.GoPrinter{},
		log:     log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Builder returns the builder whose definitions are compiled.
func (c *Compiler) Builder() *di.Builder { return c.builder }

// Compile runs the extensions (once) and emits the container type typeName.
// Nothing is returned on failure.
func (c *Compiler) Compile(typeName string) (*codegen.File, error) {
	if !token.IsIdentifier(typeName) {
		return nil, di.InvalidArgumentError{What: "container type name", Reason: "must be a Go identifier"}
	}
	if !token.IsIdentifier(c.pkg) {
		return nil, di.InvalidArgumentError{What: "package name", Reason: "must be a Go identifier"}
	}
	if err := c.prepare(); err != nil {
		return nil, err
	}

	u := newUnit(c, typeName)
	f, err := u.compile()
	if err != nil {
		c.log.WithError(err).WithField("type", typeName).Debug("compile failed")
		return nil, err
	}
	c.order = u.graph.order()
	c.log.WithFields(log.Fields{
		"type":     typeName,
		"services": len(u.keys),
		"imports":  len(f.Imports()),
	}).Info("container compiled")
	return f, nil
}

// Source compiles typeName and prints it with the configured printer.
func (c *Compiler) Source(typeName string) ([]byte, error) {
	f, err := c.Compile(typeName)
	if err != nil {
		return nil, err
	}
	return c.printer.Print(f)
}

// BuildOrder returns the services reached by the last successful compile in
// dependency order: every service after the services its construction needs.
func (c *Compiler) BuildOrder() []string {
	return append([]string(nil), c.order...)
}

// Logger returns the compiler's logger, for use by extensions.
func (c *Compiler) Logger() log.FieldLogger { return c.log }
