package compiler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/sghaida/dic/di"
)

// ErrAlreadyAttached is returned when an extension is attached to a second compiler.
var ErrAlreadyAttached = errors.New("compiler: extension already attached")

// Extension rewrites service definitions before code is emitted.
//
// Attach is called once when the extension is added; BeforeCompile runs once per
// compiler, in registration order, before the first Compile that follows the
// extension's registration.
type Extension interface {
	Attach(c *Compiler) error
	BeforeCompile() error
}

// Named lets an extension choose the name it is registered under.
type Named interface {
	ExtensionName() string
}

// ExtensionName returns the name e is registered under: its ExtensionName when it
// implements Named, otherwise its Go type name.
func ExtensionName(e Extension) string {
	if n, ok := e.(Named); ok {
		return n.ExtensionName()
	}
	t := reflect.TypeOf(e)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// Base is embeddable by extensions. It remembers the compiler it was attached to and
// provides a no-op BeforeCompile.
type Base struct {
	compiler *Compiler
}

// Attach implements Extension.
func (b *Base) Attach(c *Compiler) error {
	if b.compiler != nil {
		return ErrAlreadyAttached
	}
	if c == nil {
		return di.InvalidArgumentError{What: "compiler", Reason: "must not be nil"}
	}
	b.compiler = c
	return nil
}

// BeforeCompile implements Extension.
func (b *Base) BeforeCompile() error { return nil }

// Compiler returns the attached compiler, or nil.
func (b *Base) Compiler() *Compiler { return b.compiler }

// Builder returns the attached compiler's builder, or nil.
func (b *Base) Builder() *di.Builder {
	if b.compiler == nil {
		return nil
	}
	return b.compiler.builder
}

// AddExtension attaches e and registers it under its lower-cased name.
func (c *Compiler) AddExtension(e Extension) error {
	if e == nil {
		return di.InvalidArgumentError{What: "extension", Reason: "must not be nil"}
	}
	name := strings.ToLower(ExtensionName(e))
	if name == "" {
		return di.InvalidArgumentError{What: "extension", Reason: "name must not be empty"}
	}
	if c.HasExtension(name) {
		return di.DuplicateExtensionError{Name: name}
	}
	if err := e.Attach(c); err != nil {
		return err
	}
	c.extensions = append(c.extensions, namedExtension{name: name, ext: e})
	c.log.WithField("extension", name).Debug("extension attached")
	return nil
}

// Extension returns the extension registered under name.
func (c *Compiler) Extension(name string) (Extension, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, ne := range c.extensions {
		if ne.name == name {
			return ne.ext, true
		}
	}
	return nil, false
}

// HasExtension reports whether an extension is registered under name.
func (c *Compiler) HasExtension(name string) bool {
	_, ok := c.Extension(name)
	return ok
}

// Extensions returns the registered extension names in registration order.
func (c *Compiler) Extensions() []string {
	out := make([]string, len(c.extensions))
	for i, ne := range c.extensions {
		out[i] = ne.name
	}
	return out
}

type namedExtension struct {
	name string
	ext  Extension
	ran  bool
}

// prepare runs BeforeCompile for every extension that has not run yet, in
// registration order. An extension added after a compile runs before the next one,
// and a failed extension is retried without running the earlier ones again.
func (c *Compiler) prepare() error {
	for i := range c.extensions {
		ne := &c.extensions[i]
		if ne.ran {
			continue
		}
		c.log.WithField("extension", ne.name).Debug("running extension")
		if err := ne.ext.BeforeCompile(); err != nil {
			return err
		}
		ne.ran = true
	}
	return nil
}
