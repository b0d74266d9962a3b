// Package config reads YAML definition files and applies them to a di.Builder.
//
// A definition file has five optional sections:
//
//	package: app
//	parameters:
//	  mail.host: smtp.local
//	types:
//	  - name: "*mail.Mailer"
//	    import: example.com/mail
//	    constructor:
//	      symbol: mail.NewMailer
//	      returnsError: true
//	      params:
//	        - {name: host}
//	        - {name: port, default: 25}
//	functions:
//	  - {symbol: mail.NewDefault, import: example.com/mail}
//	services:
//	  mailer:
//	    type: "*mail.Mailer"
//	    arguments: ["%mail.host%"]
//	    calls:
//	      - {method: SetLogger, arguments: ["@logger"]}
//	extensions: [property_injection]
//
// Inside arguments, property values and factories a string "@key" is a reference to
// service key, "@key::Method" a method reference, and a leading "@@" escapes a
// literal "@". A mapping with a "service" entry is a method reference with
// arguments.
package config

import (
	"bytes"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sghaida/dic/compiler"
	"github.com/sghaida/dic/compiler/inject"
	"github.com/sghaida/dic/di"
)

// File is a decoded definition file.
type File struct {
	Package    string             `yaml:"package"`
	Parameters map[string]any     `yaml:"parameters"`
	Types      []Type             `yaml:"types"`
	Functions  []Func             `yaml:"functions"`
	Services   map[string]Service `yaml:"services"`
	Extensions []string           `yaml:"extensions"`

	serviceOrder []string
}

// Type describes a service type for the static catalog.
type Type struct {
	Name        string          `yaml:"name"`
	Import      string          `yaml:"import"`
	Implements  []string        `yaml:"implements"`
	Constructor *Func           `yaml:"constructor"`
	Methods     map[string]Func `yaml:"methods"`
	Fields      []Field         `yaml:"fields"`
}

// Func describes a constructor, a package-level function or a method.
type Func struct {
	Symbol       string  `yaml:"symbol"`
	Import       string  `yaml:"import"`
	ReturnsError bool    `yaml:"returnsError"`
	Inject       bool    `yaml:"inject"`
	Params       []Param `yaml:"params"`
}

// Param is one parameter. A present default, even null, makes the parameter optional.
type Param struct {
	Name    string    `yaml:"name"`
	Type    string    `yaml:"type"`
	Default yaml.Node `yaml:"default"`
}

// Field is an exported struct field.
type Field struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Inject bool   `yaml:"inject"`
}

// Service is one service definition. Shared defaults to true.
type Service struct {
	Type       string     `yaml:"type"`
	Arguments  []any      `yaml:"arguments"`
	Factory    any        `yaml:"factory"`
	Shared     *bool      `yaml:"shared"`
	Calls      []Call     `yaml:"calls"`
	Properties []Property `yaml:"properties"`
}

// Call is a post-construction method call. Target is empty for the service itself,
// "@key" for another service, or a package qualifier.
type Call struct {
	Method    string `yaml:"method"`
	Arguments []any  `yaml:"arguments"`
	Target    string `yaml:"target"`
}

// Property assigns Value to the exported field Name.
type Property struct {
	Name  string `yaml:"name"`
	Value any    `yaml:"value"`
}

// Load reads and decodes the definition file at path.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	f, err := Decode(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return f, nil
}

// Decode strictly decodes a definition file: unknown keys are errors. An empty
// document decodes to an empty File.
func Decode(r io.Reader) (*File, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading definition file")
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	f := &File{}
	if err := dec.Decode(f); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "invalid definition file")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "invalid definition file")
	}
	f.serviceOrder = mappingKeys(&doc, "services")
	return f, nil
}

// mappingKeys returns the keys of the mapping under section, in document order.
func mappingKeys(doc *yaml.Node, section string) []string {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != section || root.Content[i+1].Kind != yaml.MappingNode {
			continue
		}
		m := root.Content[i+1]
		keys := make([]string, 0, len(m.Content)/2)
		for j := 0; j+1 < len(m.Content); j += 2 {
			keys = append(keys, m.Content[j].Value)
		}
		return keys
	}
	return nil
}

// ServiceKeys returns the service keys in the order the file lists them. Services
// added to a File in code, which has no document order, follow in key order.
func (f *File) ServiceKeys() []string {
	out := make([]string, 0, len(f.Services))
	seen := make(map[string]bool, len(f.Services))
	for _, k := range f.serviceOrder {
		if _, ok := f.Services[k]; ok && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, k := range sortedKeys(f.Services) {
		if !seen[k] {
			out = append(out, k)
		}
	}
	return out
}

// Builder returns a new builder with f applied.
func (f *File) Builder() (*di.Builder, error) {
	b := di.NewBuilder()
	if err := f.Apply(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Apply adds the parameters, catalog entries and service definitions of f to b.
// Services are registered in the order the file lists them.
func (f *File) Apply(b *di.Builder) error {
	for _, k := range sortedKeys(f.Parameters) {
		if err := b.Params().Add(k, f.Parameters[k]); err != nil {
			return errors.Wrapf(err, "parameter %q", k)
		}
	}
	for _, t := range f.Types {
		info, err := t.info()
		if err != nil {
			return errors.Wrapf(err, "type %q", t.Name)
		}
		if err := b.Types().Add(info); err != nil {
			return errors.Wrapf(err, "type %q", t.Name)
		}
	}
	for _, fn := range f.Functions {
		d, err := fn.describe("")
		if err != nil {
			return errors.Wrapf(err, "function %q", fn.Symbol)
		}
		if err := b.Types().AddFunc(d); err != nil {
			return errors.Wrapf(err, "function %q", fn.Symbol)
		}
	}
	for _, key := range f.ServiceKeys() {
		def, err := f.Services[key].definition()
		if err != nil {
			return errors.Wrapf(err, "service %q", key)
		}
		if err := b.AddDefinition(key, def); err != nil {
			return errors.Wrapf(err, "service %q", key)
		}
	}
	return nil
}

// AttachExtensions adds the extensions listed in f to c. Names are matched without
// regard to case, underscores or dashes.
func (f *File) AttachExtensions(c *compiler.Compiler) error {
	for _, name := range f.Extensions {
		ext, err := NewExtension(name)
		if err != nil {
			return err
		}
		if err := c.AddExtension(ext); err != nil {
			return errors.Wrapf(err, "extension %q", name)
		}
	}
	return nil
}

// NewExtension returns the built-in extension called name.
func NewExtension(name string) (compiler.Extension, error) {
	switch strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(name)) {
	case "methodinjection":
		return &inject.MethodInjection{}, nil
	case "propertyinjection":
		return &inject.PropertyInjection{}, nil
	}
	return nil, errors.Errorf("unknown extension %q", name)
}

func (t Type) info() (di.TypeInfo, error) {
	info := di.TypeInfo{
		Name:       t.Name,
		Import:     t.Import,
		Implements: t.Implements,
	}
	if t.Constructor != nil {
		c, err := t.Constructor.describe("")
		if err != nil {
			return di.TypeInfo{}, errors.Wrap(err, "constructor")
		}
		info.Constructor = &c
	}
	if len(t.Methods) > 0 {
		info.Methods = make(map[string]di.Func, len(t.Methods))
		for name, m := range t.Methods {
			d, err := m.describe(name)
			if err != nil {
				return di.TypeInfo{}, errors.Wrapf(err, "method %q", name)
			}
			info.Methods[name] = d
		}
	}
	for _, fd := range t.Fields {
		info.Fields = append(info.Fields, di.Field(fd))
	}
	return info, nil
}

// describe converts fn; symbol is used when fn names none.
func (fn Func) describe(symbol string) (di.Func, error) {
	d := di.Func{
		Symbol:       fn.Symbol,
		Import:       fn.Import,
		ReturnsError: fn.ReturnsError,
		Inject:       fn.Inject,
	}
	if d.Symbol == "" {
		d.Symbol = symbol
	}
	for _, p := range fn.Params {
		dp := di.Param{Name: p.Name, Type: p.Type}
		if p.Default.Kind != 0 {
			var v any
			if err := p.Default.Decode(&v); err != nil {
				return di.Func{}, errors.Wrapf(err, "default of %q", p.Name)
			}
			dp.HasDefault, dp.Default = true, v
		}
		d.Params = append(d.Params, dp)
	}
	return d, nil
}

func (s Service) definition() (*di.Definition, error) {
	def, err := di.NewDefinition(s.Type)
	if err != nil {
		return nil, err
	}
	if s.Shared != nil {
		def.SetShared(*s.Shared)
	}

	args, err := values(s.Arguments)
	if err != nil {
		return nil, errors.Wrap(err, "arguments")
	}
	def.SetArguments(args...)

	if s.Factory != nil {
		fv, err := factory(s.Factory)
		if err != nil {
			return nil, err
		}
		if _, err := def.SetFactoryMethod(fv); err != nil {
			return nil, err
		}
	}

	for _, c := range s.Calls {
		mc, err := c.methodCall()
		if err != nil {
			return nil, errors.Wrapf(err, "call %q", c.Method)
		}
		def.AddMethodCall(mc)
	}

	for _, p := range s.Properties {
		v, err := Value(p.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "property %q", p.Name)
		}
		ps, err := di.NewPropertySetter(p.Name, v)
		if err != nil {
			return nil, err
		}
		def.AddPropertySetter(ps)
	}
	return def, nil
}

func (c Call) methodCall() (di.MethodCall, error) {
	args, err := values(c.Arguments)
	if err != nil {
		return di.MethodCall{}, err
	}
	var target any
	if t := strings.TrimSpace(c.Target); t != "" {
		target = t
		if ref, ok := strings.CutPrefix(t, "@"); ok {
			r, err := di.NewServiceRef(ref)
			if err != nil {
				return di.MethodCall{}, err
			}
			target = r
		}
	}
	return di.NewMethodCall(c.Method, target, args...)
}

// factory converts a factory entry into a value di.ParseFactory understands.
func factory(v any) (any, error) {
	switch f := v.(type) {
	case string:
		if strings.HasPrefix(f, "@") && !strings.HasPrefix(f, "@@") {
			return Value(f)
		}
		return f, nil
	case []any, map[string]any:
		return Value(f)
	}
	return nil, errors.Errorf("unsupported factory %v", v)
}

// Value converts one decoded YAML value into a definition value.
func Value(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return reference(x)
	case []any:
		return values(x)
	case map[string]any:
		if _, ok := x["service"]; ok {
			return methodRef(x)
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			ev, err := Value(e)
			if err != nil {
				return nil, errors.Wrapf(err, "key %q", k)
			}
			out[k] = ev
		}
		return out, nil
	}
	return v, nil
}

func values(in []any) ([]any, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]any, len(in))
	for i, e := range in {
		v, err := Value(e)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		out[i] = v
	}
	return out, nil
}

func reference(s string) (any, error) {
	if strings.HasPrefix(s, "@@") {
		return s[1:], nil
	}
	rest, ok := strings.CutPrefix(s, "@")
	if !ok {
		return s, nil
	}
	if key, method, ok := strings.Cut(rest, "::"); ok {
		ref, err := di.NewServiceRef(key)
		if err != nil {
			return nil, err
		}
		return di.NewMethodRef(ref, method)
	}
	return di.NewServiceRef(rest)
}

func methodRef(m map[string]any) (any, error) {
	for k := range m {
		switch k {
		case "service", "method", "arguments":
		default:
			return nil, errors.Errorf("method reference: unknown key %q", k)
		}
	}
	key, _ := m["service"].(string)
	method, _ := m["method"].(string)
	ref, err := di.NewServiceRef(strings.TrimPrefix(key, "@"))
	if err != nil {
		return nil, err
	}
	var args []any
	if raw, ok := m["arguments"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, errors.New("method reference: arguments must be a list")
		}
		if args, err = values(list); err != nil {
			return nil, err
		}
	}
	return di.NewMethodRef(ref, method, args...)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
