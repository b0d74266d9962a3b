// Package inject provides compiler extensions that add setter injections to service
// definitions from static metadata, before code is emitted.
//
// A dependency is injected only when exactly one declared type is named and a service
// assignable to it is registered; otherwise the member is left alone.
package inject

import (
	"reflect"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/sghaida/dic/compiler"
	"github.com/sghaida/dic/di"
)

// Tag is the struct tag that marks a field for property injection: `di:"inject"`.
const Tag = "di"

// MethodInjection calls every catalog method marked Inject that takes a single typed
// parameter with the service matching that type.
type MethodInjection struct {
	compiler.Base
}

// BeforeCompile implements compiler.Extension.
func (m *MethodInjection) BeforeCompile() error {
	b := m.Builder()
	if b == nil {
		return di.InvalidArgumentError{What: "method injection", Reason: "extension is not attached"}
	}
	for _, key := range b.Definitions().Keys() {
		def, _ := b.Definition(key)
		info, ok := b.Types().Lookup(typeOf(b, def))
		if !ok {
			continue
		}

		names := make([]string, 0, len(info.Methods))
		for name := range info.Methods {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			fn := info.Methods[name]
			if !fn.Inject || len(fn.Params) != 1 || fn.Params[0].Type == "" || hasCall(def, name) {
				continue
			}
			dep, err := b.GetKeyByType(fn.Params[0].Type)
			if err != nil || dep == key {
				continue
			}
			def.AddMethodCall(di.Call(name, di.Ref(dep)))
			logger(m.Compiler()).WithFields(log.Fields{"service": key, "method": name, "dependency": dep}).Debug("method injected")
		}
	}
	return nil
}

// PropertyInjection assigns every field marked for injection, either through
// di.Field.Inject in the catalog or with the `di:"inject"` struct tag.
type PropertyInjection struct {
	compiler.Base
}

// BeforeCompile implements compiler.Extension.
func (p *PropertyInjection) BeforeCompile() error {
	b := p.Builder()
	if b == nil {
		return di.InvalidArgumentError{What: "property injection", Reason: "extension is not attached"}
	}
	for _, key := range b.Definitions().Keys() {
		def, _ := b.Definition(key)
		info, ok := b.Types().Lookup(typeOf(b, def))
		if !ok {
			continue
		}
		for _, f := range injectableFields(info) {
			if hasSetter(def, f.Name) {
				continue
			}
			dep, err := b.GetKeyByType(f.Type)
			if err != nil || dep == key {
				continue
			}
			def.AddPropertySetter(di.Property(f.Name, di.Ref(dep)))
			logger(p.Compiler()).WithFields(log.Fields{"service": key, "property": f.Name, "dependency": dep}).Debug("property injected")
		}
	}
	return nil
}

// injectableFields lists catalog fields marked Inject, then tagged struct fields of the
// reflect type, without duplicates.
func injectableFields(info *di.TypeInfo) []di.Field {
	var out []di.Field
	seen := map[string]bool{}
	for _, f := range info.Fields {
		if f.Inject && f.Type != "" && !seen[f.Name] {
			seen[f.Name] = true
			out = append(out, f)
		}
	}
	if info.Type == nil {
		return out
	}
	t := info.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return out
	}
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Tag.Get(Tag) != "inject" || seen[sf.Name] {
			continue
		}
		seen[sf.Name] = true
		out = append(out, di.Field{Name: sf.Name, Type: sf.Type.String(), Inject: true})
	}
	return out
}

func typeOf(b *di.Builder, def *di.Definition) string {
	return b.TypeOf(def)
}

func hasCall(def *di.Definition, method string) bool {
	for _, c := range def.MethodCalls() {
		if c.Method() == method && c.Target() == nil {
			return true
		}
	}
	return false
}

func hasSetter(def *di.Definition, name string) bool {
	for _, s := range def.PropertySetters() {
		if s.Name() == name {
			return true
		}
	}
	return false
}

func logger(c *compiler.Compiler) log.FieldLogger {
	if c == nil {
		return log.StandardLogger()
	}
	return c.Logger()
}
