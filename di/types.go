package di

import (
	"reflect"
	"sort"
	"strings"
)

// Param describes one parameter of a constructor, factory or method.
// An empty Type means the parameter is not autowirable.
type Param struct {
	Name       string
	Type       string
	HasDefault bool
	Default    any
}

// Func describes a callable: a constructor, a package-level factory function or a method.
type Func struct {
	// Symbol is the Go callee expression, e.g. "mail.NewMailer", or a bare method name.
	Symbol string

	// Import is the package path the symbol's qualifier refers to. Empty for methods
	// and for symbols in the generated package itself.
	Import string

	Params       []Param
	ReturnsError bool

	// Inject marks a method for method injection.
	Inject bool

	// Fn is the Go function value used in interpreted mode. Methods leave it nil and
	// are called by name on the receiver.
	Fn any
}

// Field describes an exported struct field of a service type.
type Field struct {
	Name   string
	Type   string
	Inject bool
}

// TypeInfo is the static descriptor of a service type.
type TypeInfo struct {
	// Name is the Go type expression used in generated code, e.g. "*mail.Mailer".
	Name string

	// Import is the package path of the named type.
	Import string

	// Implements lists type names values of this type are assignable to.
	Implements []string

	// Constructor is nil for types built as a zero composite literal.
	Constructor *Func

	Methods map[string]Func
	Fields  []Field

	// Type is the reflect type, when known. It enables live construction and
	// reflect-based assignability checks.
	Type reflect.Type
}

// TypeName returns the Go type expression for T, e.g. "*mail.Mailer".
func TypeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// Describe returns a TypeInfo for T with Name, Import and Type filled in.
func Describe[T any]() TypeInfo {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return TypeInfo{Name: t.String(), Import: pkgPathOf(t), Type: t}
}

// NameOf returns the Go type expression of a live value, or "" for nil.
func NameOf(v any) string {
	if v == nil {
		return ""
	}
	return reflect.TypeOf(v).String()
}

// ImportOf returns the package path of a live value's named type, or "".
func ImportOf(v any) string {
	if v == nil {
		return ""
	}
	return pkgPathOf(reflect.TypeOf(v))
}

func pkgPathOf(t reflect.Type) string {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	return t.PkgPath()
}

// TypeChecker answers assignability between type names.
type TypeChecker interface {
	Assignable(from, to string) bool
}

// InstanceChecker additionally answers whether a live value is of a type.
type InstanceChecker interface {
	IsInstance(v any, typeName string) bool
}

// Types is the catalog of type and function descriptors.
type Types struct {
	infos map[string]*TypeInfo
	order []string
	funcs map[string]*Func
}

// NewTypes returns an empty catalog.
func NewTypes() *Types {
	return &Types{infos: map[string]*TypeInfo{}, funcs: map[string]*Func{}}
}

// Add stores a type descriptor. Constructor functions are also registered by symbol.
func (t *Types) Add(info TypeInfo) error {
	name := strings.TrimSpace(info.Name)
	if name == "" {
		return invalid("type descriptor", "name must not be empty")
	}
	if _, ok := t.infos[name]; ok {
		return DuplicateTypeError{Name: name}
	}
	info.Name = name
	cp := info
	if cp.Constructor != nil {
		ctor := *cp.Constructor
		if ctor.Import == "" {
			ctor.Import = cp.Import
		}
		cp.Constructor = &ctor
	}
	t.infos[name] = &cp
	t.order = append(t.order, name)
	if c := cp.Constructor; c != nil && c.Symbol != "" {
		if _, ok := t.funcs[c.Symbol]; !ok {
			t.funcs[c.Symbol] = c
		}
	}
	return nil
}

// MustAdd is like Add but panics on error.
func (t *Types) MustAdd(infos ...TypeInfo) *Types {
	for _, info := range infos {
		if err := t.Add(info); err != nil {
			panic(err)
		}
	}
	return t
}

// AddFunc stores a package-level function descriptor for factories and static calls.
func (t *Types) AddFunc(f Func) error {
	sym := strings.TrimSpace(f.Symbol)
	if sym == "" {
		return invalid("function descriptor", "symbol must not be empty")
	}
	if _, ok := t.funcs[sym]; ok {
		return DuplicateTypeError{Name: sym}
	}
	f.Symbol = sym
	t.funcs[sym] = &f
	return nil
}

// Lookup returns the descriptor for a type name.
func (t *Types) Lookup(name string) (*TypeInfo, bool) {
	info, ok := t.infos[strings.TrimSpace(name)]
	return info, ok
}

// Func returns the descriptor for a function symbol.
func (t *Types) Func(symbol string) (*Func, bool) {
	f, ok := t.funcs[strings.TrimSpace(symbol)]
	return f, ok
}

// Names returns the described type names in the order they were added.
func (t *Types) Names() []string {
	return append([]string(nil), t.order...)
}

// Symbols returns the described function symbols, sorted.
func (t *Types) Symbols() []string {
	out := make([]string, 0, len(t.funcs))
	for s := range t.funcs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ImportFor returns the package path for a qualifier such as "mail", looked up among
// described types and functions.
func (t *Types) ImportFor(qualifier string) (string, bool) {
	for _, name := range t.order {
		info := t.infos[name]
		if info.Import != "" && Qualifier(info.Name) == qualifier {
			return info.Import, true
		}
	}
	for _, sym := range t.Symbols() {
		f := t.funcs[sym]
		if f.Import != "" && Qualifier(f.Symbol) == qualifier {
			return f.Import, true
		}
	}
	return "", false
}

// Qualifier returns the package qualifier of a type expression or symbol:
// "*mail.Mailer" -> "mail", "[]mail.Header" -> "mail", "int" -> "".
func Qualifier(expr string) string {
	s := strings.TrimLeft(expr, "*[]")
	i := strings.IndexByte(s, '.')
	if i <= 0 {
		return ""
	}
	return s[:i]
}

// Assignable reports whether a value of type from can be used where to is expected:
// identical names, a transitive Implements chain, or reflect assignability when both
// descriptors carry a reflect type.
func (t *Types) Assignable(from, to string) bool {
	if from == "" || to == "" {
		return false
	}
	if from == to {
		return true
	}
	for _, s := range t.Supertypes(from) {
		if s == to {
			return true
		}
	}
	fi, ok1 := t.infos[from]
	ti, ok2 := t.infos[to]
	if ok1 && ok2 && fi.Type != nil && ti.Type != nil {
		return fi.Type.AssignableTo(ti.Type)
	}
	return false
}

// IsInstance reports whether v is assignable to typeName.
func (t *Types) IsInstance(v any, typeName string) bool {
	if v == nil {
		return false
	}
	if t.Assignable(NameOf(v), typeName) {
		return true
	}
	if ti, ok := t.infos[typeName]; ok && ti.Type != nil {
		return reflect.TypeOf(v).AssignableTo(ti.Type)
	}
	return false
}

// Supertypes returns the transitive closure of Implements for name, breadth first,
// without duplicates and without name itself.
func (t *Types) Supertypes(name string) []string {
	seen := map[string]bool{name: true}
	var out []string
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		info, ok := t.infos[cur]
		if !ok {
			continue
		}
		for _, s := range info.Implements {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
			queue = append(queue, s)
		}
	}
	return out
}
