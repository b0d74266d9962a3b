package di

import (
	"fmt"
	"reflect"
)

// Builder is the interpreted container: it holds the definitions and type catalog and
// builds services on demand by reflection, following exactly the rules the compiler
// turns into code.
//
// Live instances added with Add take precedence over definitions of the same key.
type Builder struct {
	*Container

	defs      *Registry
	types     *Types
	resolving []string
}

// NewBuilder returns a builder with empty parameters and an empty type catalog.
func NewBuilder() *Builder {
	return NewBuilderWith(NewParameters(), NewTypes())
}

// NewBuilderWith returns a builder over the given parameters and type catalog.
func NewBuilderWith(params *Parameters, types *Types) *Builder {
	if types == nil {
		types = NewTypes()
	}
	return &Builder{
		Container: NewContainer(params).WithTypes(types),
		defs:      NewRegistry(),
		types:     types,
	}
}

// Register defines a shared service of typeName under key and returns its definition.
func (b *Builder) Register(key, typeName string) (*Definition, error) {
	return b.defs.Register(key, typeName)
}

// MustRegister is like Register but panics on error.
func (b *Builder) MustRegister(key, typeName string) *Definition {
	def, err := b.Register(key, typeName)
	if err != nil {
		panic(err)
	}
	return def
}

// AddDefinition stores a prepared definition under key.
func (b *Builder) AddDefinition(key string, def *Definition) error {
	return b.defs.Add(key, def)
}

// Definition returns the definition of key.
func (b *Builder) Definition(key string) (*Definition, bool) { return b.defs.Get(key) }

// Definitions returns the registry.
func (b *Builder) Definitions() *Registry { return b.defs }

// TypeOf returns the type of def with parameter placeholders resolved.
func (b *Builder) TypeOf(def *Definition) string { return resolvedType(def, b.params) }

// Types returns the type catalog.
func (b *Builder) Types() *Types { return b.types }

// Get returns the live instance for key, building it from its definition if needed.
func (b *Builder) Get(key string) (any, error) {
	k := NormalizeKey(key)
	if svc, ok := b.Lookup(k); ok {
		return svc, nil
	}
	def, ok := b.defs.Get(k)
	if !ok {
		return nil, UndefinedServiceError{Key: k}
	}
	return b.create(k, def)
}

// Has reports whether key is a live instance or a definition.
func (b *Builder) Has(key string) bool {
	return b.Container.Has(key) || b.defs.Has(key)
}

// GetByType returns a live instance assignable to typeName, or builds the first
// matching definition.
func (b *Builder) GetByType(typeName string) (any, error) {
	if svc, ok := b.LookupByType(typeName); ok {
		return svc, nil
	}
	if k, _, ok := b.defs.ByType(typeName, b.types, b.params); ok {
		return b.Get(k)
	}
	return nil, NoMatchingServiceError{Type: typeName}
}

// GetKeyByType returns the key of a live instance or definition assignable to typeName.
func (b *Builder) GetKeyByType(typeName string) (string, error) {
	if k, ok := b.LookupKeyByType(typeName); ok {
		return k, nil
	}
	if k, _, ok := b.defs.ByType(typeName, b.types, b.params); ok {
		return k, nil
	}
	return "", NoMatchingServiceError{Type: typeName}
}

// Resolve turns a definition value into a live value. Slices, arrays and maps are
// resolved element by element (KeepsType decides the resulting type), callbacks are
// called, references build their target, the builder resolves to itself and strings
// get parameter substitution.
func (b *Builder) Resolve(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case Callback:
		return b.Resolve(x.Call())
	case ServiceRef:
		return b.Get(x.Key())
	case MethodRef:
		return b.resolveMethodRef(x)
	case *Container:
		if x == b.Container {
			return b, nil
		}
		return x, nil
	case string:
		return b.params.Resolve(x), nil
	}
	if rv := reflect.ValueOf(v); isCollection(rv) {
		return b.resolveCollection(rv)
	}
	return v, nil
}

func (b *Builder) resolveAll(args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		v, err := b.Resolve(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (b *Builder) resolveMethodRef(r MethodRef) (any, error) {
	recv, err := b.Get(r.Service().Key())
	if err != nil {
		return nil, err
	}
	args, err := b.resolveAll(r.Arguments())
	if err != nil {
		return nil, err
	}
	return callMethod(recv, r.Method(), args)
}

// create builds key from def. Shared instances are cached right after construction,
// so setters and method calls may refer back to them.
func (b *Builder) create(key string, def *Definition) (any, error) {
	for i, k := range b.resolving {
		if k == key {
			chain := append(append([]string(nil), b.resolving[i:]...), key)
			return nil, CircularDependencyError{Chain: chain}
		}
	}
	b.resolving = append(b.resolving, key)
	depth := len(b.resolving)
	release := func() {
		if len(b.resolving) == depth {
			b.resolving = b.resolving[:depth-1]
		}
	}
	defer release()

	svc, err := b.construct(key, def)
	if err != nil {
		return nil, err
	}
	if def.Shared() {
		svc = b.Share(key, svc)
		release()
	}

	for _, p := range def.PropertySetters() {
		v, err := b.Resolve(p.Value())
		if err != nil {
			return nil, err
		}
		if err := setField(svc, p.Name(), v); err != nil {
			return nil, err
		}
	}
	for _, c := range def.MethodCalls() {
		if err := b.invoke(svc, c); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

func (b *Builder) construct(key string, def *Definition) (any, error) {
	typeName := b.TypeOf(def)

	if ref, ok := def.Factory().(MethodRef); ok {
		return b.resolveMethodRef(ref)
	}

	args, err := b.resolveAll(def.Arguments())
	if err != nil {
		return nil, err
	}

	switch f := def.Factory().(type) {
	case nil:
		return b.instantiate(typeName, args)
	case FuncFactory:
		return b.callSymbol(f.Symbol, args)
	case StaticFactory:
		return b.callSymbol(f.Symbol(), args)
	case ServiceFactory:
		recv, err := b.Get(f.Service.Key())
		if err != nil {
			return nil, err
		}
		return callMethod(recv, f.Method, args)
	default:
		return nil, InvalidFactoryMethodError{Key: key, Reason: fmt.Sprintf("unsupported factory %T", f)}
	}
}

func (b *Builder) instantiate(typeName string, args []any) (any, error) {
	info, ok := b.types.Lookup(typeName)
	if !ok {
		return nil, UnknownTypeError{Type: typeName}
	}
	ctor := info.Constructor
	if ctor == nil {
		if len(args) > 0 {
			return nil, ArityMismatchError{Callee: typeName, Want: 0, Got: len(args)}
		}
		if info.Type == nil {
			return nil, invalid("type "+typeName, "has neither a constructor nor a reflect type")
		}
		return zeroOf(info.Type), nil
	}
	if ctor.Fn == nil {
		return nil, UnknownFunctionError{Symbol: ctor.Symbol}
	}
	if len(ctor.Params) > 0 {
		wired, err := Autowire(ctor.Symbol, ctor.Params, args, liveWiring{b})
		if err != nil {
			return nil, err
		}
		if args, err = b.resolveAll(wired); err != nil {
			return nil, err
		}
	}
	return callFunc(ctor.Symbol, ctor.Fn, args)
}

func (b *Builder) callSymbol(symbol string, args []any) (any, error) {
	f, ok := b.types.Func(symbol)
	if !ok || f.Fn == nil {
		return nil, UnknownFunctionError{Symbol: symbol}
	}
	return callFunc(symbol, f.Fn, args)
}

func (b *Builder) invoke(svc any, c MethodCall) error {
	args, err := b.resolveAll(c.Arguments())
	if err != nil {
		return err
	}
	switch t := c.Target().(type) {
	case nil:
		_, err = callMethod(svc, c.Method(), args)
	case ServiceRef:
		recv, gerr := b.Get(t.Key())
		if gerr != nil {
			return gerr
		}
		_, err = callMethod(recv, c.Method(), args)
	case string:
		_, err = b.callSymbol(t+"."+c.Method(), args)
	default:
		_, err = callMethod(t, c.Method(), args)
	}
	return err
}

// liveWiring resolves autowired parameters to live instances.
type liveWiring struct{ b *Builder }

func (w liveWiring) ResolveType(typeName string) (any, error) { return w.b.GetByType(typeName) }

func (w liveWiring) IsInstance(v any, typeName string) bool {
	return w.b.types.IsInstance(v, typeName)
}
