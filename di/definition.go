package di

import (
	"fmt"
	"strings"
)

// Factory is how a definition builds its instance when not using the type's constructor.
// It is one of FuncFactory, StaticFactory, ServiceFactory or MethodRef.
type Factory interface {
	factory()
}

// FuncFactory calls a package-level function by symbol, e.g. "mail.NewMailer".
type FuncFactory struct{ Symbol string }

func (FuncFactory) factory() {}

// StaticFactory calls Method qualified by a literal type or package name: Type.Method.
type StaticFactory struct {
	Type   string
	Method string
}

// Symbol returns the qualified callee, "Type.Method".
func (f StaticFactory) Symbol() string { return f.Type + "." + f.Method }

func (StaticFactory) factory() {}

// ServiceFactory calls Method on the instance of another service.
type ServiceFactory struct {
	Service ServiceRef
	Method  string
}

func (ServiceFactory) factory() {}

// ParseFactory accepts the loose factory shapes used by definition files and returns
// the normalized Factory:
//
//	nil                          -> nil (use the constructor)
//	"pkg.NewX"                   -> FuncFactory
//	"Type::method"               -> StaticFactory{Type, method}
//	[]string{"Type", "method"}   -> StaticFactory
//	[]any{ServiceRef, "method"}  -> ServiceFactory
//	MethodRef, Factory           -> as is
func ParseFactory(v any) (Factory, error) {
	switch f := v.(type) {
	case nil:
		return nil, nil
	case Factory:
		return f, nil
	case string:
		s := strings.TrimSpace(f)
		if s == "" {
			return nil, invalid("factory", "name must not be empty")
		}
		if typ, method, ok := strings.Cut(s, "::"); ok {
			return pairFactory(typ, method)
		}
		return FuncFactory{Symbol: s}, nil
	case [2]string:
		return pairFactory(f[0], f[1])
	case []string:
		if len(f) != 2 {
			return nil, invalid("factory", fmt.Sprintf("pair must have 2 elements, got %d", len(f)))
		}
		return pairFactory(f[0], f[1])
	case []any:
		if len(f) != 2 {
			return nil, invalid("factory", fmt.Sprintf("pair must have 2 elements, got %d", len(f)))
		}
		method, ok := f[1].(string)
		if !ok {
			return nil, invalid("factory", "pair method must be a string")
		}
		switch head := f[0].(type) {
		case string:
			return pairFactory(head, method)
		case ServiceRef:
			if strings.TrimSpace(method) == "" {
				return nil, invalid("factory", "method name must not be empty")
			}
			return ServiceFactory{Service: head, Method: strings.TrimSpace(method)}, nil
		}
		return nil, invalid("factory", fmt.Sprintf("unsupported pair head %T", f[0]))
	}
	return nil, invalid("factory", fmt.Sprintf("unsupported shape %T", v))
}

func pairFactory(typ, method string) (Factory, error) {
	typ, method = strings.TrimSpace(typ), strings.TrimSpace(method)
	if typ == "" || method == "" {
		return nil, invalid("factory", "type and method must not be empty")
	}
	return StaticFactory{Type: typ, Method: method}, nil
}

// MethodCall is a post-construction call. Target selects the receiver:
// nil means the service being built, a ServiceRef another service, a string a
// package qualifier (target.Method is a function), anything else a live instance.
type MethodCall struct {
	method string
	args   []any
	target any
}

// NewMethodCall validates and returns a method call.
func NewMethodCall(method string, target any, args ...any) (MethodCall, error) {
	m := strings.TrimSpace(method)
	if m == "" {
		return MethodCall{}, invalid("method call", "method name must not be empty")
	}
	if s, ok := target.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return MethodCall{}, invalid("method call", "target qualifier must not be empty")
		}
		target = s
	}
	return MethodCall{method: m, args: args, target: target}, nil
}

// Call returns a method call on the service being built. It panics on an empty name.
func Call(method string, args ...any) MethodCall {
	return mustCall(NewMethodCall(method, nil, args...))
}

// CallOn returns a method call on target. It panics on invalid input.
func CallOn(target any, method string, args ...any) MethodCall {
	return mustCall(NewMethodCall(method, target, args...))
}

func mustCall(c MethodCall, err error) MethodCall {
	if err != nil {
		panic(err)
	}
	return c
}

// Method returns the method name.
func (c MethodCall) Method() string { return c.method }

// Arguments returns the raw call arguments.
func (c MethodCall) Arguments() []any { return c.args }

// Target returns the call target (nil for the service itself).
func (c MethodCall) Target() any { return c.target }

// PropertySetter assigns a resolved value to an exported field after construction.
type PropertySetter struct {
	name  string
	value any
}

// NewPropertySetter validates and returns a property setter.
func NewPropertySetter(name string, value any) (PropertySetter, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return PropertySetter{}, invalid("property setter", "name must not be empty")
	}
	return PropertySetter{name: n, value: value}, nil
}

// Property is like NewPropertySetter but panics on an empty name.
func Property(name string, value any) PropertySetter {
	p, err := NewPropertySetter(name, value)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the field name.
func (p PropertySetter) Name() string { return p.name }

// Value returns the raw value.
func (p PropertySetter) Value() any { return p.value }

// Definition describes how to build one service.
//
// Setters return the definition so registrations read as a chain:
//
//	b.MustRegister("mailer", "*mail.Mailer").
//		SetArguments(di.Ref("transport"), "%mail.from%").
//		AddMethodCall(di.Call("SetLogger", di.Ref("logger")))
type Definition struct {
	typeName   string
	arguments  []any
	factory    Factory
	shared     bool
	calls      []MethodCall
	properties []PropertySetter
}

// NewDefinition returns a shared definition for typeName.
func NewDefinition(typeName string) (*Definition, error) {
	t := strings.TrimSpace(typeName)
	if t == "" {
		return nil, invalid("definition", "type name must not be empty")
	}
	return &Definition{typeName: t, shared: true}, nil
}

// Type returns the declared type name; it may carry %name% tokens.
func (d *Definition) Type() string { return d.typeName }

// SetType replaces the declared type name. Empty names are ignored.
func (d *Definition) SetType(typeName string) *Definition {
	if t := strings.TrimSpace(typeName); t != "" {
		d.typeName = t
	}
	return d
}

// Arguments returns the constructor (or factory) arguments.
func (d *Definition) Arguments() []any { return d.arguments }

// SetArguments replaces the arguments.
func (d *Definition) SetArguments(args ...any) *Definition {
	d.arguments = args
	return d
}

// AddArguments appends arguments.
func (d *Definition) AddArguments(args ...any) *Definition {
	d.arguments = append(d.arguments, args...)
	return d
}

// Factory returns the factory, or nil when the constructor is used.
func (d *Definition) Factory() Factory { return d.factory }

// HasFactory reports whether a factory is set.
func (d *Definition) HasFactory() bool { return d.factory != nil }

// SetFactory sets a typed factory; nil restores constructor construction.
func (d *Definition) SetFactory(f Factory) *Definition {
	d.factory = f
	return d
}

// SetFactoryMethod parses one of the loose shapes accepted by ParseFactory.
func (d *Definition) SetFactoryMethod(v any) (*Definition, error) {
	f, err := ParseFactory(v)
	if err != nil {
		return d, err
	}
	d.factory = f
	return d, nil
}

// Shared reports whether one instance is cached and reused.
func (d *Definition) Shared() bool { return d.shared }

// SetShared sets the sharing flag.
func (d *Definition) SetShared(shared bool) *Definition {
	d.shared = shared
	return d
}

// MethodCalls returns the post-construction calls in order.
func (d *Definition) MethodCalls() []MethodCall { return d.calls }

// HasMethodCalls reports whether any method call is set.
func (d *Definition) HasMethodCalls() bool { return len(d.calls) > 0 }

// AddMethodCall appends a method call.
func (d *Definition) AddMethodCall(c MethodCall) *Definition {
	d.calls = append(d.calls, c)
	return d
}

// SetMethodCalls replaces the method calls.
func (d *Definition) SetMethodCalls(calls []MethodCall) *Definition {
	d.calls = calls
	return d
}

// PropertySetters returns the property setters in order.
func (d *Definition) PropertySetters() []PropertySetter { return d.properties }

// HasPropertySetters reports whether any property setter is set.
func (d *Definition) HasPropertySetters() bool { return len(d.properties) > 0 }

// AddPropertySetter appends a property setter.
func (d *Definition) AddPropertySetter(p PropertySetter) *Definition {
	d.properties = append(d.properties, p)
	return d
}

// SetPropertySetters replaces the property setters.
func (d *Definition) SetPropertySetters(props []PropertySetter) *Definition {
	d.properties = props
	return d
}
