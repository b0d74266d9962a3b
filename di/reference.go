package di

import "strings"

// ServiceRef points at another service by key. It is resolved to that service's
// instance (interpreted mode) or to a call of its accessor (compiled mode).
type ServiceRef struct {
	key string
}

// NewServiceRef returns a reference to key. The key must not be empty.
func NewServiceRef(key string) (ServiceRef, error) {
	k := strings.TrimSpace(key)
	if k == "" {
		return ServiceRef{}, invalid("service reference", "key must not be empty")
	}
	return ServiceRef{key: k}, nil
}

// Ref is like NewServiceRef but panics on an empty key.
func Ref(key string) ServiceRef {
	r, err := NewServiceRef(key)
	if err != nil {
		panic(err)
	}
	return r
}

// Key returns the referenced service key as given.
func (r ServiceRef) Key() string { return r.key }

// String renders the reference in definition-file syntax.
func (r ServiceRef) String() string { return "@" + r.key }

// MethodRef denotes "invoke method on the referenced service with these arguments".
type MethodRef struct {
	service ServiceRef
	method  string
	args    []any
}

// NewMethodRef returns a method reference. The method name must not be empty and
// the service reference must be valid.
func NewMethodRef(service ServiceRef, method string, args ...any) (MethodRef, error) {
	if service.key == "" {
		return MethodRef{}, invalid("method reference", "service key must not be empty")
	}
	m := strings.TrimSpace(method)
	if m == "" {
		return MethodRef{}, invalid("method reference", "method name must not be empty")
	}
	return MethodRef{service: service, method: m, args: args}, nil
}

// MethodOf is like NewMethodRef with a service key, and panics on invalid input.
func MethodOf(key, method string, args ...any) MethodRef {
	r, err := NewMethodRef(Ref(key), method, args...)
	if err != nil {
		panic(err)
	}
	return r
}

// Service returns the referenced service.
func (r MethodRef) Service() ServiceRef { return r.service }

// Method returns the method name.
func (r MethodRef) Method() string { return r.method }

// Arguments returns the raw (unresolved) call arguments.
func (r MethodRef) Arguments() []any { return r.args }

// String renders the reference in definition-file syntax.
func (r MethodRef) String() string { return r.service.String() + "::" + r.method }

func (MethodRef) factory() {}

// Callback defers a value to resolution time. Its function runs once per resolution
// and the returned value is resolved again.
type Callback struct {
	fn func() any
}

// NewCallback wraps fn. A nil fn is rejected.
func NewCallback(fn func() any) (Callback, error) {
	if fn == nil {
		return Callback{}, invalid("callback", "function must not be nil")
	}
	return Callback{fn: fn}, nil
}

// Lazy is like NewCallback but panics on a nil fn.
func Lazy(fn func() any) Callback {
	c, err := NewCallback(fn)
	if err != nil {
		panic(err)
	}
	return c
}

// Call invokes the wrapped function.
func (c Callback) Call() any { return c.fn() }

func isReference(v any) bool {
	switch v.(type) {
	case ServiceRef, MethodRef, Callback:
		return true
	}
	return false
}
