package di

import (
	"reflect"
	"sync"
)

// Locator is the runtime API shared by Container, Builder and generated containers.
type Locator interface {
	Get(key string) (any, error)
	Has(key string) bool
	GetByType(typeName string) (any, error)
	GetKeyByType(typeName string) (string, error)
	Parameter(key string) (any, bool)
	Parameters() map[string]any
}

// Getter is the subset of Locator used by the typed helpers.
type Getter interface {
	Get(key string) (any, error)
}

// Container is the runtime base of every container: a parameter snapshot plus the
// cache of live instances. Generated containers embed it and add one accessor per
// service.
//
// Map access is guarded, but construction is not serialized: two goroutines may build
// the same shared service concurrently, in which case the first Share wins.
type Container struct {
	params *Parameters
	meta   *Meta
	types  TypeChecker

	mu       sync.RWMutex
	services map[string]any
	order    []string
}

// NewContainer returns a container over params. A nil params means an empty store.
func NewContainer(params *Parameters) *Container {
	if params == nil {
		params = NewParameters()
	}
	return &Container{params: params, services: map[string]any{}}
}

// WithMeta attaches generated metadata and returns the container for chaining.
func (c *Container) WithMeta(m *Meta) *Container {
	c.meta = m
	return c
}

// WithTypes attaches a type checker for by-type lookups and returns the container.
func (c *Container) WithTypes(tc TypeChecker) *Container {
	c.types = tc
	return c
}

// Meta returns the attached metadata, or nil.
func (c *Container) Meta() *Meta { return c.meta }

// Add stores a live instance under key. Keys are unique and nil values are rejected.
func (c *Container) Add(key string, svc any) error {
	k := NormalizeKey(key)
	if k == "" {
		return invalid("service key", "must not be empty")
	}
	if svc == nil {
		return invalid("service "+k, "instance must not be nil")
	}
	if rv := reflect.ValueOf(svc); rv.Kind() == reflect.Func {
		return invalid("service "+k, "instance must not be a function")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.services[k]; exists {
		return DuplicateServiceError{Key: k}
	}
	c.services[k] = svc
	c.order = append(c.order, k)
	return nil
}

// Share caches svc under key unless an instance is already cached, and returns the
// cached instance. The first construction wins.
func (c *Container) Share(key string, svc any) any {
	k := NormalizeKey(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, exists := c.services[k]; exists {
		return cur
	}
	c.services[k] = svc
	c.order = append(c.order, k)
	return svc
}

// Lookup returns the cached instance for key.
func (c *Container) Lookup(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	svc, ok := c.services[NormalizeKey(key)]
	return svc, ok
}

// Keys returns the cached keys in insertion order.
func (c *Container) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Get returns the cached instance for key.
func (c *Container) Get(key string) (any, error) {
	if svc, ok := c.Lookup(key); ok {
		return svc, nil
	}
	return nil, UndefinedServiceError{Key: NormalizeKey(key)}
}

// Has reports whether an instance is cached for key.
func (c *Container) Has(key string) bool {
	_, ok := c.Lookup(key)
	return ok
}

// LookupKeyByType returns the first cached key, in insertion order, whose instance is
// assignable to typeName.
func (c *Container) LookupKeyByType(typeName string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, k := range c.order {
		if c.isInstance(k, c.services[k], typeName) {
			return k, true
		}
	}
	return "", false
}

// LookupByType returns the first cached instance assignable to typeName.
func (c *Container) LookupByType(typeName string) (any, bool) {
	k, ok := c.LookupKeyByType(typeName)
	if !ok {
		return nil, false
	}
	return c.Lookup(k)
}

// GetByType returns the first cached instance assignable to typeName.
func (c *Container) GetByType(typeName string) (any, error) {
	if svc, ok := c.LookupByType(typeName); ok {
		return svc, nil
	}
	return nil, NoMatchingServiceError{Type: typeName}
}

// GetKeyByType returns the key of the first cached instance assignable to typeName.
func (c *Container) GetKeyByType(typeName string) (string, error) {
	if k, ok := c.LookupKeyByType(typeName); ok {
		return k, nil
	}
	return "", NoMatchingServiceError{Type: typeName}
}

// Parameter returns a parameter from the snapshot.
func (c *Container) Parameter(key string) (any, bool) { return c.params.Get(key) }

// Parameters returns a copy of the parameter snapshot.
func (c *Container) Parameters() map[string]any { return c.params.All() }

// Params returns the underlying parameter store.
func (c *Container) Params() *Parameters { return c.params }

func (c *Container) isInstance(key string, svc any, typeName string) bool {
	name := NameOf(svc)
	if c.meta != nil {
		if declared, ok := c.meta.TypeOf(key); ok {
			name = declared
		}
		if c.meta.Assignable(name, typeName) {
			return true
		}
	}
	if c.types != nil {
		if ic, ok := c.types.(InstanceChecker); ok {
			return ic.IsInstance(svc, typeName)
		}
		return c.types.Assignable(name, typeName)
	}
	return name == typeName
}

// GetAs returns the service under key typed as T.
//
// It returns the Getter's error when the key cannot be resolved, and WrongTypeError
// when the instance is not a T.
func GetAs[T any](g Getter, key string) (T, error) {
	var zero T
	raw, err := g.Get(key)
	if err != nil {
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		return zero, WrongTypeError{Key: NormalizeKey(key), GotType: NameOf(raw)}
	}
	return v, nil
}

// MustGetAs is like GetAs but panics on error.
func MustGetAs[T any](g Getter, key string) T {
	v, err := GetAs[T](g, key)
	if err != nil {
		panic(err)
	}
	return v
}

// GetByTypeAs returns the first service assignable to T.
func GetByTypeAs[T any](l Locator) (T, error) {
	var zero T
	name := TypeName[T]()
	raw, err := l.GetByType(name)
	if err != nil {
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		return zero, WrongTypeError{Key: name, GotType: NameOf(raw)}
	}
	return v, nil
}
