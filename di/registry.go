package di

import "fmt"

// Registry is the ordered, add-only set of service definitions.
//
// Keys are normalized like parameter keys. Registration order is preserved and is
// the order used by by-type searches and by code emission.
type Registry struct {
	defs  map[string]*Definition
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: map[string]*Definition{}}
}

// Register creates a shared definition for typeName under key and returns it for
// further configuration.
func (r *Registry) Register(key, typeName string) (*Definition, error) {
	def, err := NewDefinition(typeName)
	if err != nil {
		return nil, err
	}
	if err := r.Add(key, def); err != nil {
		return nil, err
	}
	return def, nil
}

// Add stores def under key. A key can only be defined once.
func (r *Registry) Add(key string, def *Definition) error {
	k := NormalizeKey(key)
	if k == "" {
		return invalid("service key", "must not be empty")
	}
	if def == nil {
		return invalid("definition", "must not be nil")
	}
	if _, exists := r.defs[k]; exists {
		return DuplicateDefinitionError{Key: k}
	}
	r.defs[k] = def
	r.order = append(r.order, k)
	return nil
}

// Get returns the definition for key.
func (r *Registry) Get(key string) (*Definition, bool) {
	d, ok := r.defs[NormalizeKey(key)]
	return d, ok
}

// Has reports whether key is defined.
func (r *Registry) Has(key string) bool {
	_, ok := r.defs[NormalizeKey(key)]
	return ok
}

// Keys returns the defined keys in registration order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of definitions.
func (r *Registry) Len() int { return len(r.order) }

// ByType returns the first definition whose type is exactly typeName, or failing that
// the first (in registration order) whose type is assignable to it. Definition types
// naming a parameter are resolved through params first; a nil params compares them as
// written.
func (r *Registry) ByType(typeName string, tc TypeChecker, params *Parameters) (string, *Definition, bool) {
	types := make([]string, len(r.order))
	for i, k := range r.order {
		types[i] = resolvedType(r.defs[k], params)
		if types[i] == typeName {
			return k, r.defs[k], true
		}
	}
	if tc == nil {
		return "", nil, false
	}
	for i, k := range r.order {
		if tc.Assignable(types[i], typeName) {
			return k, r.defs[k], true
		}
	}
	return "", nil, false
}

func resolvedType(d *Definition, params *Parameters) string {
	if params == nil {
		return d.typeName
	}
	return fmt.Sprint(params.Resolve(d.typeName))
}
