package di

// MetaService is one row of a generated container's metadata.
type MetaService struct {
	Key    string
	Type   string
	Method string
}

// Meta is the metadata a generated container embeds: for every service key, its
// declared type and accessor method, plus the supertype table used for by-type lookups.
type Meta struct {
	Services   []MetaService
	Supertypes map[string][]string
}

// ServiceTypes returns the key -> type map.
func (m *Meta) ServiceTypes() map[string]string {
	out := make(map[string]string, len(m.Services))
	for _, s := range m.Services {
		out[s.Key] = s.Type
	}
	return out
}

// Methods returns the key -> accessor name map.
func (m *Meta) Methods() map[string]string {
	out := make(map[string]string, len(m.Services))
	for _, s := range m.Services {
		out[s.Key] = s.Method
	}
	return out
}

// TypeOf returns the declared type of key.
func (m *Meta) TypeOf(key string) (string, bool) {
	k := NormalizeKey(key)
	for _, s := range m.Services {
		if s.Key == k {
			return s.Type, true
		}
	}
	return "", false
}

// MethodOf returns the accessor name of key.
func (m *Meta) MethodOf(key string) (string, bool) {
	k := NormalizeKey(key)
	for _, s := range m.Services {
		if s.Key == k {
			return s.Method, true
		}
	}
	return "", false
}

// KeyByType returns the first key, in declaration order, whose type is assignable to typeName.
func (m *Meta) KeyByType(typeName string) (string, bool) {
	for _, s := range m.Services {
		if s.Type == typeName {
			return s.Key, true
		}
	}
	for _, s := range m.Services {
		if m.Assignable(s.Type, typeName) {
			return s.Key, true
		}
	}
	return "", false
}

// Assignable implements TypeChecker using the supertype table.
func (m *Meta) Assignable(from, to string) bool {
	if from == "" || to == "" {
		return false
	}
	if from == to {
		return true
	}
	for _, s := range m.Supertypes[from] {
		if s == to {
			return true
		}
	}
	return false
}
