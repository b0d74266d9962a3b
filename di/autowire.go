package di

// TypeResolver supplies services by declared type to Autowire.
//
// In interpreted mode ResolveType returns a live instance; in compiled mode it returns
// a ServiceRef to the matching key.
type TypeResolver interface {
	ResolveType(typeName string) (any, error)
	IsInstance(v any, typeName string) bool
}

// Autowire matches the supplied positional args against params and fills the gaps by
// type. For parameter j with the cursor at args[i]:
//
//  1. typed and no args[i]: synthesize from the type, keep the cursor;
//  2. typed, more parameters left than arguments, and args[i] is neither a reference
//     nor an instance of the type: synthesize, keep the cursor;
//  3. no args[i] but a default: use the default;
//  4. no args[i] and no default: fail with UnresolvableParameterError;
//  5. otherwise consume args[i].
//
// Arguments left over once every parameter is filled are an ArityMismatchError.
func Autowire(callee string, params []Param, args []any, r TypeResolver) ([]any, error) {
	out := make([]any, 0, len(params))
	i := 0
	for j, p := range params {
		has := i < len(args)
		switch {
		case p.Type != "" && !has:
			v, err := r.ResolveType(p.Type)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		case p.Type != "" && len(params)-j > len(args)-i && !isReference(args[i]) && !r.IsInstance(args[i], p.Type):
			v, err := r.ResolveType(p.Type)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		case !has && p.HasDefault:
			out = append(out, p.Default)
		case !has:
			return nil, UnresolvableParameterError{Param: p.Name, Index: j}
		default:
			out = append(out, args[i])
			i++
		}
	}
	if i < len(args) {
		return nil, ArityMismatchError{Callee: callee, Want: len(params), Got: len(out) + len(args) - i}
	}
	return out, nil
}
