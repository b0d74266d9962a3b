package di

import (
	"fmt"
	"reflect"
)

var (
	anyType    = reflect.TypeOf((*any)(nil)).Elem()
	stringType = reflect.TypeOf((*string)(nil)).Elem()
	refTypes   = map[reflect.Type]bool{
		reflect.TypeOf((*ServiceRef)(nil)).Elem(): true,
		reflect.TypeOf((*MethodRef)(nil)).Elem():  true,
		reflect.TypeOf((*Callback)(nil)).Elem():   true,
	}
)

// KeepsType reports whether the slice, array or map rv keeps its type once its
// elements are resolved. That holds when the element type is concrete, is not a
// reference type, and every string element still resolves to a value of that type.
// Collections that do not keep their type resolve to []any, or to a map with the
// same key type and any values.
func KeepsType(rv reflect.Value, params *Parameters) bool {
	et := rv.Type().Elem()
	if et.Kind() == reflect.Interface || refTypes[et] {
		return false
	}
	if rv.Kind() == reflect.Map {
		iter := rv.MapRange()
		for iter.Next() {
			if !keepsElem(iter.Value(), et, params) {
				return false
			}
		}
		return true
	}
	for i := 0; i < rv.Len(); i++ {
		if !keepsElem(rv.Index(i), et, params) {
			return false
		}
	}
	return true
}

func keepsElem(v reflect.Value, et reflect.Type, params *Parameters) bool {
	switch v.Kind() {
	case reflect.String:
		if v.Type() != stringType {
			return true
		}
		r := params.Resolve(v.String())
		return r != nil && reflect.TypeOf(r).AssignableTo(et)
	case reflect.Slice, reflect.Map:
		return v.IsNil() || KeepsType(v, params)
	case reflect.Array:
		return KeepsType(v, params)
	}
	return true
}

// ResolveKey resolves a map key: plain string keys get parameter substitution, other
// keys are used as they are.
func ResolveKey(k reflect.Value, params *Parameters) reflect.Value {
	if k.Type() != stringType {
		return k
	}
	return reflect.ValueOf(fmt.Sprint(params.Resolve(k.String())))
}

func isCollection(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return !rv.IsNil()
	case reflect.Array:
		return true
	}
	return false
}

// resolveCollection resolves every element of rv, keeping its type when KeepsType
// says so.
func (b *Builder) resolveCollection(rv reflect.Value) (any, error) {
	t := rv.Type()
	keep := KeepsType(rv, b.params)

	if rv.Kind() == reflect.Map {
		vt := t.Elem()
		if !keep {
			vt = anyType
		}
		out := reflect.MakeMapWithSize(reflect.MapOf(t.Key(), vt), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			v, err := b.Resolve(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out.SetMapIndex(ResolveKey(iter.Key(), b.params), valueOf(v, vt))
		}
		return out.Interface(), nil
	}

	var out reflect.Value
	switch {
	case !keep:
		out = reflect.MakeSlice(reflect.SliceOf(anyType), rv.Len(), rv.Len())
	case rv.Kind() == reflect.Array:
		out = reflect.New(t).Elem()
	default:
		out = reflect.MakeSlice(t, rv.Len(), rv.Len())
	}
	et := out.Type().Elem()
	for i := 0; i < rv.Len(); i++ {
		v, err := b.Resolve(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out.Index(i).Set(valueOf(v, et))
	}
	return out.Interface(), nil
}

func valueOf(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(v)
}
