package di

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// callFunc invokes fn with args, converting each argument to the parameter type.
// A trailing error result is returned as the error; the first non-error result, if
// any, is returned as the value.
func callFunc(callee string, fn any, args []any) (any, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, invalid("callable "+callee, fmt.Sprintf("%T is not a function", fn))
	}
	ft := fv.Type()
	n := ft.NumIn()
	if ft.IsVariadic() {
		if len(args) < n-1 {
			return nil, ArityMismatchError{Callee: callee, Want: n - 1, Got: len(args)}
		}
	} else if len(args) != n {
		return nil, ArityMismatchError{Callee: callee, Want: n, Got: len(args)}
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		pt := paramType(ft, i)
		v, err := convertArg(a, pt)
		if err != nil {
			return nil, invalid(fmt.Sprintf("argument %d of %s", i, callee), err.Error())
		}
		in[i] = v
	}
	return unpackResults(fv.Call(in))
}

func paramType(ft reflect.Type, i int) reflect.Type {
	if ft.IsVariadic() && i >= ft.NumIn()-1 {
		return ft.In(ft.NumIn() - 1).Elem()
	}
	return ft.In(i)
}

func unpackResults(out []reflect.Value) (any, error) {
	if len(out) == 0 {
		return nil, nil
	}
	last := out[len(out)-1]
	if last.Type().Implements(errorType) {
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

// convertArg adapts a resolved value to t: assignable values pass through, numbers
// convert between numeric kinds, and []any converts element-wise into other slices.
func convertArg(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use nil as %s", t)
	}
	v := reflect.ValueOf(a)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if isNumeric(v.Kind()) && isNumeric(t.Kind()) {
		return v.Convert(t), nil
	}
	if v.Kind() == reflect.String && t.Kind() == reflect.String {
		return v.Convert(t), nil
	}
	if v.Kind() == reflect.Slice && t.Kind() == reflect.Slice {
		out := reflect.MakeSlice(t, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			e, err := convertArg(v.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(e)
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", v.Type(), t)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// callMethod invokes method on recv by name.
func callMethod(recv any, method string, args []any) (any, error) {
	if recv == nil {
		return nil, UnknownMethodError{Type: "<nil>", Method: method}
	}
	m := reflect.ValueOf(recv).MethodByName(method)
	if !m.IsValid() {
		return nil, UnknownMethodError{Type: NameOf(recv), Method: method}
	}
	return callFunc(NameOf(recv)+"."+method, m.Interface(), args)
}

// CheckProperty reports whether name is an exported field of the struct type t,
// or of the struct t points to.
func CheckProperty(t reflect.Type, name string) error {
	typ := t.String()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return UnknownPropertyError{Type: typ, Property: name, Reason: "cannot be set on a non struct type"}
	}
	sf, ok := t.FieldByName(name)
	if !ok {
		return UnknownPropertyError{Type: typ, Property: name, Reason: "does not exist"}
	}
	if !sf.IsExported() {
		return UnknownPropertyError{Type: typ, Property: name, Reason: "is not exported"}
	}
	return nil
}

// setField assigns v to the exported field name of the struct recv points to.
func setField(recv any, name string, v any) error {
	typ := NameOf(recv)
	rv := reflect.ValueOf(recv)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return UnknownPropertyError{Type: typ, Property: name, Reason: "cannot be set on a non struct pointer"}
	}
	if err := CheckProperty(rv.Type(), name); err != nil {
		return err
	}
	sf, _ := rv.Elem().Type().FieldByName(name)
	fv, err := rv.Elem().FieldByIndexErr(sf.Index)
	if err != nil {
		return UnknownPropertyError{Type: typ, Property: name, Reason: "is behind a nil embedded pointer"}
	}
	val, err := convertArg(v, fv.Type())
	if err != nil {
		return invalid("property "+name+" of "+typ, err.Error())
	}
	fv.Set(val)
	return nil
}

// ReturnsError reports whether the function type ft has a trailing error result.
func ReturnsError(ft reflect.Type) bool {
	return ft.Kind() == reflect.Func && ft.NumOut() > 0 && ft.Out(ft.NumOut()-1) == errorType
}

// zeroOf returns a fresh zero value of t; pointer types get a newly allocated element.
func zeroOf(t reflect.Type) any {
	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface()
	}
	return reflect.New(t).Elem().Interface()
}
