package compiler

import (
	"fmt"
	"go/token"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/sghaida/dic/codegen"
	"github.com/sghaida/dic/di"
)

// Receiver and local names used by generated methods.
const (
	recv    = "c"
	local   = "service"
	cached  = "cached"
	tempPfx = "dep"
)

var reservedLocals = map[string]bool{
	recv: true, local: true, cached: true, "ok": true, "err": true,
	"key": true, "typeName": true, "svc": true,
}

// unit is the state of one Compile call.
type unit struct {
	c     *Compiler
	b     *di.Builder
	types *di.Types
	name  string
	file  *codegen.File
	rt    string

	keys     []string
	methods  map[string]string
	svcTypes map[string]string
	graph    *graph
}

func newUnit(c *Compiler, name string) *unit {
	return &unit{
		c:        c,
		b:        c.builder,
		types:    c.builder.Types(),
		name:     name,
		methods:  map[string]string{},
		svcTypes: map[string]string{},
		graph:    newGraph(),
	}
}

func (u *unit) compile() (*codegen.File, error) {
	u.file = codegen.NewFile(u.c.pkg)
	u.file.Header = append([]string(nil), u.c.header...)
	u.rt = u.file.AddNamedImport(u.c.runtime, "di")

	u.keys = u.b.Definitions().Keys()
	owners := map[string]string{}
	for _, key := range u.keys {
		m := AccessorName(key)
		if other, taken := owners[m]; taken {
			return nil, di.InvalidArgumentError{
				What:   "service key " + strconv.Quote(key),
				Reason: fmt.Sprintf("accessor %s is already used by %q", m, other),
			}
		}
		owners[m] = key
		u.methods[key] = m

		def, _ := u.b.Definition(key)
		u.svcTypes[key] = u.b.TypeOf(def)
		u.graph.node(key)
	}

	accessors := make([]codegen.Decl, 0, len(u.keys))
	for _, key := range u.keys {
		def, _ := u.b.Definition(key)
		u.c.log.WithField("service", key).WithField("type", u.svcTypes[key]).Debug("compiling service")
		fn, err := u.accessor(key, def)
		if err != nil {
			return nil, err
		}
		accessors = append(accessors, fn)
	}
	if err := u.graph.check(u.keys); err != nil {
		return nil, err
	}

	params, err := u.parametersDecl()
	if err != nil {
		return nil, err
	}
	u.file.Add(u.typeDecl(), params, u.metaDecl(), u.constructorDecl())
	u.file.Add(u.fixedMethods()...)
	u.file.Add(accessors...)
	u.file.Add(codegen.VarDecl{
		Name:  "_",
		Type:  u.rt + ".Locator",
		Value: codegen.CallOf(codegen.Id("(*"+u.name+")"), codegen.Nil),
	})
	return u.file, nil
}

//
// ----------------------------------------------------------------------------
// Fixed declarations
// ----------------------------------------------------------------------------
//

func (u *unit) paramsVar() string { return lowerFirst(u.name) + "Parameters" }
func (u *unit) metaVar() string   { return lowerFirst(u.name) + "Meta" }

func (u *unit) self() *codegen.Field { return &codegen.Field{Name: recv, Type: "*" + u.name} }

func (u *unit) rtSel(name string) codegen.Selector { return codegen.Sel(codegen.Id(u.rt), name) }

func (u *unit) typeDecl() codegen.TypeDecl {
	return codegen.TypeDecl{
		Doc:    []string{fmt.Sprintf("%s is a dependency injection container with %d compiled services.", u.name, len(u.keys))},
		Name:   u.name,
		Fields: []codegen.Field{{Type: "*" + u.rt + ".Container"}},
	}
}

func (u *unit) parametersDecl() (codegen.VarDecl, error) {
	params := u.b.Params()
	lit := codegen.Composite{Type: "map[string]any", Multiline: true}
	for _, k := range params.Keys() {
		v, _ := params.Get(k)
		if _, err := codegen.Literal(v); err != nil {
			return codegen.VarDecl{}, di.InvalidArgumentError{What: "parameter " + strconv.Quote(k), Reason: err.Error()}
		}
		lit.Elts = append(lit.Elts, codegen.KeyValue{Key: codegen.Lit{Value: k}, Value: codegen.ParamRef{Key: k, Value: v}})
	}
	return codegen.VarDecl{
		Doc:   []string{u.paramsVar() + " is the parameter snapshot taken at compile time."},
		Name:  u.paramsVar(),
		Value: lit,
	}, nil
}

func (u *unit) metaDecl() codegen.VarDecl {
	services := codegen.Composite{Type: "[]" + u.rt + ".MetaService", Multiline: true}
	var typeNames []string
	seen := map[string]bool{}
	for _, key := range u.keys {
		typ := u.svcTypes[key]
		services.Elts = append(services.Elts, codegen.Composite{Elts: []codegen.Expr{
			codegen.KeyValue{Key: codegen.Id("Key"), Value: codegen.Lit{Value: key}},
			codegen.KeyValue{Key: codegen.Id("Type"), Value: codegen.Lit{Value: typ}},
			codegen.KeyValue{Key: codegen.Id("Method"), Value: codegen.Lit{Value: u.methods[key]}},
		}})
		if !seen[typ] {
			seen[typ] = true
			typeNames = append(typeNames, typ)
		}
	}
	sort.Strings(typeNames)

	supertypes := codegen.Composite{Type: "map[string][]string", Multiline: true}
	for _, typ := range typeNames {
		if sup := u.supertypes(typ); len(sup) > 0 {
			supertypes.Elts = append(supertypes.Elts, codegen.KeyValue{Key: codegen.Lit{Value: typ}, Value: codegen.Lit{Value: sup}})
		}
	}

	return codegen.VarDecl{
		Doc:  []string{u.metaVar() + " maps service keys to their types and accessors."},
		Name: u.metaVar(),
		Value: codegen.Composite{Type: u.rt + ".Meta", Multiline: true, Elts: []codegen.Expr{
			codegen.KeyValue{Key: codegen.Id("Services"), Value: services},
			codegen.KeyValue{Key: codegen.Id("Supertypes"), Value: supertypes},
		}},
	}
}

// supertypes lists every described type typ is assignable to: the declared
// Implements chain first, then reflect assignability.
func (u *unit) supertypes(typ string) []string {
	out := u.types.Supertypes(typ)
	seen := map[string]bool{typ: true}
	for _, s := range out {
		seen[s] = true
	}
	for _, name := range u.types.Names() {
		if !seen[name] && u.types.Assignable(typ, name) {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func (u *unit) constructorDecl() codegen.FuncDecl {
	base := codegen.CallOf(
		codegen.Sel(codegen.CallOf(u.rtSel("NewContainer"), codegen.CallOf(u.rtSel("ParametersOf"), codegen.Id(u.paramsVar()))), "WithMeta"),
		codegen.Unary{Op: "&", X: codegen.Id(u.metaVar())},
	)
	return codegen.FuncDecl{
		Doc:     []string{fmt.Sprintf("New%s returns an empty %s holding the compiled parameters.", u.name, u.name)},
		Name:    "New" + u.name,
		Results: []string{"*" + u.name},
		Body: []codegen.Stmt{codegen.Return{Results: []codegen.Expr{codegen.Composite{
			Type: u.name,
			Addr: true,
			Elts: []codegen.Expr{codegen.KeyValue{Key: codegen.Id("Container"), Value: base}},
		}}}},
	}
}

func (u *unit) fixedMethods() []codegen.Decl {
	c := codegen.Id(recv)
	key := codegen.Id("key")
	typeName := codegen.Id("typeName")
	ok := codegen.Id("ok")
	svc := codegen.Id("svc")
	meta := codegen.Id(u.metaVar())

	var cases []codegen.Case
	for _, k := range u.keys {
		cases = append(cases, codegen.Case{
			Values: []codegen.Expr{codegen.Lit{Value: k}},
			Body:   []codegen.Stmt{codegen.Return{Results: []codegen.Expr{codegen.CallOf(codegen.Sel(c, u.methods[k]))}}},
		})
	}
	getBody := []codegen.Stmt{
		codegen.Assign{Lhs: []codegen.Expr{key}, Rhs: []codegen.Expr{codegen.CallOf(u.rtSel("NormalizeKey"), key)}},
		codegen.If{
			Init: codegen.Define{Names: []string{"svc", "ok"}, Values: []codegen.Expr{codegen.CallOf(codegen.Sel(c, "Lookup"), key)}},
			Cond: ok,
			Body: []codegen.Stmt{codegen.Return{Results: []codegen.Expr{svc, codegen.Nil}}},
		},
	}
	if len(cases) > 0 {
		getBody = append(getBody, codegen.Switch{Tag: key, Cases: cases})
	}
	getBody = append(getBody, codegen.Return{Results: []codegen.Expr{
		codegen.Nil,
		codegen.Composite{Type: u.rt + ".UndefinedServiceError", Elts: []codegen.Expr{codegen.KeyValue{Key: codegen.Id("Key"), Value: key}}},
	}})

	noMatch := codegen.Composite{Type: u.rt + ".NoMatchingServiceError", Elts: []codegen.Expr{codegen.KeyValue{Key: codegen.Id("Type"), Value: typeName}}}

	return []codegen.Decl{
		codegen.FuncDecl{
			Doc:     []string{"Get returns the service registered under key, building it on first use."},
			Recv:    u.self(),
			Name:    "Get",
			Params:  []codegen.Field{{Name: "key", Type: "string"}},
			Results: []string{"any", "error"},
			Body:    getBody,
		},
		codegen.FuncDecl{
			Doc:     []string{"Has reports whether key is a live or compiled service."},
			Recv:    u.self(),
			Name:    "Has",
			Params:  []codegen.Field{{Name: "key", Type: "string"}},
			Results: []string{"bool"},
			Body: []codegen.Stmt{
				codegen.If{
					Cond: codegen.CallOf(codegen.Sel(codegen.Sel(c, "Container"), "Has"), key),
					Body: []codegen.Stmt{codegen.Return{Results: []codegen.Expr{codegen.Id("true")}}},
				},
				codegen.Define{Names: []string{"_", "ok"}, Values: []codegen.Expr{codegen.CallOf(codegen.Sel(meta, "MethodOf"), key)}},
				codegen.Return{Results: []codegen.Expr{ok}},
			},
		},
		codegen.FuncDecl{
			Doc:     []string{"GetByType returns the first live or compiled service assignable to typeName."},
			Recv:    u.self(),
			Name:    "GetByType",
			Params:  []codegen.Field{{Name: "typeName", Type: "string"}},
			Results: []string{"any", "error"},
			Body: []codegen.Stmt{
				codegen.If{
					Init: codegen.Define{Names: []string{"svc", "ok"}, Values: []codegen.Expr{codegen.CallOf(codegen.Sel(c, "LookupByType"), typeName)}},
					Cond: ok,
					Body: []codegen.Stmt{codegen.Return{Results: []codegen.Expr{svc, codegen.Nil}}},
				},
				codegen.If{
					Init: codegen.Define{Names: []string{"key", "ok"}, Values: []codegen.Expr{codegen.CallOf(codegen.Sel(meta, "KeyByType"), typeName)}},
					Cond: ok,
					Body: []codegen.Stmt{codegen.Return{Results: []codegen.Expr{codegen.CallOf(codegen.Sel(c, "Get"), key)}}},
				},
				codegen.Return{Results: []codegen.Expr{codegen.Nil, noMatch}},
			},
		},
		codegen.FuncDecl{
			Doc:     []string{"GetKeyByType returns the key of the first live or compiled service assignable to typeName."},
			Recv:    u.self(),
			Name:    "GetKeyByType",
			Params:  []codegen.Field{{Name: "typeName", Type: "string"}},
			Results: []string{"string", "error"},
			Body: []codegen.Stmt{
				codegen.If{
					Init: codegen.Define{Names: []string{"key", "ok"}, Values: []codegen.Expr{codegen.CallOf(codegen.Sel(c, "LookupKeyByType"), typeName)}},
					Cond: ok,
					Body: []codegen.Stmt{codegen.Return{Results: []codegen.Expr{key, codegen.Nil}}},
				},
				codegen.If{
					Init: codegen.Define{Names: []string{"key", "ok"}, Values: []codegen.Expr{codegen.CallOf(codegen.Sel(meta, "KeyByType"), typeName)}},
					Cond: ok,
					Body: []codegen.Stmt{codegen.Return{Results: []codegen.Expr{key, codegen.Nil}}},
				},
				codegen.Return{Results: []codegen.Expr{codegen.Lit{Value: ""}, noMatch}},
			},
		},
	}
}

//
// ----------------------------------------------------------------------------
// Accessors
// ----------------------------------------------------------------------------
//

func (u *unit) accessor(key string, def *di.Definition) (codegen.FuncDecl, error) {
	typ := u.svcTypes[key]
	rt, err := u.typeExpr(typ)
	if err != nil {
		return codegen.FuncDecl{}, err
	}
	e := &emitter{u: u, key: key, zero: codegen.Zero{Type: rt}, record: true}
	svc := codegen.Id(local)

	doc := fmt.Sprintf("%s builds a new %q service on every call.", u.methods[key], key)
	if def.Shared() {
		doc = fmt.Sprintf("%s returns the shared %q service, building it on first use.", u.methods[key], key)
		e.emit(codegen.If{
			Init: codegen.Define{Names: []string{cached, "ok"}, Values: []codegen.Expr{codegen.CallOf(codegen.Sel(codegen.Id(recv), "Lookup"), codegen.Lit{Value: key})}},
			Cond: codegen.Id("ok"),
			Body: []codegen.Stmt{codegen.Return{Results: []codegen.Expr{codegen.TypeAssert{X: codegen.Id(cached), Type: rt}, codegen.Nil}}},
		})
	}

	build, fallible, err := e.construct(def, typ)
	if err != nil {
		return codegen.FuncDecl{}, err
	}
	if fallible {
		e.emit(codegen.Define{Names: []string{local, "err"}, Values: []codegen.Expr{build}}, codegen.IfErr(e.zero, codegen.Id("err")))
	} else {
		e.emit(codegen.Define{Names: []string{local}, Values: []codegen.Expr{build}})
	}

	if def.Shared() {
		share := codegen.CallOf(codegen.Sel(codegen.Id(recv), "Share"), codegen.Lit{Value: key}, svc)
		e.emit(codegen.Assign{Lhs: []codegen.Expr{svc}, Rhs: []codegen.Expr{codegen.TypeAssert{X: share, Type: rt}}})
		// The instance is reachable from the cache from here on.
		e.record = false
	}

	for _, p := range def.PropertySetters() {
		if err := u.checkProperty(typ, p.Name()); err != nil {
			return codegen.FuncDecl{}, err
		}
		v, err := e.value(p.Value())
		if err != nil {
			return codegen.FuncDecl{}, err
		}
		e.emit(codegen.Assign{Lhs: []codegen.Expr{codegen.Sel(svc, p.Name())}, Rhs: []codegen.Expr{v}})
	}
	for _, mc := range def.MethodCalls() {
		if err := e.call(mc, typ); err != nil {
			return codegen.FuncDecl{}, err
		}
	}
	e.emit(codegen.Return{Results: []codegen.Expr{svc, codegen.Nil}})

	return codegen.FuncDecl{
		Doc:     []string{doc},
		Recv:    u.self(),
		Name:    u.methods[key],
		Results: []string{rt, "error"},
		Body:    e.stmts,
	}, nil
}

// emitter accumulates the statements of one accessor.
type emitter struct {
	u      *unit
	key    string
	zero   codegen.Expr
	stmts  []codegen.Stmt
	temps  int
	record bool
}

func (e *emitter) emit(s ...codegen.Stmt) { e.stmts = append(e.stmts, s...) }

func (e *emitter) temp() string {
	e.temps++
	return tempPfx + strconv.Itoa(e.temps)
}

// hoist binds a fallible call to a fresh temporary followed by an error check.
func (e *emitter) hoist(call codegen.Expr) codegen.Ident {
	name := e.temp()
	e.emit(codegen.Define{Names: []string{name, "err"}, Values: []codegen.Expr{call}}, codegen.IfErr(e.zero, codegen.Id("err")))
	return codegen.Id(name)
}

func (e *emitter) construct(def *di.Definition, typ string) (codegen.Expr, bool, error) {
	switch f := def.Factory().(type) {
	case nil:
		return e.constructor(typ, def.Arguments())
	case di.MethodRef:
		return e.methodRef(f)
	case di.ServiceFactory:
		args, err := e.values(def.Arguments())
		if err != nil {
			return nil, false, err
		}
		return e.method(f.Service.Key(), f.Method, args)
	case di.FuncFactory:
		return e.funcCall(f.Symbol, def.Arguments())
	case di.StaticFactory:
		return e.funcCall(f.Symbol(), def.Arguments())
	}
	return nil, false, di.InvalidFactoryMethodError{Key: e.key, Reason: fmt.Sprintf("unsupported factory %T", def.Factory())}
}

func (e *emitter) constructor(typ string, args []any) (codegen.Expr, bool, error) {
	info, ok := e.u.types.Lookup(typ)
	if !ok {
		return nil, false, di.UnknownTypeError{Type: typ}
	}
	ctor := info.Constructor
	if ctor == nil {
		if len(args) > 0 {
			return nil, false, di.ArityMismatchError{Callee: typ, Want: 0, Got: len(args)}
		}
		rt, err := e.u.typeExpr(typ)
		if err != nil {
			return nil, false, err
		}
		if strings.HasPrefix(rt, "*") {
			return codegen.Composite{Type: rt[1:], Addr: true}, false, nil
		}
		return codegen.Composite{Type: rt}, false, nil
	}

	if len(ctor.Params) > 0 {
		wired, err := di.Autowire(ctor.Symbol, ctor.Params, args, compiledWiring{e.u})
		if err != nil {
			return nil, false, err
		}
		args = wired
	}
	fun, err := e.u.symbol(ctor.Symbol, ctor.Import)
	if err != nil {
		return nil, false, err
	}
	exprs, err := e.values(args)
	if err != nil {
		return nil, false, err
	}
	return codegen.CallOf(fun, exprs...), returnsError(ctor), nil
}

func (e *emitter) funcCall(symbol string, args []any) (codegen.Expr, bool, error) {
	f, known := e.u.types.Func(symbol)
	imp := ""
	if known {
		imp = f.Import
	}
	fun, err := e.u.symbol(symbol, imp)
	if err != nil {
		return nil, false, err
	}
	exprs, err := e.values(args)
	if err != nil {
		return nil, false, err
	}
	return codegen.CallOf(fun, exprs...), known && returnsError(f), nil
}

func (e *emitter) methodRef(r di.MethodRef) (codegen.Expr, bool, error) {
	target, err := e.service(r.Service().Key())
	if err != nil {
		return nil, false, err
	}
	args, err := e.values(r.Arguments())
	if err != nil {
		return nil, false, err
	}
	return e.callOn(target, r.Service().Key(), r.Method(), args)
}

// method calls method on the service key with already emitted args.
func (e *emitter) method(key, method string, args []codegen.Expr) (codegen.Expr, bool, error) {
	target, err := e.service(key)
	if err != nil {
		return nil, false, err
	}
	return e.callOn(target, key, method, args)
}

func (e *emitter) callOn(target codegen.Expr, key, method string, args []codegen.Expr) (codegen.Expr, bool, error) {
	typ, rtype := e.u.keyType(key)
	fallible, err := e.u.methodInfo(typ, rtype, method)
	if err != nil {
		return nil, false, err
	}
	return codegen.CallOf(codegen.Sel(target, method), args...), fallible, nil
}

func (e *emitter) call(mc di.MethodCall, typ string) error {
	args, err := e.values(mc.Arguments())
	if err != nil {
		return err
	}

	var (
		call     codegen.Expr
		fallible bool
	)
	switch t := mc.Target().(type) {
	case nil:
		if fallible, err = e.u.methodInfo(typ, nil, mc.Method()); err != nil {
			return err
		}
		call = codegen.CallOf(codegen.Sel(codegen.Id(local), mc.Method()), args...)
	case di.ServiceRef:
		if call, fallible, err = e.method(t.Key(), mc.Method(), args); err != nil {
			return err
		}
	case string:
		symbol := t + "." + mc.Method()
		f, known := e.u.types.Func(symbol)
		imp := ""
		if known {
			imp = f.Import
		}
		fun, err := e.u.symbol(symbol, imp)
		if err != nil {
			return err
		}
		call = codegen.CallOf(fun, args...)
		fallible = known && returnsError(f)
	default:
		return di.InvalidArgumentError{
			What:   "method call target of service " + strconv.Quote(e.key),
			Reason: di.NameOf(t) + " is a live value and cannot be referenced from generated code",
		}
	}

	if fallible {
		e.emit(codegen.If{
			Init: codegen.Define{Names: []string{"err"}, Values: []codegen.Expr{call}},
			Cond: codegen.Binary{Op: "!=", X: codegen.Id("err"), Y: codegen.Nil},
			Body: []codegen.Stmt{codegen.Return{Results: []codegen.Expr{e.zero, codegen.Id("err")}}},
		})
		return nil
	}
	e.emit(codegen.ExprStmt{X: call})
	return nil
}

//
// ----------------------------------------------------------------------------
// Values
// ----------------------------------------------------------------------------
//

func (e *emitter) values(vs []any) ([]codegen.Expr, error) {
	out := make([]codegen.Expr, 0, len(vs))
	for _, v := range vs {
		x, err := e.value(v)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

// value is the compiled counterpart of Builder.Resolve.
func (e *emitter) value(v any) (codegen.Expr, error) {
	switch x := v.(type) {
	case nil:
		return codegen.Nil, nil
	case di.Callback:
		return e.value(x.Call())
	case di.ServiceRef:
		return e.service(x.Key())
	case di.MethodRef:
		call, fallible, err := e.methodRef(x)
		if err != nil {
			return nil, err
		}
		if fallible {
			return e.hoist(call), nil
		}
		return call, nil
	case *di.Builder:
		if x == e.u.b {
			return codegen.Id(recv), nil
		}
	case *di.Container:
		if x == e.u.b.Container {
			return codegen.Id(recv), nil
		}
	case string:
		return e.str(x)
	}
	if rv := reflect.ValueOf(v); isCollection(rv) {
		return e.collection(rv)
	}
	if _, err := codegen.Literal(v); err != nil {
		return nil, di.InvalidArgumentError{What: "argument of service " + strconv.Quote(e.key), Reason: err.Error()}
	}
	return codegen.Lit{Value: v}, nil
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

// collection emits a composite literal for a slice, array or map, typed the way
// Builder.Resolve types the live value.
func (e *emitter) collection(rv reflect.Value) (codegen.Expr, error) {
	t := rv.Type()
	params := e.u.b.Params()
	keep := di.KeepsType(rv, params)
	bad := func(err error) error {
		return di.InvalidArgumentError{What: "argument of service " + strconv.Quote(e.key), Reason: err.Error()}
	}

	if rv.Kind() == reflect.Map {
		typ, err := codegen.TypeExpr(t)
		if !keep {
			var kt string
			kt, err = codegen.TypeExpr(t.Key())
			typ = "map[" + kt + "]any"
		}
		if err != nil {
			return nil, bad(err)
		}
		type entry struct {
			sortKey string
			key     any
			val     any
		}
		entries := make([]entry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := di.ResolveKey(iter.Key(), params).Interface()
			sk, err := codegen.Literal(k)
			if err != nil {
				return nil, bad(err)
			}
			entries = append(entries, entry{sortKey: sk, key: k, val: iter.Value().Interface()})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].sortKey < entries[j].sortKey })
		lit := codegen.Composite{Type: typ}
		for _, en := range entries {
			val, err := e.value(en.val)
			if err != nil {
				return nil, err
			}
			lit.Elts = append(lit.Elts, codegen.KeyValue{Key: codegen.Lit{Value: en.key}, Value: val})
		}
		return lit, nil
	}

	typ := "[]any"
	if keep {
		var err error
		if typ, err = codegen.TypeExpr(t); err != nil {
			return nil, bad(err)
		}
	}
	lit := codegen.Composite{Type: typ}
	for i := 0; i < rv.Len(); i++ {
		x, err := e.value(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		lit.Elts = append(lit.Elts, x)
	}
	return lit, nil
}

// str substitutes parameters into a string argument.
func (e *emitter) str(text string) (codegen.Expr, error) {
	params := e.u.b.Params()
	if k, ok := params.Placeholder(text); ok {
		if v, ok := params.Get(k); ok {
			return e.param(k, v)
		}
		return codegen.Lit{Value: text}, nil
	}

	segs := params.Segments(text)
	if len(segs) == 0 || (len(segs) == 1 && !segs[0].IsParam()) {
		return codegen.Lit{Value: text}, nil
	}
	parts := make([]codegen.Expr, 0, len(segs))
	for _, s := range segs {
		if !s.IsParam() {
			parts = append(parts, codegen.Lit{Value: s.Literal})
			continue
		}
		ref, err := e.param(s.Key, s.Value)
		if err != nil {
			return nil, err
		}
		if _, isString := s.Value.(string); !isString {
			ref = codegen.CallOf(codegen.Sel(codegen.Id(e.u.file.AddImport("fmt")), "Sprint"), ref)
		}
		parts = append(parts, ref)
	}
	return codegen.Concat{Parts: parts}, nil
}

func (e *emitter) param(key string, v any) (codegen.Expr, error) {
	if _, err := codegen.Literal(v); err != nil {
		return nil, di.InvalidArgumentError{What: "parameter " + strconv.Quote(key), Reason: err.Error()}
	}
	return codegen.ParamRef{Key: key, Value: v}, nil
}

// service emits access to another service and records the construction edge.
func (e *emitter) service(key string) (codegen.Expr, error) {
	k := di.NormalizeKey(key)
	if e.record {
		e.u.graph.add(e.key, k)
	}
	if m, ok := e.u.methods[k]; ok {
		return e.hoist(codegen.CallOf(codegen.Sel(codegen.Id(recv), m))), nil
	}
	live, ok := e.u.b.Lookup(k)
	if !ok {
		return nil, di.UndefinedServiceError{Key: k}
	}
	get := codegen.Call{
		Fun:      e.u.rtSel("GetAs"),
		TypeArgs: []string{e.u.liveType(live)},
		Args:     []codegen.Expr{codegen.Id(recv), codegen.Lit{Value: k}},
	}
	return e.hoist(get), nil
}

//
// ----------------------------------------------------------------------------
// Types and symbols
// ----------------------------------------------------------------------------
//

// typeExpr returns typ as it must be spelled in the generated file, importing its package.
func (u *unit) typeExpr(typ string) (string, error) {
	q := di.Qualifier(typ)
	if q == "" {
		return typ, nil
	}
	imp := ""
	if info, ok := u.types.Lookup(typ); ok {
		imp = info.Import
	}
	if imp == "" {
		imp, _ = u.types.ImportFor(q)
	}
	if imp == "" {
		return "", di.UnknownTypeError{Type: typ}
	}
	return requalify(typ, q, u.importAs(imp, q)), nil
}

// liveType spells the type of a live instance, falling back to any when the type
// cannot be imported.
func (u *unit) liveType(v any) string {
	typ := di.NameOf(v)
	q := di.Qualifier(typ)
	if q == "" {
		return typ
	}
	imp := di.ImportOf(v)
	if imp == "" || imp == "main" || !token.IsIdentifier(q) {
		return "any"
	}
	return requalify(typ, q, u.importAs(imp, q))
}

// symbol returns the callee expression for "pkg.Func" or a bare "Func".
func (u *unit) symbol(symbol, imp string) (codegen.Expr, error) {
	q := di.Qualifier(symbol)
	if q == "" {
		if !token.IsIdentifier(symbol) {
			return nil, di.UnknownFunctionError{Symbol: symbol}
		}
		return codegen.Id(symbol), nil
	}
	name := symbol[len(q)+1:]
	if imp == "" {
		imp, _ = u.types.ImportFor(q)
	}
	if imp == "" || !token.IsIdentifier(name) {
		return nil, di.UnknownFunctionError{Symbol: symbol}
	}
	return codegen.Sel(codegen.Id(u.importAs(imp, q)), name), nil
}

func (u *unit) importAs(path, name string) string {
	if !token.IsIdentifier(name) {
		name = ""
	}
	if isReservedLocal(name) {
		name += "pkg"
	}
	return u.file.AddNamedImport(path, name)
}

func isReservedLocal(name string) bool {
	if reservedLocals[name] {
		return true
	}
	if rest, ok := strings.CutPrefix(name, tempPfx); ok && rest != "" {
		_, err := strconv.Atoi(rest)
		return err == nil
	}
	return false
}

// requalify swaps the package qualifier of a type expression.
func requalify(expr, from, to string) string {
	if from == to {
		return expr
	}
	rest := strings.TrimLeft(expr, "*[]")
	prefix := expr[:len(expr)-len(rest)]
	return prefix + to + strings.TrimPrefix(rest, from)
}

// keyType returns the declared type of a compiled service, or the dynamic type of a
// live one together with its reflect type.
func (u *unit) keyType(key string) (string, reflect.Type) {
	k := di.NormalizeKey(key)
	if typ, ok := u.svcTypes[k]; ok {
		return typ, nil
	}
	if live, ok := u.b.Lookup(k); ok {
		return di.NameOf(live), reflect.TypeOf(live)
	}
	return "", nil
}

// methodInfo reports whether method on typ returns an error, and fails when the
// method is known not to exist.
func (u *unit) methodInfo(typ string, rtype reflect.Type, method string) (bool, error) {
	if info, ok := u.types.Lookup(typ); ok {
		if f, ok := info.Methods[method]; ok {
			return returnsError(&f), nil
		}
		if info.Type != nil {
			rtype = info.Type
		}
	}
	if rtype == nil {
		return false, nil
	}
	m, ok := rtype.MethodByName(method)
	if !ok {
		return false, di.UnknownMethodError{Type: typ, Method: method}
	}
	return di.ReturnsError(m.Type), nil
}

func (u *unit) checkProperty(typ, name string) error {
	info, ok := u.types.Lookup(typ)
	if !ok {
		return nil
	}
	if info.Type != nil {
		return di.CheckProperty(info.Type, name)
	}
	if len(info.Fields) == 0 {
		return nil
	}
	for _, f := range info.Fields {
		if f.Name == name {
			return nil
		}
	}
	return di.UnknownPropertyError{Type: typ, Property: name, Reason: "does not exist"}
}

func returnsError(f *di.Func) bool {
	return f.ReturnsError || (f.Fn != nil && di.ReturnsError(reflect.TypeOf(f.Fn)))
}

// compiledWiring resolves autowired parameters to references.
type compiledWiring struct{ u *unit }

func (w compiledWiring) ResolveType(typeName string) (any, error) {
	key, err := w.u.b.GetKeyByType(typeName)
	if err != nil {
		return nil, err
	}
	return di.Ref(key), nil
}

func (w compiledWiring) IsInstance(v any, typeName string) bool {
	return w.u.types.IsInstance(v, typeName)
}
