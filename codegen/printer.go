package codegen

import (
	"fmt"
	"go/format"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"text/template"
)

// Printer renders a File as source text.
type Printer interface {
	Print(f *File) ([]byte, error)
}

// FormatError is returned when the printed source does not survive go/format.
// Source holds the unformatted text for inspection.
type FormatError struct {
	Err    error
	Source []byte
}

// Error implements the error interface.
func (e *FormatError) Error() string { return "codegen: gofmt failed: " + e.Err.Error() }

// Unwrap returns the underlying format error.
func (e *FormatError) Unwrap() error { return e.Err }

// GoPrinter prints Go source formatted with go/format.
type GoPrinter struct {
	// Generator is named in the "Code generated by ...; DO NOT EDIT." line.
	Generator string
}

var fileTpl = template.Must(template.New("file").Parse(`// Code generated by {{.Generator}}; DO NOT EDIT.
{{- range .Header}}
// {{.}}
{{- end}}

package {{.Package}}
{{if .Imports}}
import (
{{- range .Imports}}
	{{if .Name}}{{.Name}} {{end}}{{printf "%q" .Path}}
{{- end}}
)
{{end}}
{{.Body}}
`))

// Print implements Printer.
func (p GoPrinter) Print(f *File) ([]byte, error) {
	w := &writer{}
	for i, d := range f.Decls {
		if i > 0 {
			w.nl()
		}
		w.decl(d)
	}
	if w.err != nil {
		return nil, w.err
	}

	gen := p.Generator
	if gen == "" {
		gen = "dic"
	}
	var sb strings.Builder
	if err := fileTpl.Execute(&sb, map[string]any{
		"Generator": gen,
		"Header":    f.Header,
		"Package":   f.Package,
		"Imports":   f.Imports(),
		"Body":      w.sb.String(),
	}); err != nil {
		return nil, err
	}

	src := []byte(sb.String())
	out, err := format.Source(src)
	if err != nil {
		return nil, &FormatError{Err: err, Source: src}
	}
	return out, nil
}

// writer accumulates printed text and remembers the first error.
type writer struct {
	sb     strings.Builder
	indent int
	err    error
}

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *writer) p(parts ...string) {
	for _, s := range parts {
		w.sb.WriteString(s)
	}
}

func (w *writer) nl() { w.sb.WriteByte('\n') }

func (w *writer) line(parts ...string) {
	w.sb.WriteString(strings.Repeat("\t", w.indent))
	w.p(parts...)
	w.nl()
}

func (w *writer) doc(lines []string) {
	for _, l := range lines {
		w.line("// ", l)
	}
}

func (w *writer) decl(d Decl) {
	switch d := d.(type) {
	case TypeDecl:
		w.doc(d.Doc)
		w.line("type ", d.Name, " struct {")
		w.indent++
		for _, f := range d.Fields {
			w.line(strings.TrimSpace(f.Name + " " + f.Type))
		}
		w.indent--
		w.line("}")
	case VarDecl:
		w.doc(d.Doc)
		s := "var " + d.Name
		if d.Type != "" {
			s += " " + d.Type
		}
		if d.Value != nil {
			s += " = " + w.expr(d.Value)
		}
		w.line(s)
	case FuncDecl:
		w.doc(d.Doc)
		s := "func "
		if d.Recv != nil {
			s += "(" + strings.TrimSpace(d.Recv.Name+" "+d.Recv.Type) + ") "
		}
		params := make([]string, len(d.Params))
		for i, f := range d.Params {
			params[i] = strings.TrimSpace(f.Name + " " + f.Type)
		}
		s += d.Name + "(" + strings.Join(params, ", ") + ")"
		switch len(d.Results) {
		case 0:
		case 1:
			s += " " + d.Results[0]
		default:
			s += " (" + strings.Join(d.Results, ", ") + ")"
		}
		w.line(s, " {")
		w.block(d.Body)
		w.line("}")
	default:
		w.fail(fmt.Errorf("codegen: unsupported declaration %T", d))
	}
}

func (w *writer) block(stmts []Stmt) {
	w.indent++
	for _, s := range stmts {
		w.stmt(s)
	}
	w.indent--
}

func (w *writer) simple(s Stmt) string {
	switch s := s.(type) {
	case Define:
		return strings.Join(s.Names, ", ") + " := " + w.exprs(s.Values)
	case Assign:
		return w.exprs(s.Lhs) + " = " + w.exprs(s.Rhs)
	case ExprStmt:
		return w.expr(s.X)
	}
	w.fail(fmt.Errorf("codegen: %T is not a simple statement", s))
	return ""
}

func (w *writer) stmt(s Stmt) {
	switch s := s.(type) {
	case Define, Assign, ExprStmt:
		w.line(w.simple(s))
	case Return:
		if len(s.Results) == 0 {
			w.line("return")
			return
		}
		w.line("return ", w.exprs(s.Results))
	case If:
		head := "if "
		if s.Init != nil {
			head += w.simple(s.Init) + "; "
		}
		w.line(head, w.expr(s.Cond), " {")
		w.block(s.Body)
		if len(s.Else) > 0 {
			w.line("} else {")
			w.block(s.Else)
		}
		w.line("}")
	case Switch:
		head := "switch"
		if s.Tag != nil {
			head += " " + w.expr(s.Tag)
		}
		w.line(head, " {")
		for _, c := range s.Cases {
			w.line("case ", w.exprs(c.Values), ":")
			w.block(c.Body)
		}
		if s.Default != nil {
			w.line("default:")
			w.block(s.Default)
		}
		w.line("}")
	default:
		w.fail(fmt.Errorf("codegen: unsupported statement %T", s))
	}
}

func (w *writer) exprs(xs []Expr) string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = w.expr(x)
	}
	return strings.Join(out, ", ")
}

func (w *writer) expr(x Expr) string {
	switch x := x.(type) {
	case Ident:
		return x.Name
	case Lit:
		return w.lit(x.Value)
	case ParamRef:
		return w.lit(x.Value)
	case Call:
		fn := w.expr(x.Fun)
		if len(x.TypeArgs) > 0 {
			fn += "[" + strings.Join(x.TypeArgs, ", ") + "]"
		}
		return fn + "(" + w.exprs(x.Args) + ")"
	case Selector:
		return w.expr(x.X) + "." + x.Sel
	case TypeAssert:
		return w.expr(x.X) + ".(" + x.Type + ")"
	case Binary:
		return w.expr(x.X) + " " + x.Op + " " + w.expr(x.Y)
	case Unary:
		return x.Op + w.expr(x.X)
	case Concat:
		if len(x.Parts) == 0 {
			return `""`
		}
		parts := make([]string, len(x.Parts))
		for i, p := range x.Parts {
			parts[i] = w.expr(p)
		}
		return strings.Join(parts, " + ")
	case Composite:
		s := x.Type + "{" + w.exprs(x.Elts) + "}"
		if x.Multiline && len(x.Elts) > 0 {
			elts := make([]string, len(x.Elts))
			for i, e := range x.Elts {
				elts[i] = w.expr(e) + ",\n"
			}
			s = x.Type + "{\n" + strings.Join(elts, "") + "}"
		}
		if x.Addr {
			s = "&" + s
		}
		return s
	case KeyValue:
		return w.expr(x.Key) + ": " + w.expr(x.Value)
	case Zero:
		return ZeroValue(x.Type)
	case nil:
		w.fail(fmt.Errorf("codegen: nil expression"))
		return ""
	}
	w.fail(fmt.Errorf("codegen: unsupported expression %T", x))
	return ""
}

func (w *writer) lit(v any) string {
	s, err := Literal(v)
	if err != nil {
		w.fail(err)
	}
	return s
}

// ZeroValue returns a Go expression for the zero value of typ.
func ZeroValue(typ string) string {
	switch {
	case typ == "any" || typ == "error" || strings.HasPrefix(typ, "interface"),
		strings.HasPrefix(typ, "*"), strings.HasPrefix(typ, "[]"),
		strings.HasPrefix(typ, "map["), strings.HasPrefix(typ, "func"),
		strings.HasPrefix(typ, "chan "):
		return "nil"
	case typ == "string":
		return `""`
	case typ == "bool":
		return "false"
	}
	return "*new(" + typ + ")"
}

// Literal renders v as a Go literal that evaluates to a value of the same dynamic
// type. Named types from other packages, pointers, functions and channels cannot be
// printed.
func Literal(v any) (string, error) {
	if v == nil {
		return "nil", nil
	}
	return literal(reflect.ValueOf(v))
}

func literal(rv reflect.Value) (string, error) {
	t := rv.Type()
	if t.PkgPath() != "" {
		return "", fmt.Errorf("codegen: cannot print value of named type %s", t)
	}
	switch t.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.String:
		return strconv.Quote(rv.String()), nil
	case reflect.Int:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return t.String() + "(" + strconv.FormatInt(rv.Int(), 10) + ")", nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return t.String() + "(" + strconv.FormatUint(rv.Uint(), 10) + ")", nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return "", fmt.Errorf("codegen: cannot print non-finite float %v", f)
		}
		bits := 64
		if t.Kind() == reflect.Float32 {
			bits = 32
		}
		s := strconv.FormatFloat(f, 'g', -1, bits)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		if t.Kind() == reflect.Float32 {
			return "float32(" + s + ")", nil
		}
		return s, nil
	case reflect.Interface:
		if rv.IsNil() {
			return "nil", nil
		}
		return literal(rv.Elem())
	case reflect.Slice, reflect.Array:
		if t.Kind() == reflect.Slice && rv.IsNil() {
			return typeString(t) + "(nil)", nil
		}
		elts := make([]string, rv.Len())
		for i := range elts {
			s, err := literal(rv.Index(i))
			if err != nil {
				return "", err
			}
			elts[i] = s
		}
		return typeString(t) + "{" + strings.Join(elts, ", ") + "}", nil
	case reflect.Map:
		if rv.IsNil() {
			return typeString(t) + "(nil)", nil
		}
		entries := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k, err := literal(iter.Key())
			if err != nil {
				return "", err
			}
			val, err := literal(iter.Value())
			if err != nil {
				return "", err
			}
			entries = append(entries, k+": "+val)
		}
		sort.Strings(entries)
		return typeString(t) + "{" + strings.Join(entries, ", ") + "}", nil
	}
	return "", fmt.Errorf("codegen: cannot print value of type %s", t)
}

// TypeExpr returns the Go expression for t. Types that need an import to be named
// are rejected.
func TypeExpr(t reflect.Type) (string, error) {
	if err := printable(t); err != nil {
		return "", err
	}
	return typeString(t), nil
}

func printable(t reflect.Type) error {
	if t.PkgPath() != "" {
		return fmt.Errorf("codegen: cannot print value of named type %s", t)
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Pointer, reflect.Chan:
		return printable(t.Elem())
	case reflect.Map:
		if err := printable(t.Key()); err != nil {
			return err
		}
		return printable(t.Elem())
	}
	return nil
}

func typeString(t reflect.Type) string {
	return strings.ReplaceAll(t.String(), "interface {}", "any")
}
