// Package codegen holds the small intermediate representation the compiler emits and
// the printer that renders it as formatted Go source.
//
// The IR only covers what generated containers need: struct types, package-level
// variables, methods, and a handful of statements and expressions. Printers are
// swappable through the Printer interface.
package codegen

import (
	"path"
	"sort"
	"strconv"
)

// File is one generated Go source file.
type File struct {
	Package string

	// Header lines are rendered as comments right after the "Code generated" line.
	Header []string

	Decls []Decl

	imports []Import
}

// Import is one import spec. Name is the alias, empty when the default name is used.
type Import struct {
	Name string
	Path string
}

// NewFile returns an empty file for package pkg.
func NewFile(pkg string) *File { return &File{Package: pkg} }

// AddImport records an import path and returns the qualifier to use for it.
func (f *File) AddImport(importPath string) string {
	return f.AddNamedImport(importPath, "")
}

// AddNamedImport records an import path whose package is called name (the default
// name is guessed from the path when name is empty) and returns the qualifier to use.
// Paths are deduplicated; a name already taken by another path gets a numbered alias.
func (f *File) AddNamedImport(importPath, name string) string {
	for _, imp := range f.imports {
		if imp.Path == importPath {
			return imp.qualifier()
		}
	}
	base := name
	if base == "" {
		base = defaultName(importPath)
	}
	alias := base
	for i := 2; f.nameTaken(alias); i++ {
		alias = base + strconv.Itoa(i)
	}
	imp := Import{Path: importPath}
	if alias != defaultName(importPath) {
		imp.Name = alias
	}
	f.imports = append(f.imports, imp)
	return alias
}

// Imports returns the recorded imports sorted by path.
func (f *File) Imports() []Import {
	out := append([]Import(nil), f.imports...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path == out[j].Path {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// Add appends declarations.
func (f *File) Add(decls ...Decl) { f.Decls = append(f.Decls, decls...) }

func (f *File) nameTaken(name string) bool {
	for _, imp := range f.imports {
		if imp.qualifier() == name {
			return true
		}
	}
	return false
}

func (i Import) qualifier() string {
	if i.Name != "" {
		return i.Name
	}
	return defaultName(i.Path)
}

// defaultName guesses the package name of an import path: its last element,
// ignoring a trailing major version suffix.
func defaultName(importPath string) string {
	base := path.Base(importPath)
	if len(base) > 1 && base[0] == 'v' {
		if _, err := strconv.Atoi(base[1:]); err == nil {
			if dir := path.Dir(importPath); dir != "." {
				return path.Base(dir)
			}
		}
	}
	return base
}

// Decl is a top-level declaration.
type Decl interface{ decl() }

// Field is a struct field, parameter or receiver. An empty Name embeds Type.
type Field struct {
	Name string
	Type string
}

// TypeDecl declares a struct type.
type TypeDecl struct {
	Doc    []string
	Name   string
	Fields []Field
}

// VarDecl declares a package-level variable.
type VarDecl struct {
	Doc   []string
	Name  string
	Type  string
	Value Expr
}

// FuncDecl declares a function, or a method when Recv is set.
type FuncDecl struct {
	Doc     []string
	Recv    *Field
	Name    string
	Params  []Field
	Results []string
	Body    []Stmt
}

func (TypeDecl) decl() {}
func (VarDecl) decl()  {}
func (FuncDecl) decl() {}

// Stmt is a statement.
type Stmt interface{ stmt() }

// Define is a short variable declaration: Names := Values.
type Define struct {
	Names  []string
	Values []Expr
}

// Assign is an assignment: Lhs = Rhs.
type Assign struct {
	Lhs []Expr
	Rhs []Expr
}

// ExprStmt evaluates an expression for its effects.
type ExprStmt struct{ X Expr }

// If is an if statement with optional init and else branch.
type If struct {
	Init Stmt
	Cond Expr
	Body []Stmt
	Else []Stmt
}

// Return returns Results.
type Return struct{ Results []Expr }

// Switch is an expression switch.
type Switch struct {
	Tag     Expr
	Cases   []Case
	Default []Stmt
}

// Case is one switch clause.
type Case struct {
	Values []Expr
	Body   []Stmt
}

func (Define) stmt()   {}
func (Assign) stmt()   {}
func (ExprStmt) stmt() {}
func (If) stmt()       {}
func (Return) stmt()   {}
func (Switch) stmt()   {}

// Expr is an expression.
type Expr interface{ expr() }

// Ident is a name.
type Ident struct{ Name string }

// Lit is a Go literal of a plain value: nil, booleans, numbers, strings, and slices
// and maps of those.
type Lit struct{ Value any }

// ParamRef is the value of a named parameter, printed as a literal of Value.
type ParamRef struct {
	Key   string
	Value any
}

// Call is a function call. TypeArgs are printed as explicit instantiation.
type Call struct {
	Fun      Expr
	TypeArgs []string
	Args     []Expr
}

// Selector is X.Sel.
type Selector struct {
	X   Expr
	Sel string
}

// TypeAssert is X.(Type).
type TypeAssert struct {
	X    Expr
	Type string
}

// Binary is X Op Y.
type Binary struct {
	Op   string
	X, Y Expr
}

// Unary is Op X.
type Unary struct {
	Op string
	X  Expr
}

// Concat joins string-valued parts with +.
type Concat struct{ Parts []Expr }

// Composite is a composite literal T{Elts}, or &T{Elts} when Addr is set.
// Multiline puts each element on its own line.
type Composite struct {
	Type      string
	Addr      bool
	Multiline bool
	Elts      []Expr
}

// KeyValue is a composite literal element Key: Value.
type KeyValue struct {
	Key   Expr
	Value Expr
}

// Zero is the zero value of Type.
type Zero struct{ Type string }

func (Ident) expr()      {}
func (Lit) expr()        {}
func (ParamRef) expr()   {}
func (Call) expr()       {}
func (Selector) expr()   {}
func (TypeAssert) expr() {}
func (Binary) expr()     {}
func (Unary) expr()      {}
func (Concat) expr()     {}
func (Composite) expr()  {}
func (KeyValue) expr()   {}
func (Zero) expr()       {}

// Helpers used by emitters.

// Id returns an identifier expression.
func Id(name string) Ident { return Ident{Name: name} }

// Sel returns x.sel.
func Sel(x Expr, sel string) Selector { return Selector{X: x, Sel: sel} }

// CallOf returns fn(args...).
func CallOf(fn Expr, args ...Expr) Call { return Call{Fun: fn, Args: args} }

// Nil is the nil identifier.
var Nil = Ident{Name: "nil"}

// IfErr returns "if err != nil { return results... }".
func IfErr(results ...Expr) If {
	return If{
		Cond: Binary{Op: "!=", X: Id("err"), Y: Nil},
		Body: []Stmt{Return{Results: results}},
	}
}
