package compiler

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sghaida/dic/di"
)

const genModule = "example.com/gen"

const genApp = `package app

import "fmt"

var FactoriesBuilt int

type Greeter interface{ Greet() string }

type A struct{ Name string }

func NewA() *A { return &A{Name: "a"} }

func (a *A) Greet() string { return "hello from " + a.Name }

type B struct {
	A     *A
	Label string
}

func NewB(a *A, label string) *B { return &B{A: a, Label: label} }

type Factory struct{ made int }

func NewFactory() *Factory {
	FactoriesBuilt++
	return &Factory{}
}

func (f *Factory) Create(prefix string) *A {
	f.made++
	return &A{Name: fmt.Sprintf("%s-%d", prefix, f.made)}
}
`

const genMain = `package main

import (
	"errors"
	"fmt"
	"os"

	"example.com/gen/app"
	"example.com/gen/di"
	"example.com/gen/wiring"
)

func check(ok bool, what string) {
	if !ok {
		fmt.Println("FAIL:", what)
		os.Exit(1)
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		fmt.Println("FAIL:", err)
		os.Exit(1)
	}
	return v
}

func main() {
	fresh := wiring.NewApp()
	check(must(fresh.GetKeyByType("app.Greeter")) == "a", "key by interface before any build")
	check(must(fresh.GetKeyByType("*app.B")) == "b", "key by exact type")

	c := wiring.NewApp()
	a := must(c.AService())
	check(a == must(c.AService()), "shared service is built once")
	check(must(c.TempService()) != must(c.TempService()), "non-shared service is built per call")

	b := must(c.BService())
	check(b.A == a, "constructor argument autowired by type")
	check(b.Label == "lbl", "parameter passed after the autowired argument")

	m1 := must(c.Made1Service())
	m2 := must(c.Made2Service())
	check(app.FactoriesBuilt == 1, "factory service built at most once")
	check(m1.Name == "x-1" && m2.Name == "y-2", "factory method called per service")

	g := must(c.GetByType("app.Greeter"))
	check(g == any(a), "by-type lookup returns the first built assignable service")
	check(must(c.Get("MADE1")) == any(m1), "keys are case-insensitive")
	check(c.Has("temp") && !c.Has("nope"), "has")

	_, err := c.Get("nope")
	check(errors.Is(err, di.ErrUndefinedService), "undefined service error")

	fmt.Println("ok")
}
`

// genBuilder describes package app of the temporary module.
func genBuilder() *di.Builder {
	imp := genModule + "/app"
	types := di.NewTypes().MustAdd(
		di.TypeInfo{Name: "app.Greeter", Import: imp},
		di.TypeInfo{Name: "*app.A", Import: imp, Implements: []string{"app.Greeter"}, Constructor: &di.Func{Symbol: "app.NewA"}},
		di.TypeInfo{Name: "*app.B", Import: imp, Constructor: &di.Func{
			Symbol: "app.NewB",
			Params: []di.Param{{Name: "a", Type: "*app.A"}, {Name: "label", HasDefault: true, Default: "default"}},
		}},
		di.TypeInfo{
			Name:        "*app.Factory",
			Import:      imp,
			Constructor: &di.Func{Symbol: "app.NewFactory"},
			Methods:     map[string]di.Func{"Create": {Symbol: "Create"}},
		},
	)
	b := di.NewBuilderWith(di.NewParameters().Set("label", "lbl"), types)
	b.MustRegister("a", "*app.A")
	b.MustRegister("b", "*app.B").SetArguments("%label%")
	b.MustRegister("temp", "*app.B").SetShared(false)
	b.MustRegister("factory", "*app.Factory")
	b.MustRegister("made1", "*app.A").SetFactory(di.MethodOf("factory", "Create", "x"))
	b.MustRegister("made2", "*app.A").SetFactory(di.MethodOf("factory", "Create", "y"))
	return b
}

// TestCompile_GeneratedContainerRuns builds a generated container in a temporary
// module and runs it against the runtime package.
func TestCompile_GeneratedContainerRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a temporary module")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not found")
	}

	dir := t.TempDir()
	write := func(rel, content string) {
		t.Helper()
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	write("go.mod", "module "+genModule+"\n\ngo 1.21\n")
	write("app/app.go", genApp)
	write("main.go", genMain)

	entries, err := os.ReadDir(filepath.Join("..", "di"))
	require.NoError(t, err)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		src, err := os.ReadFile(filepath.Join("..", "di", name))
		require.NoError(t, err)
		write(filepath.Join("di", name), string(src))
	}

	src, err := New(genBuilder(), quiet(),
		WithPackage("wiring"),
		WithRuntimeImport(genModule+"/di"),
	).Source("App")
	require.NoError(t, err)
	write("wiring/app.gen.go", string(src))

	cmd := exec.Command(goBin, "run", ".")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOWORK=off", "GOFLAGS=-mod=mod", "GOPROXY=off", "GOTOOLCHAIN=local")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "%s\n--- generated ---\n%s", out, src)
	require.Equal(t, "ok\n", string(out))
}
