package di

import (
	"errors"
	"strings"
)

// Fixture types used across the package tests. Their Go type names are
// "*di.testA", "*di.testB" and so on.

type greeter interface{ Greet() string }

type testA struct{ Name string }

func newTestA() *testA { return &testA{Name: "a"} }

func (a *testA) Greet() string { return "hello from " + a.Name }

type testB struct {
	A     *testA
	Label string
}

func newTestB(a *testA, label string) *testB { return &testB{A: a, Label: label} }

type testMailer struct {
	Host    string
	Port    int
	Debug   bool
	Logger  *testLogger
	hidden  string
	greeter greeter
}

func newTestMailer(host string, port int) (*testMailer, error) {
	if host == "" {
		return nil, errors.New("empty host")
	}
	return &testMailer{Host: host, Port: port}, nil
}

func (m *testMailer) SetLogger(l *testLogger) { m.Logger = l }

func (m *testMailer) SetGreeter(g greeter) error {
	if g == nil {
		return errors.New("nil greeter")
	}
	m.greeter = g
	return nil
}

type testLogger struct{ lines []string }

func (l *testLogger) Log(s string) { l.lines = append(l.lines, s) }

type testFactory struct{ built int }

func (f *testFactory) Create(prefix string) *testA {
	f.built++
	return &testA{Name: prefix + strings.Repeat("!", f.built)}
}

type testLoop struct{ Other *testLoop }

func newTestLoop(o *testLoop) *testLoop { return &testLoop{Other: o} }

var (
	typeA       = TypeName[*testA]()
	typeB       = TypeName[*testB]()
	typeMailer  = TypeName[*testMailer]()
	typeLogger  = TypeName[*testLogger]()
	typeFactory = TypeName[*testFactory]()
	typeLoop    = TypeName[*testLoop]()
	typeGreeter = TypeName[greeter]()
)

func describe[T any](ctor *Func, implements ...string) TypeInfo {
	info := Describe[T]()
	info.Constructor = ctor
	info.Implements = implements
	return info
}

// fixtureTypes returns a catalog describing every fixture type.
func fixtureTypes() *Types {
	return NewTypes().MustAdd(
		describe[*testA](&Func{Symbol: "di.newTestA", Fn: newTestA}, typeGreeter),
		describe[*testB](&Func{
			Symbol: "di.newTestB",
			Fn:     newTestB,
			Params: []Param{{Name: "a", Type: typeA}, {Name: "label", HasDefault: true, Default: "default"}},
		}),
		describe[*testMailer](&Func{
			Symbol:       "di.newTestMailer",
			Fn:           newTestMailer,
			ReturnsError: true,
			Params:       []Param{{Name: "host"}, {Name: "port", HasDefault: true, Default: 25}},
		}),
		describe[*testLogger](nil),
		describe[*testFactory](nil),
		describe[*testLoop](&Func{Symbol: "di.newTestLoop", Fn: newTestLoop, Params: []Param{{Name: "o", Type: typeLoop}}}),
		Describe[greeter](),
	)
}

func fixtureBuilder() *Builder {
	return NewBuilderWith(NewParameters(), fixtureTypes())
}
