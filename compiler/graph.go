package compiler

import (
	"sort"

	"github.com/sghaida/dic/di"
)

// graph records construction edges between services: an edge from a to b means
// building a requires b to be built first.
type graph struct {
	deps map[string][]string
}

func newGraph() *graph {
	return &graph{deps: map[string][]string{}}
}

// node makes sure key appears in the graph even without edges.
func (g *graph) node(key string) {
	if _, ok := g.deps[key]; !ok {
		g.deps[key] = nil
	}
}

func (g *graph) add(from, to string) {
	for _, d := range g.deps[from] {
		if d == to {
			return
		}
	}
	g.deps[from] = append(g.deps[from], to)
}

// check walks the graph depth first from every root, in order, and reports the first
// cycle found as a CircularDependencyError carrying the chain of keys.
func (g *graph) check(roots []string) error {
	visited := map[string]bool{}
	visiting := map[string]bool{}
	var path []string

	var visit func(key string) error
	visit = func(key string) error {
		if visiting[key] {
			start := 0
			for i, k := range path {
				if k == key {
					start = i
					break
				}
			}
			chain := append(append([]string(nil), path[start:]...), key)
			return di.CircularDependencyError{Chain: chain}
		}
		if visited[key] {
			return nil
		}
		visiting[key] = true
		path = append(path, key)
		for _, dep := range g.deps[key] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		visiting[key] = false
		visited[key] = true
		return nil
	}

	for _, key := range roots {
		if err := visit(key); err != nil {
			return err
		}
	}
	return nil
}

// order returns every key in dependency order: dependencies before dependents, ties
// broken alphabetically. It assumes check has passed.
func (g *graph) order() []string {
	keys := make([]string, 0, len(g.deps))
	for k := range g.deps {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := map[string]bool{}
	var out []string
	var visit func(string)
	visit = func(key string) {
		if seen[key] {
			return
		}
		seen[key] = true
		for _, dep := range g.deps[key] {
			visit(dep)
		}
		out = append(out, key)
	}
	for _, k := range keys {
		visit(k)
	}
	return out
}
