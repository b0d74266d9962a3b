// Package dic is a dependency injection container compiler for Go.
//
// Services are described once, either in Go through di.Builder or in a YAML
// definition file, and then used two ways:
//
//   - live: di.Builder resolves definitions on demand through reflection
//   - compiled: compiler.Compiler emits a standalone container type with one
//     accessor per service and no reflection at runtime
//
// See subpackages:
//   - di: parameters, type descriptors, definitions, the builder and the runtime container
//   - compiler, compiler/inject: dependency graph, emission and compiler extensions
//   - codegen: source printer for generated containers
//   - config: YAML definition files and DIC_* environment defaults
//   - loader: cached containers regenerated when the definition file changes
//   - cmd/dic: the command line generator
//   - examples/shop: an end-to-end example
package dic
