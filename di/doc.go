// Package di holds the container model shared by the live builder and the compiler.
//
// A Builder owns three registries:
//
//   - Parameters: flat, case-insensitive keys with %key% interpolation
//   - Types: descriptors for the Go types services are built from (constructor,
//     methods, fields and the interfaces each type satisfies)
//   - Registry: service definitions keyed by name, kept in registration order
//
// A Definition says how one service is built: a type constructor, a factory
// (function, service method or static method), positional arguments, method
// calls and property assignments. Arguments may be plain values, %param%
// placeholders, service references (di.Ref) or method references.
//
// Builder.Get resolves a definition live. Shared services are built once;
// circular constructor dependencies fail with ErrCircularDependency. Typed
// helpers GetAs and MustGetAs assert the result type.
//
// Container is the minimal runtime used by generated code: it stores shared
// instances and parameters and answers by-key and by-type lookups.
//
// Errors are typed values that unwrap to the package sentinels, so
//
//	errors.Is(err, di.ErrUndefinedService)
//
// works across wrapping, and errors.As reaches the failing key.
//
// Import
//
//	"github.com/sghaida/dic/di"
package di
