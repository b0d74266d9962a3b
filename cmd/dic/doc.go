// Command dic compiles a YAML definition file into a Go dependency injection container.
//
// The generated container has one accessor per service, caches shared services on
// first use and never walks the definition graph at run time. The same definitions
// can be resolved live with di.Builder; dic is the build-time half.
//
// # Commands
//
//	dic generate   compile the definition file into a .go file
//	dic cache      regenerate a cached container only when the definition file changed
//	dic check      validate the definitions and print the build order
//	dic dump       print the parsed parameters and service definitions
//
// Typical use from a go:generate line:
//
//	//go:generate dic generate -c services.yaml -o container.gen.go -t Container
//
// # Configuration
//
// Flags win over the environment. Unset flags are filled from DIC_CONFIG, DIC_OUT,
// DIC_PACKAGE, DIC_TYPE, DIC_CACHE_DIR and DIC_LOG_LEVEL; DIC_DEBUG=true forces debug
// logging. A .env file (or the one named by --env-file) is read first and never
// overrides variables already set.
//
// The generate command records the definition file's sha256 in the generated header,
// so a diff of the generated file shows when the definitions changed.
//
// # Cache layout
//
// dic cache writes <dir>/container_<hash>.go and a marker file next to it holding the
// sha256 of the definition file's modification time. A later run compiles again only
// if the marker is missing or stale.
package main
