package di

import (
	"errors"
	"strconv"
	"strings"
)

// Sentinel errors. Every typed error below unwraps to exactly one of these, so callers
// can match a failure kind with errors.Is and still reach its context with errors.As.
var (
	ErrDuplicateKey          = errors.New("di: duplicate parameter key")
	ErrDuplicateDefinition   = errors.New("di: duplicate service definition")
	ErrDuplicateExtension    = errors.New("di: duplicate extension")
	ErrDuplicateService      = errors.New("di: duplicate service instance")
	ErrDuplicateType         = errors.New("di: duplicate type descriptor")
	ErrUndefinedService      = errors.New("di: undefined service")
	ErrNoMatchingService     = errors.New("di: no matching service")
	ErrInvalidFactoryMethod  = errors.New("di: invalid factory method")
	ErrInvalidArgument       = errors.New("di: invalid argument")
	ErrArityMismatch         = errors.New("di: arity mismatch")
	ErrCircularDependency    = errors.New("di: circular dependency")
	ErrUnknownType           = errors.New("di: unknown type")
	ErrUnknownFunction       = errors.New("di: unknown function")
	ErrUnknownMethod         = errors.New("di: unknown method")
	ErrUnknownProperty       = errors.New("di: unknown property")
	ErrWrongType             = errors.New("di: wrong type")
	ErrUnresolvableParameter = errors.New("di: unresolvable parameter")
)

// DuplicateKeyError is returned when a parameter key is added twice.
type DuplicateKeyError struct{ Key string }

// Error implements the error interface.
func (e DuplicateKeyError) Error() string {
	// Example: di: duplicate parameter key "db.host"
	return "di: duplicate parameter key " + strconv.Quote(e.Key)
}

// Unwrap returns ErrDuplicateKey.
func (e DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }

// DuplicateDefinitionError is returned when a service key is registered twice.
type DuplicateDefinitionError struct{ Key string }

// Error implements the error interface.
func (e DuplicateDefinitionError) Error() string {
	return "di: service " + strconv.Quote(e.Key) + " is already defined"
}

// Unwrap returns ErrDuplicateDefinition.
func (e DuplicateDefinitionError) Unwrap() error { return ErrDuplicateDefinition }

// DuplicateExtensionError is returned when two extensions share a name.
type DuplicateExtensionError struct{ Name string }

// Error implements the error interface.
func (e DuplicateExtensionError) Error() string {
	return "di: extension " + strconv.Quote(e.Name) + " is already registered"
}

// Unwrap returns ErrDuplicateExtension.
func (e DuplicateExtensionError) Unwrap() error { return ErrDuplicateExtension }

// DuplicateServiceError is returned when a live instance is added under a taken key.
type DuplicateServiceError struct{ Key string }

// Error implements the error interface.
func (e DuplicateServiceError) Error() string {
	return "di: service instance " + strconv.Quote(e.Key) + " already exists"
}

// Unwrap returns ErrDuplicateService.
func (e DuplicateServiceError) Unwrap() error { return ErrDuplicateService }

// DuplicateTypeError is returned when a type or function descriptor is added twice.
type DuplicateTypeError struct{ Name string }

// Error implements the error interface.
func (e DuplicateTypeError) Error() string {
	return "di: type " + strconv.Quote(e.Name) + " is already described"
}

// Unwrap returns ErrDuplicateType.
func (e DuplicateTypeError) Unwrap() error { return ErrDuplicateType }

// UndefinedServiceError is returned when a key is neither a live instance nor a definition.
type UndefinedServiceError struct{ Key string }

// Error implements the error interface.
func (e UndefinedServiceError) Error() string {
	// Example: di: service "mailer" is not defined
	return "di: service " + strconv.Quote(e.Key) + " is not defined"
}

// Unwrap returns ErrUndefinedService.
func (e UndefinedServiceError) Unwrap() error { return ErrUndefinedService }

// NoMatchingServiceError is returned when a by-type lookup finds nothing.
type NoMatchingServiceError struct{ Type string }

// Error implements the error interface.
func (e NoMatchingServiceError) Error() string {
	return "di: no service matches type " + strconv.Quote(e.Type)
}

// Unwrap returns ErrNoMatchingService.
func (e NoMatchingServiceError) Unwrap() error { return ErrNoMatchingService }

// InvalidFactoryMethodError is returned when a definition's factory has no known shape.
type InvalidFactoryMethodError struct {
	Key    string
	Reason string
}

// Error implements the error interface.
func (e InvalidFactoryMethodError) Error() string {
	msg := "di: invalid factory method for service " + strconv.Quote(e.Key)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap returns ErrInvalidFactoryMethod.
func (e InvalidFactoryMethodError) Unwrap() error { return ErrInvalidFactoryMethod }

// InvalidArgumentError reports a rejected value at construction time.
type InvalidArgumentError struct {
	What   string
	Reason string
}

// Error implements the error interface.
func (e InvalidArgumentError) Error() string {
	// Example: di: invalid service key: must not be empty
	return "di: invalid " + e.What + ": " + e.Reason
}

// Unwrap returns ErrInvalidArgument.
func (e InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// ArityMismatchError is returned when a call site does not match the callee's parameters.
type ArityMismatchError struct {
	Callee string
	Want   int
	Got    int
}

// Error implements the error interface.
func (e ArityMismatchError) Error() string {
	return "di: " + e.Callee + " expects " + strconv.Itoa(e.Want) + " argument(s), got " + strconv.Itoa(e.Got)
}

// Unwrap returns ErrArityMismatch.
func (e ArityMismatchError) Unwrap() error { return ErrArityMismatch }

// UnresolvableParameterError is returned by Autowire when a parameter has no type,
// no default and no supplied argument. It matches both ErrNoMatchingService and
// ErrArityMismatch.
type UnresolvableParameterError struct {
	Param string
	Index int
}

// Error implements the error interface.
func (e UnresolvableParameterError) Error() string {
	return "di: parameter " + strconv.Quote(e.Param) + " at position " + strconv.Itoa(e.Index) +
		" has no argument, no default and no autowirable type"
}

// Unwrap returns the failure kinds this error belongs to.
func (e UnresolvableParameterError) Unwrap() []error {
	return []error{ErrUnresolvableParameter, ErrNoMatchingService, ErrArityMismatch}
}

// CircularDependencyError is returned when a service (transitively) needs itself to be built.
type CircularDependencyError struct{ Chain []string }

// Error implements the error interface.
func (e CircularDependencyError) Error() string {
	// Example: di: circular dependency: "a" -> "b" -> "a"
	quoted := make([]string, len(e.Chain))
	for i, k := range e.Chain {
		quoted[i] = strconv.Quote(k)
	}
	return "di: circular dependency: " + strings.Join(quoted, " -> ")
}

// Unwrap returns ErrCircularDependency.
func (e CircularDependencyError) Unwrap() error { return ErrCircularDependency }

// UnknownTypeError is returned when a service type has no descriptor in the catalog.
type UnknownTypeError struct{ Type string }

// Error implements the error interface.
func (e UnknownTypeError) Error() string {
	return "di: type " + strconv.Quote(e.Type) + " is not described"
}

// Unwrap returns ErrUnknownType.
func (e UnknownTypeError) Unwrap() error { return ErrUnknownType }

// UnknownFunctionError is returned when a factory symbol has no runtime function.
type UnknownFunctionError struct{ Symbol string }

// Error implements the error interface.
func (e UnknownFunctionError) Error() string {
	return "di: function " + strconv.Quote(e.Symbol) + " is not registered"
}

// Unwrap returns ErrUnknownFunction.
func (e UnknownFunctionError) Unwrap() error { return ErrUnknownFunction }

// UnknownMethodError is returned when a method call names a method the receiver lacks.
type UnknownMethodError struct {
	Type   string
	Method string
}

// Error implements the error interface.
func (e UnknownMethodError) Error() string {
	return "di: " + e.Type + " has no method " + strconv.Quote(e.Method)
}

// Unwrap returns ErrUnknownMethod.
func (e UnknownMethodError) Unwrap() error { return ErrUnknownMethod }

// UnknownPropertyError is returned when a property setter names a missing or unexported field.
type UnknownPropertyError struct {
	Type     string
	Property string
	Reason   string
}

// Error implements the error interface.
func (e UnknownPropertyError) Error() string {
	return "di: property " + strconv.Quote(e.Property) + " of " + e.Type + " " + e.Reason
}

// Unwrap returns ErrUnknownProperty.
func (e UnknownPropertyError) Unwrap() error { return ErrUnknownProperty }

// WrongTypeError is returned when a service exists but does not have the requested type.
type WrongTypeError struct {
	// Key is the service key or type name requested.
	Key string

	// GotType is reflect.TypeOf(raw).String() for the stored value.
	GotType string
}

// Error implements the error interface.
func (e WrongTypeError) Error() string {
	// Example: di: service "db" has wrong type (*mypkg.Logger)
	return "di: service " + strconv.Quote(e.Key) + " has wrong type (" + e.GotType + ")"
}

// Unwrap returns ErrWrongType.
func (e WrongTypeError) Unwrap() error { return ErrWrongType }

func invalid(what, reason string) error {
	return InvalidArgumentError{What: what, Reason: reason}
}
