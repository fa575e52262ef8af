package container

import (
	"errors"
	"fmt"
)

// ErrServiceNotRegistered is returned (wrapped in NotRegisteredError) when a name cannot be
// resolved anywhere in the container chain. Use errors.Is to check.
var ErrServiceNotRegistered = errors.New("service not registered")

// NotRegisteredError identifies the name that failed to resolve.
type NotRegisteredError struct {
	Name string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("container: service %q not registered", e.Name)
}

func (e *NotRegisteredError) Unwrap() error { return ErrServiceNotRegistered }

// FactoryError wraps an error returned by a Factory registration during resolution.
type FactoryError struct {
	Name string
	Err  error
}

func (e *FactoryError) Error() string {
	return fmt.Sprintf("container: factory for %q failed: %v", e.Name, e.Err)
}

func (e *FactoryError) Unwrap() error { return e.Err }

// TypeMismatchError is returned by Resolve[T] when the resolved value is not a T.
type TypeMismatchError struct {
	Name string
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("container: service %q is %s, not %s", e.Name, e.Got, e.Want)
}
