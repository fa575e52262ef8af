package container

import (
	"fmt"
	"sync"
)

// Resolve resolves name from c and asserts the result to T.
func Resolve[T any](c *Container, name string) (T, error) {
	return ResolveWith[T](c, name, nil)
}

// ResolveWith resolves name with factory arguments and asserts the result to T.
func ResolveWith[T any](c *Container, name string, args Args) (T, error) {
	var zero T
	v, err := c.ResolveWith(name, args)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &TypeMismatchError{
			Name: name,
			Want: fmt.Sprintf("%T", (*T)(nil))[1:],
			Got:  fmt.Sprintf("%T", v),
		}
	}
	return t, nil
}

// MustResolve is Resolve that panics on error. Use it at startup wiring only.
func MustResolve[T any](c *Container, name string) T {
	t, err := Resolve[T](c, name)
	if err != nil {
		panic(err)
	}
	return t
}

// Provide registers a typed factory under name. The factory runs on every resolution.
func Provide[T any](c *Container, name string, f func(args Args) (T, error)) *Container {
	if f == nil {
		panic(fmt.Sprintf("container: factory %q must not be nil", name))
	}
	return c.RegisterFactory(name, func(args Args) (any, error) {
		return f(args)
	})
}

// ProvideTransient registers a typed constructor under name. The constructor runs on every
// resolution.
func ProvideTransient[T any](c *Container, name string, ctor func() T) *Container {
	if ctor == nil {
		panic(fmt.Sprintf("container: transient %q constructor must not be nil", name))
	}
	return c.RegisterTransient(name, func() any {
		return ctor()
	})
}

var (
	globalMu sync.Mutex
	global   *Container
)

// Global returns the process-wide container, creating it on first use.
func Global() *Container {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New()
	}
	return global
}

// ResetGlobal discards the process-wide container. The next Global call returns a fresh,
// empty container. Intended for test isolation.
func ResetGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = nil
}
