// Package container implements a hierarchical service container with singleton, transient
// and factory lifetimes.
//
// A Container maps names to registrations. Resolve looks at the local registrations first
// and falls back to the parent chain; a child never mutates its parent. Registration of an
// existing name in the same container replaces it.
//
//	c := container.New()
//	c.RegisterSingleton("config", cfg).
//		RegisterTransient("session", func() any { return newSession() }).
//		RegisterFactory("client", func(args container.Args) (any, error) {
//			return newClient(args.String("endpoint"))
//		})
//	v, err := c.Resolve("config")
//
// Container is safe for concurrent use. Factories are invoked outside the container lock,
// so a factory may resolve other services from the same container.
package container

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Lifetime governs whether Resolve returns a cached instance or constructs a fresh one.
type Lifetime int

const (
	// Singleton returns the registered instance unchanged on every resolution.
	Singleton Lifetime = iota
	// Transient invokes a constructor, optionally taking keyword arguments, on every resolution.
	Transient
	// Factory invokes a factory with the resolution arguments on every resolution.
	Factory
)

func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Transient:
		return "transient"
	case Factory:
		return "factory"
	default:
		return fmt.Sprintf("lifetime(%d)", int(l))
	}
}

// Args carries keyword arguments passed to Factory registrations by ResolveWith.
type Args map[string]any

// String returns args[key] if it is a string, otherwise "".
func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// FactoryFunc builds a service from resolution arguments. args is never nil.
type FactoryFunc func(args Args) (any, error)

type registration struct {
	name     string
	lifetime Lifetime
	instance any
	ctor     func(Args) any
	factory  FactoryFunc
	owner    *Container
}

// Container is a hierarchical name to service registry.
type Container struct {
	mu       sync.RWMutex
	services map[string]*registration
	parent   *Container
	logger   *slog.Logger
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used for debug-level registration and resolution events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an empty root Container.
func New(opts ...Option) *Container {
	c := &Container{
		services: make(map[string]*registration),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a service under name with the given lifetime and returns c for chaining.
// For Singleton, value is the instance itself (nil is allowed). For Transient, value must be
// a func() any or func(Args) any. For Factory, value must be a FactoryFunc or func(Args) (any, error).
// Register panics on an empty name or a value that does not match the lifetime.
func (c *Container) Register(name string, value any, lifetime Lifetime) *Container {
	switch lifetime {
	case Singleton:
		return c.RegisterSingleton(name, value)
	case Transient:
		switch ctor := value.(type) {
		case func() any:
			return c.RegisterTransient(name, ctor)
		case func(Args) any:
			return c.RegisterTransientWith(name, ctor)
		default:
			panic(fmt.Sprintf("container: transient %q requires func() any or func(Args) any, got %T", name, value))
		}
	case Factory:
		switch f := value.(type) {
		case FactoryFunc:
			return c.RegisterFactory(name, f)
		case func(Args) (any, error):
			return c.RegisterFactory(name, f)
		default:
			panic(fmt.Sprintf("container: factory %q requires func(Args) (any, error), got %T", name, value))
		}
	default:
		panic(fmt.Sprintf("container: unknown lifetime %d for %q", int(lifetime), name))
	}
}

// RegisterSingleton stores instance under name. Every Resolve returns the same value.
func (c *Container) RegisterSingleton(name string, instance any) *Container {
	c.put(&registration{name: name, lifetime: Singleton, instance: instance})
	return c
}

// RegisterTransient stores a constructor invoked on every Resolve. Panics if ctor is nil.
func (c *Container) RegisterTransient(name string, ctor func() any) *Container {
	if ctor == nil {
		panic(fmt.Sprintf("container: transient %q constructor must not be nil", name))
	}
	return c.RegisterTransientWith(name, func(Args) any { return ctor() })
}

// RegisterTransientWith stores a constructor that receives the resolution arguments and is
// invoked on every Resolve. args is never nil. Panics if ctor is nil.
func (c *Container) RegisterTransientWith(name string, ctor func(args Args) any) *Container {
	if ctor == nil {
		panic(fmt.Sprintf("container: transient %q constructor must not be nil", name))
	}
	c.put(&registration{name: name, lifetime: Transient, ctor: ctor})
	return c
}

// RegisterFactory stores a factory invoked on every Resolve with the resolution arguments.
// Panics if f is nil.
func (c *Container) RegisterFactory(name string, f FactoryFunc) *Container {
	if f == nil {
		panic(fmt.Sprintf("container: factory %q must not be nil", name))
	}
	c.put(&registration{name: name, lifetime: Factory, factory: f})
	return c
}

func (c *Container) put(reg *registration) {
	if strings.TrimSpace(reg.name) == "" {
		panic("container: service name must not be empty")
	}
	reg.owner = c
	c.mu.Lock()
	c.services[reg.name] = reg
	c.mu.Unlock()
	c.logger.Debug("service registered", "service", reg.name, "lifetime", reg.lifetime.String())
}

// Resolve returns the service registered under name, searching the parent chain when the
// name is not registered locally. It returns a *NotRegisteredError if no container in the
// chain knows name.
func (c *Container) Resolve(name string) (any, error) {
	return c.ResolveWith(name, nil)
}

// ResolveWith is Resolve with keyword arguments for Factory and Transient registrations.
// Singleton registrations ignore args.
func (c *Container) ResolveWith(name string, args Args) (any, error) {
	reg := c.lookup(name)
	if reg == nil {
		return nil, &NotRegisteredError{Name: name}
	}
	v, err := reg.build(args)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("service resolved", "service", name, "lifetime", reg.lifetime.String())
	return v, nil
}

func (r *registration) build(args Args) (any, error) {
	if args == nil {
		args = Args{}
	}
	switch r.lifetime {
	case Transient:
		return r.ctor(args), nil
	case Factory:
		v, err := r.factory(args)
		if err != nil {
			return nil, &FactoryError{Name: r.name, Err: err}
		}
		return v, nil
	default:
		return r.instance, nil
	}
}

// lookup walks the chain from c to the root and returns the first registration for name.
func (c *Container) lookup(name string) *registration {
	for cur := c; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		reg, ok := cur.services[name]
		cur.mu.RUnlock()
		if ok {
			return reg
		}
	}
	return nil
}

// Has reports whether name is registered in this container. The parent chain is not
// consulted, so callers can tell inherited services from their own.
func (c *Container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.services[name]
	return ok
}

// Resolvable reports whether Resolve(name) would find a registration in c or any ancestor.
func (c *Container) Resolvable(name string) bool {
	return c.lookup(name) != nil
}

// Lifetime returns the lifetime of the local registration for name.
func (c *Container) Lifetime(name string) (Lifetime, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reg, ok := c.services[name]
	if !ok {
		return 0, false
	}
	return reg.lifetime, true
}

// Unregister removes the local registration for name and reports whether one existed.
func (c *Container) Unregister(name string) bool {
	c.mu.Lock()
	_, ok := c.services[name]
	delete(c.services, name)
	c.mu.Unlock()
	if ok {
		c.logger.Debug("service unregistered", "service", name)
	}
	return ok
}

// Clear removes every local registration. Parent and children are untouched.
func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.services)
}

// CreateChild returns a new Container whose parent is c. The child shares c's logger.
func (c *Container) CreateChild() *Container {
	return &Container{
		services: make(map[string]*registration),
		parent:   c,
		logger:   c.logger,
	}
}

// Parent returns the parent container, or nil for a root container.
func (c *Container) Parent() *Container { return c.parent }

// Names returns the locally registered names, sorted.
func (c *Container) Names() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.services))
	for name := range c.services {
		names = append(names, name)
	}
	c.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Len returns the number of local registrations.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.services)
}

func (c *Container) String() string {
	return fmt.Sprintf("Container(services=[%s])", strings.Join(c.Names(), ", "))
}
