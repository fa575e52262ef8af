package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout is the execution timeout applied by NewRegistry unless overridden.
const DefaultTimeout = 30 * time.Second

// Registry holds tools by unique name, files them under categories and executes them with
// timeout, semaphore and panic recovery. It is safe for concurrent use.
type Registry struct {
	tools       map[string]Tool // wrapped with middlewares, used by Execute
	rawTools    map[string]Tool // unwrapped, used by Use() to re-apply middlewares from scratch
	categories  map[string]map[string]struct{}
	sem         chan struct{}
	opts        registryOptions
	done        chan struct{}
	running     sync.WaitGroup
	mu          sync.RWMutex
	middlewares []Middleware
}

// NewRegistry creates an empty Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	o := registryOptions{
		timeout:        DefaultTimeout,
		maxConcurrency: 10,
		recoverPanics:  true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	var sem chan struct{}
	if o.maxConcurrency > 0 {
		sem = make(chan struct{}, o.maxConcurrency)
	}
	return &Registry{
		tools:      make(map[string]Tool),
		rawTools:   make(map[string]Tool),
		categories: make(map[string]map[string]struct{}),
		sem:        sem,
		opts:       o,
		done:       make(chan struct{}),
	}
}

// Register adds t under its name. Stored middlewares (see Use) are applied first.
// A taken name fails with *DuplicateToolNameError unless WithReplace is given.
// The tool is filed under InCategory categories and under the categories it declares itself.
func (r *Registry) Register(t Tool, opts ...RegisterOption) error {
	if t == nil {
		return errors.New("tools: tool must not be nil")
	}
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}
	name := t.Name()
	if name == "" {
		return errors.New("tools: tool name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rawTools[name]; exists {
		if !o.replace {
			return &DuplicateToolNameError{Name: name}
		}
		r.removeFromCategories(name)
	}
	r.rawTools[name] = t
	r.tools[name] = r.wrap(t)

	categories := o.categories
	if md, ok := t.(Metadata); ok {
		categories = append(categories, md.Categories()...)
	}
	for _, c := range categories {
		r.addToCategory(name, c)
	}
	r.opts.logger.Debug("tool registered", "tool", name, "categories", categories)
	return nil
}

// MustRegister is like Register but panics on error. It returns r for chaining.
func (r *Registry) MustRegister(t Tool, opts ...RegisterOption) *Registry {
	if err := r.Register(t, opts...); err != nil {
		panic(err)
	}
	return r
}

// Unregister removes the tool and its category memberships. It reports whether the tool existed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rawTools[name]; !ok {
		return false
	}
	delete(r.rawTools, name)
	delete(r.tools, name)
	r.removeFromCategories(name)
	r.opts.logger.Debug("tool unregistered", "tool", name)
	return true
}

// AddToCategory files a registered tool under category.
func (r *Registry) AddToCategory(name, category string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rawTools[name]; !ok {
		return &NotFoundError{Name: name}
	}
	r.addToCategory(name, category)
	return nil
}

func (r *Registry) addToCategory(name, category string) {
	if category == "" {
		return
	}
	members, ok := r.categories[category]
	if !ok {
		members = make(map[string]struct{})
		r.categories[category] = members
	}
	members[name] = struct{}{}
}

// removeFromCategories drops name from every category and removes categories left empty.
func (r *Registry) removeFromCategories(name string) {
	for c, members := range r.categories {
		delete(members, name)
		if len(members) == 0 {
			delete(r.categories, c)
		}
	}
}

// Get returns the tool registered under name (after middlewares are applied).
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.tools))
}

// List returns all registered tools sorted by name for deterministic export.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := slices.Sorted(maps.Keys(r.tools))
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}
	return out
}

// Categories returns the names of non-empty categories, sorted.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.categories))
}

// ListByCategory returns the sorted names of tools in category. An unknown category yields nil.
func (r *Registry) ListByCategory(category string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.categories[category]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(members))
}

// Clear removes every tool and category. Middlewares are kept.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.tools)
	clear(r.rawTools)
	clear(r.categories)
}

// Execute runs the tool registered under name. Lookup failures return *NotFoundError and
// argument failures *ValidationError; all other failures, including timeouts and panics, are
// reported through the Result. The after-execution hook is always invoked.
func (r *Registry) Execute(ctx context.Context, name string, args Args) (res Result, err error) {
	start := time.Now()
	if r.opts.onAfter != nil {
		defer func() {
			r.opts.onAfter(ctx, name, res, err, time.Since(start))
		}()
	}

	r.mu.RLock()
	select {
	case <-r.done:
		r.mu.RUnlock()
		return Result{ToolName: name}, ErrShutdown
	default:
	}
	t, ok := r.tools[name]
	if !ok {
		r.mu.RUnlock()
		return Result{ToolName: name}, &NotFoundError{Name: name}
	}
	r.running.Add(1)
	r.mu.RUnlock()
	defer r.running.Done()

	if err := r.acquireSemaphore(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Failed(name, ErrTimeout.Error()), nil
		}
		return Failed(name, err.Error()), nil
	}
	defer r.releaseSemaphore()

	timeout := r.opts.timeout
	if md, ok := t.(Metadata); ok && md.Timeout() > 0 {
		timeout = md.Timeout()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if r.opts.onBefore != nil {
		r.opts.onBefore(ctx, name, args)
	}
	res, err = r.invoke(ctx, t, args)
	if err != nil {
		return res, err
	}
	if !res.Success && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.Error = fmt.Sprintf("%s after %s: %s", ErrTimeout, timeout, res.Error)
	}
	if res.ToolName == "" {
		res.ToolName = name
	}
	return res, nil
}

func (r *Registry) invoke(ctx context.Context, t Tool, args Args) (res Result, err error) {
	if r.opts.recoverPanics {
		defer func() {
			if p := recover(); p != nil {
				res, err = Failed(t.Name(), (&panicError{p: p}).Error()), nil
			}
		}()
	}
	if args == nil {
		args = Args{}
	}
	return t.Execute(ctx, args)
}

func (r *Registry) acquireSemaphore(ctx context.Context) error {
	if r.sem == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) releaseSemaphore() {
	if r.sem != nil {
		<-r.sem
	}
}

// ExecuteJSON is Execute with arguments given as a JSON object, as produced by models.
// Empty input means no arguments; malformed JSON is a *ValidationError.
func (r *Registry) ExecuteJSON(ctx context.Context, name string, argsJSON []byte) (Result, error) {
	args, err := ParseArgs(argsJSON)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ve.Tool = name
		}
		return Result{ToolName: name}, err
	}
	return r.Execute(ctx, name, args)
}

// ParseArgs decodes a JSON object of arguments. Empty input yields empty Args.
func ParseArgs(argsJSON []byte) (Args, error) {
	args := Args{}
	if len(argsJSON) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return nil, &ValidationError{Reason: "arguments must be a JSON object: " + err.Error()}
	}
	if args == nil {
		args = Args{}
	}
	return args, nil
}

// ExecuteBatch runs calls concurrently and returns one CallResult per call in input order.
// A failing call never affects the others.
func (r *Registry) ExecuteBatch(ctx context.Context, calls []Call) []CallResult {
	results := make([]CallResult, len(calls))
	var g errgroup.Group
	if r.opts.maxConcurrency > 0 {
		g.SetLimit(r.opts.maxConcurrency)
	}
	for i, call := range calls {
		g.Go(func() error {
			res, err := r.ExecuteJSON(ctx, call.Name, call.Arguments)
			results[i] = CallResult{ID: call.ID, Name: call.Name, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Shutdown closes the registry for new calls and waits for in-flight executions or ctx to cancel.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		return nil
	default:
		close(r.done)
	}
	r.mu.Unlock()
	done := make(chan struct{})
	go func() {
		r.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
