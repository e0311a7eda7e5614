package task

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type registeredWorker struct {
	worker Worker
	schema *jsonschema.Schema
}

// Registry maps task names to workers. It is safe for concurrent use and is
// passed explicitly to the executor and service rather than shared globally.
type Registry struct {
	mu      sync.RWMutex
	workers map[string]registeredWorker
	logger  *slog.Logger
}

// NewRegistry creates an empty worker registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		workers: make(map[string]registeredWorker),
		logger:  logger.With("component", "worker_registry"),
	}
}

// Register adds w. It fails with ErrWorkerExists if the name is taken and with
// ErrInvalidWorker if w has no name, no Execute func or an uncompilable schema.
func (r *Registry) Register(w Worker) error {
	return r.put(w, false)
}

// Replace adds w, overwriting any worker already registered under its name.
func (r *Registry) Replace(w Worker) error {
	return r.put(w, true)
}

// MustRegister is like Register but panics on error. It is intended for
// wiring built-in workers at startup.
func (r *Registry) MustRegister(w Worker) {
	if err := r.Register(w); err != nil {
		panic(err)
	}
}

func (r *Registry) put(w Worker, replace bool) error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidWorker)
	}
	if w.Execute == nil {
		return fmt.Errorf("%w: %s has no execute func", ErrInvalidWorker, w.Name)
	}

	sch, err := compileOptionsSchema(w.Name, w.OptionsSchema)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidWorker, w.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workers[w.Name]; exists && !replace {
		return fmt.Errorf("%w: %s", ErrWorkerExists, w.Name)
	}
	r.workers[w.Name] = registeredWorker{worker: w, schema: sch}

	r.logger.Debug("registered worker",
		"worker", w.Name,
		"has_validate", w.Validate != nil,
		"has_schema", sch != nil,
		"replaced", replace)
	return nil
}

// Get returns the worker registered under name.
func (r *Registry) Get(name string) (Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rw, ok := r.workers[name]
	return rw.worker, ok
}

// Names returns the registered worker names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.workers))
	for name := range r.workers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateOptions checks m against the options schema of the named worker.
// Workers without a schema accept any metadata.
func (r *Registry) ValidateOptions(name string, m Metadata) error {
	r.mu.RLock()
	rw, ok := r.workers[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, name)
	}
	return validateAgainst(rw.schema, m)
}

// CanCreate runs the worker's Validate hook for msg. Workers without a hook
// allow creation.
func (r *Registry) CanCreate(ctx context.Context, name string, msg *Message, state State) (bool, error) {
	w, ok := r.Get(name)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrWorkerNotFound, name)
	}
	if w.Validate == nil {
		return true, nil
	}
	if state == nil {
		state = State{}
	}
	allowed, err := w.Validate(ctx, msg, state)
	if err != nil {
		return false, fmt.Errorf("validate %s: %w", name, err)
	}
	return allowed, nil
}
