// Package catalog resolves module.function/arity names to local callables.
package catalog

import (
	"fmt"
	"sync"
)

// Func is a locally-registered callable. It receives the request's argument
// list and returns a result or an error (EXECUTION_ERROR per spec §7).
type Func func(args []any) (any, error)

type entry struct {
	arity int
	fn    Func
}

// Catalog is a mutex-guarded table of module.function/arity -> Func.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{entries: make(map[string]entry)}
}

// Register adds a callable for module.function at the given arity. Registering
// the same module/function/arity twice replaces the previous entry.
func (c *Catalog) Register(module, function string, arity int, fn Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(module, function, arity)] = entry{arity: arity, fn: fn}
}

// Resolve looks up module.function for the given argument count. The bool is
// false when nothing is registered for that exact arity — callers treat this
// as "not locally resolvable" (spec's INCAPABLE, expressed as nil elsewhere).
func (c *Catalog) Resolve(module, function string, arity int) (Func, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key(module, function, arity)]
	if !ok {
		return nil, false
	}
	return e.fn, true
}

// Resolvable reports whether module.function/arity is registered, without
// invoking it. Used by internal/requests for acceptancePriority/busynessWeight.
func (c *Catalog) Resolvable(module, function string, arity int) bool {
	_, ok := c.Resolve(module, function, arity)
	return ok
}

// Apply resolves and invokes module.function(args) locally. It is never
// exposed over RPC — the mesh does not perform cross-node apply directly.
func (c *Catalog) Apply(module, function string, args []any) (any, error) {
	fn, ok := c.Resolve(module, function, len(args))
	if !ok {
		return nil, fmt.Errorf("catalog: %s.%s/%d not resolvable", module, function, len(args))
	}
	return fn(args)
}

func key(module, function string, arity int) string {
	return fmt.Sprintf("%s.%s/%d", module, function, arity)
}
