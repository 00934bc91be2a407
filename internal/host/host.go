// Package host abstracts the framework modules are registered with.
//
// The loader never changes a Registrar in place. Intercept wraps the original
// once and the session registers modules through the wrapper, which runs the
// loader hooks around the original call.
package host

import (
	"sort"
	"sync"
)

// Registrar is the host framework's registration surface.
type Registrar interface {
	// Module registers a module and the names it depends on.
	Module(name string, requires []string) error
	// Bootstrap starts the application with the given root modules.
	Bootstrap(modules []string) error
}

// Hooks run around Registrar.Module. Either may be nil.
type Hooks struct {
	// BeforeModule runs before the original registration. An error aborts
	// the registration.
	BeforeModule func(name string, requires []string) error
	// AfterModule runs after the original registration succeeded.
	AfterModule func(name string) error
}

type interceptor struct {
	orig  Registrar
	hooks Hooks
}

// Intercept returns a Registrar that runs hooks around orig.Module.
// Bootstrap is passed through unchanged.
func Intercept(orig Registrar, hooks Hooks) Registrar {
	return &interceptor{orig: orig, hooks: hooks}
}

func (i *interceptor) Module(name string, requires []string) error {
	if i.hooks.BeforeModule != nil {
		if err := i.hooks.BeforeModule(name, requires); err != nil {
			return err
		}
	}
	if err := i.orig.Module(name, requires); err != nil {
		return err
	}
	if i.hooks.AfterModule != nil {
		return i.hooks.AfterModule(name)
	}
	return nil
}

func (i *interceptor) Bootstrap(modules []string) error {
	return i.orig.Bootstrap(modules)
}

// Environment is the table of global symbols defined by executed resources.
// It is safe for concurrent use.
type Environment struct {
	mu      sync.RWMutex
	base    []string
	symbols map[string]struct{}
}

// NewEnvironment returns an environment with names already defined. These
// names are provided by the host and survive Reset.
func NewEnvironment(names ...string) *Environment {
	e := &Environment{base: append([]string(nil), names...)}
	e.symbols = e.baseSymbols()
	return e
}

func (e *Environment) baseSymbols() map[string]struct{} {
	symbols := make(map[string]struct{}, len(e.base))
	for _, n := range e.base {
		symbols[n] = struct{}{}
	}
	return symbols
}

// Define adds name to the environment.
func (e *Environment) Define(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.symbols == nil {
		e.symbols = make(map[string]struct{})
	}
	e.symbols[name] = struct{}{}
}

// Defined reports whether name was defined.
func (e *Environment) Defined(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.symbols[name]
	return ok
}

// Reset removes every symbol defined since creation.
func (e *Environment) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.symbols = e.baseSymbols()
}

// Symbols lists every defined name, sorted.
func (e *Environment) Symbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.symbols))
	for n := range e.symbols {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
