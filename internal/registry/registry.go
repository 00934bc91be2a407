package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Module is implemented by modules compiled into the binary. They are
// registered before any resource is loaded.
type Module interface {
	Register(r *Registry)
}

// Builtin is a Module with no backing resource.
type Builtin struct {
	Name     string
	Requires []string
}

// Register implements Module.
func (b Builtin) Register(r *Registry) {
	if err := r.Module(b.Name, b.Requires); err != nil {
		panic(err)
	}
	r.mutex.Lock()
	r.modules[b.Name].Builtin = true
	r.mutex.Unlock()
}

// Entry is one registered module.
type Entry struct {
	Name     string
	Requires []string
	// Seq is the registration order, starting at 0.
	Seq     int
	Builtin bool
}

// Registry records module declarations and bootstrap calls. It is the
// shipped host.Registrar and is safe for concurrent use.
type Registry struct {
	mutex      sync.RWMutex
	modules    map[string]*Entry
	order      []string
	bootstraps [][]string
	logger     *slog.Logger
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		modules: make(map[string]*Entry),
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger used for registration events.
func (r *Registry) WithLogger(l *slog.Logger) *Registry {
	if l != nil {
		r.logger = l
	}
	return r
}

// Module registers a module. Registering the same name twice is an error.
func (r *Registry) Module(name string, requires []string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module '%s' already registered", name)
	}
	r.modules[name] = &Entry{
		Name:     name,
		Requires: slices.Clone(requires),
		Seq:      len(r.order),
	}
	r.order = append(r.order, name)
	r.logger.Debug("Registering module.", "name", name, "requires", requires)
	return nil
}

// Bootstrap validates that every module reachable from modules is registered
// and records the call.
func (r *Registry) Bootstrap(modules []string) error {
	if err := r.Validate(modules); err != nil {
		return err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.bootstraps = append(r.bootstraps, slices.Clone(modules))
	r.logger.Debug("Bootstrap recorded.", "modules", modules, "registered", len(r.order))
	return nil
}

// Reset forgets every module and bootstrap call except builtin modules.
func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	modules := make(map[string]*Entry)
	var order []string
	for _, name := range r.order {
		e := r.modules[name]
		if !e.Builtin {
			continue
		}
		e.Seq = len(order)
		modules[name] = e
		order = append(order, name)
	}
	r.modules = modules
	r.order = order
	r.bootstraps = nil
}

// Registered reports whether name was registered.
func (r *Registry) Registered(name string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, ok := r.modules[name]
	return ok
}

// Lookup returns the entry for name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	e, ok := r.modules[name]
	if !ok {
		return Entry{}, false
	}
	out := *e
	out.Requires = slices.Clone(e.Requires)
	return out, true
}

// Modules returns every entry in registration order.
func (r *Registry) Modules() []Entry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	out := make([]Entry, 0, len(r.order))
	for _, name := range r.order {
		e := *r.modules[name]
		e.Requires = slices.Clone(e.Requires)
		out = append(out, e)
	}
	return out
}

// Bootstraps returns the root modules of every Bootstrap call, in order.
func (r *Registry) Bootstraps() [][]string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	out := make([][]string, len(r.bootstraps))
	for i, b := range r.bootstraps {
		out[i] = slices.Clone(b)
	}
	return out
}
