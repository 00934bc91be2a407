package manifest

import (
	"fmt"

	"github.com/specialistvlad/modload/internal/readiness"
)

// Runtime is what executing a manifest acts upon. Every call must return
// without waiting for loads it starts.
type Runtime interface {
	// Provide marks locators as already present, so loading them executes
	// nothing.
	Provide(locators []string)
	// Configure applies a config block.
	Configure(s Settings) error
	// LoadSequential starts loading names one after another.
	LoadSequential(names []string) error
	// Require starts loading name, released once checker holds.
	Require(name string, checker readiness.Spec) error
	// Define makes a symbol visible to readiness checkers.
	Define(symbol string)
	// Module registers a module with the host.
	Module(name string, requires []string) error
	// SetRoots names the modules passed to the host at bootstrap.
	SetRoots(names []string)
}

// Evaluate executes f against rt in a fixed order: bundled, config,
// externals, requires, globals, modules, bootstrap. It stops at the first
// error.
func Evaluate(f *File, rt Runtime) error {
	if len(f.Bundled) > 0 {
		rt.Provide(append([]string(nil), f.Bundled...))
	}
	if !f.Settings.Empty() {
		if err := rt.Configure(f.Settings.Clone()); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if len(f.Externals) > 0 {
		if err := rt.LoadSequential(append([]string(nil), f.Externals...)); err != nil {
			return fmt.Errorf("externals: %w", err)
		}
	}
	for _, r := range f.Requires {
		if err := rt.Require(r.Name, r.Checker); err != nil {
			return fmt.Errorf("require %q: %w", r.Name, err)
		}
	}
	for _, g := range f.Globals {
		rt.Define(g)
	}
	for _, m := range f.Modules {
		if err := rt.Module(m.Name, append([]string(nil), m.Requires...)); err != nil {
			return fmt.Errorf("module %q: %w", m.Name, err)
		}
	}
	if f.HasBootstrap {
		rt.SetRoots(append([]string(nil), f.Bootstrap...))
	}
	return nil
}
