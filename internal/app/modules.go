package app

import (
	"fmt"

	"github.com/specialistvlad/modload/internal/registry"
)

// builtinModules returns the modules compiled into the binary followed by
// the builtins named in the configuration. Configured names already
// provided by a compiled module are skipped.
func builtinModules(compiled []registry.Module, configured []string) []registry.Module {
	seen := make(map[string]bool)
	for _, m := range compiled {
		if b, ok := m.(registry.Builtin); ok {
			seen[b.Name] = true
		}
	}
	modules := append([]registry.Module(nil), compiled...)
	for _, name := range configured {
		if seen[name] {
			continue
		}
		seen[name] = true
		modules = append(modules, registry.Builtin{Name: name})
	}
	return modules
}

// registerModules registers every module, turning a registration panic
// into an error.
func registerModules(reg *registry.Registry, modules []registry.Module) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to register builtin modules: %v", r)
		}
	}()
	for _, mod := range modules {
		mod.Register(reg)
	}
	return nil
}
