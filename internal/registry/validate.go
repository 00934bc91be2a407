package registry

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/modload/internal/pathresolve"
)

// Validate checks that every module reachable from roots through requires
// is registered. Absolute URLs are plain resources, not modules, and are
// skipped. All problems are reported together.
func (r *Registry) Validate(roots []string) error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var errs []string
	seen := make(map[string]bool)

	var visit func(name, from string)
	visit = func(name, from string) {
		if seen[name] || pathresolve.IsAbsoluteURL(name) {
			return
		}
		seen[name] = true

		e, ok := r.modules[name]
		if !ok {
			if from == "" {
				errs = append(errs, fmt.Sprintf("root module '%s' is not registered", name))
			} else {
				errs = append(errs, fmt.Sprintf("module '%s' requires '%s', which is not registered", from, name))
			}
			return
		}
		for _, dep := range e.Requires {
			visit(dep, name)
		}
	}

	for _, root := range roots {
		visit(root, "")
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
