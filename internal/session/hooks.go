package session

import (
	"github.com/specialistvlad/modload/internal/manifest"
	"github.com/specialistvlad/modload/internal/pathresolve"
	"github.com/specialistvlad/modload/internal/readiness"
)

// beforeModule claims and loads the dependencies of a module being
// registered. Dependencies already registered, excluded, or already claimed
// are skipped.
func (s *Session) beforeModule(name string, requires []string) error {
	var load []string
	for _, dep := range requires {
		if s.isDeclared(dep) {
			continue
		}
		if pathresolve.IsAbsoluteURL(dep) {
			load = append(load, dep)
			continue
		}
		if _, ok := s.resolver.Resolve(dep, s.current); !ok {
			continue
		}
		key := moduleKey(dep)
		if !s.gate.Has(key) {
			if err := s.claim(key); err != nil {
				return err
			}
		}
		load = append(load, dep)
	}
	if len(load) > 0 {
		s.logger.Debug("Loading module dependencies.", "module", name, "requires", load)
		s.startBatch(load, s.current, LoadOptions{}, nil)
	}
	return nil
}

// afterModule releases the module's own claim if one is pending. Modules
// nobody asked for, such as those of a bundle, have none.
func (s *Session) afterModule(name string) error {
	s.declared[name] = true
	key := moduleKey(name)
	if !s.gate.IsPending(key) {
		return nil
	}
	return s.release(key)
}

func (s *Session) isDeclared(name string) bool {
	if s.declared[name] {
		return true
	}
	if r, ok := s.orig.(interface{ Registered(string) bool }); ok {
		return r.Registered(name)
	}
	return false
}

// evaluator executes manifests against the session. It only runs on the loop.
type evaluator struct {
	s *Session
}

var _ manifest.Runtime = (*evaluator)(nil)

// Provide records locators held by the resource being executed. Loading
// one later claims and checks it without fetching.
func (rt *evaluator) Provide(locators []string) {
	for _, l := range locators {
		rt.s.provided[l] = true
	}
	rt.s.logger.Debug("Resources provided by bundle.", "locator", rt.s.current, "count", len(locators))
}

// Configure merges a config block into the session configuration, later
// values winning.
func (rt *evaluator) Configure(settings manifest.Settings) error {
	s := rt.s
	current := manifest.Settings{Paths: s.cfg.Paths, Checkers: s.cfg.Checkers}
	current.Merge(settings, true)
	s.cfg.Paths = current.Paths
	s.cfg.Checkers = current.Checkers
	s.resolver = pathresolve.New(s.cfg.resolverOptions())
	s.logger.Debug("Configuration extended by resource.", "locator", s.current, "paths", len(settings.Paths), "checkers", len(settings.Checkers))
	return nil
}

func (rt *evaluator) LoadSequential(names []string) error {
	rt.s.startBatch(names, rt.s.current, LoadOptions{Sequential: true}, nil)
	return nil
}

func (rt *evaluator) Require(name string, checker readiness.Spec) error {
	rt.s.startBatch([]string{name}, rt.s.current, LoadOptions{Checker: checker}, nil)
	return nil
}

func (rt *evaluator) Define(symbol string) {
	rt.s.env.Define(symbol)
}

func (rt *evaluator) Module(name string, requires []string) error {
	return rt.s.registrar.Module(name, requires)
}

func (rt *evaluator) SetRoots(names []string) {
	rt.s.roots = names
}
