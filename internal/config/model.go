package config

import (
	"maps"
	"time"

	"github.com/specialistvlad/modload/internal/manifest"
	"github.com/specialistvlad/modload/internal/pathresolve"
	"github.com/specialistvlad/modload/internal/readiness"
)

// Model is the format-agnostic loader configuration.
type Model struct {
	App       string
	Root      string
	Timeout   time.Duration
	Extension string
	Interval  time.Duration
	Paths     map[string]pathresolve.Override
	Checkers  map[string]readiness.Spec
	Rules     []pathresolve.Rule
	// Globals are host symbols defined before any resource runs.
	Globals []string
	// Builtins are modules the host provides; they are never fetched.
	Builtins []string
	// Entries are the default bundle entries.
	Entries []string
	// Sources lists the files the model was loaded from.
	Sources []string
}

// Transforms compiles the path_transform rules.
func (m *Model) Transforms() ([]pathresolve.Transform, error) {
	return pathresolve.CompileRules(m.Rules)
}

// Merge applies other on top of m: set scalars and entries replace, maps
// are merged with other winning, rules and globals are appended.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	if other.App != "" {
		m.App = other.App
	}
	if other.Root != "" {
		m.Root = other.Root
	}
	if other.Timeout > 0 {
		m.Timeout = other.Timeout
	}
	if other.Extension != "" {
		m.Extension = other.Extension
	}
	if other.Interval > 0 {
		m.Interval = other.Interval
	}
	settings := manifest.Settings{Paths: m.Paths, Checkers: m.Checkers}
	settings.Merge(manifest.Settings{Paths: other.Paths, Checkers: other.Checkers}, true)
	m.Paths, m.Checkers = settings.Paths, settings.Checkers
	m.Rules = append(m.Rules, other.Rules...)
	m.Globals = append(m.Globals, other.Globals...)
	m.Builtins = append(m.Builtins, other.Builtins...)
	if len(other.Entries) > 0 {
		m.Entries = other.Entries
	}
	m.Sources = append(m.Sources, other.Sources...)
}

// Clone returns a deep copy of m.
func (m *Model) Clone() *Model {
	out := *m
	out.Paths = maps.Clone(m.Paths)
	out.Checkers = maps.Clone(m.Checkers)
	out.Rules = append([]pathresolve.Rule(nil), m.Rules...)
	out.Globals = append([]string(nil), m.Globals...)
	out.Builtins = append([]string(nil), m.Builtins...)
	out.Entries = append([]string(nil), m.Entries...)
	out.Sources = append([]string(nil), m.Sources...)
	return &out
}
