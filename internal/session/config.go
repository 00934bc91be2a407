package session

import (
	"maps"
	"slices"
	"time"

	"github.com/specialistvlad/modload/internal/fetch"
	"github.com/specialistvlad/modload/internal/loaderr"
	"github.com/specialistvlad/modload/internal/pathresolve"
	"github.com/specialistvlad/modload/internal/readiness"
)

// Config is the loader configuration of one session.
type Config struct {
	// App is the root module name. Mandatory.
	App string
	// Root is prefixed to relative locators.
	Root string
	// Timeout bounds each fetch and, unless a request sets its own, each
	// readiness poll. Zero means fetch.DefaultTimeout.
	Timeout time.Duration
	// Extension is appended to locators. Empty means pathresolve.DefaultExtension.
	Extension string
	// Paths maps names to locators or excludes them.
	Paths map[string]pathresolve.Override
	// Transforms run before the built-in path stages.
	Transforms []pathresolve.Transform
	// Checkers gate the release of named resources.
	Checkers map[string]readiness.Spec
	// Interval is the readiness poll interval. Zero means readiness.DefaultInterval.
	Interval time.Duration
	// BootstrapFn runs on the session loop after the host bootstrapped.
	BootstrapFn func()
	// ErrorHandler, when set, receives every loader error and the session
	// keeps going. Without it the first error fails the session.
	ErrorHandler func(err *loaderr.Error)
}

// validate checks mandatory settings and fills defaults.
func (c Config) validate() (Config, error) {
	if c.App == "" {
		return c, loaderr.New(loaderr.MissingConfiguration, "app")
	}
	if c.Timeout <= 0 {
		c.Timeout = fetch.DefaultTimeout
	}
	if c.Interval <= 0 {
		c.Interval = readiness.DefaultInterval
	}
	return c.clone(), nil
}

func (c Config) clone() Config {
	c.Paths = maps.Clone(c.Paths)
	c.Checkers = maps.Clone(c.Checkers)
	c.Transforms = slices.Clone(c.Transforms)
	return c
}

func (c Config) resolverOptions() pathresolve.Options {
	return pathresolve.Options{
		Paths:      c.Paths,
		Transforms: c.Transforms,
		Root:       c.Root,
		Extension:  c.Extension,
	}
}

// LoadOptions tunes one Load call.
type LoadOptions struct {
	// Sequential loads names one after another; the next starts once the
	// previous one was fetched and executed, without waiting for readiness.
	Sequential bool
	// Checker applies to every name without an entry in Checkers.
	Checker readiness.Spec
	// Checkers holds per-name checkers.
	Checkers map[string]readiness.Spec
	// Timeout bounds readiness polls of this call. Zero means the session timeout.
	Timeout time.Duration
}
