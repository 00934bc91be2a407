// Package localsession provides the in-process session.Factory used by the
// CLI. It wires the file and HTTP fetchers, the module registry and the
// metrics collector into a session.
package localsession

import (
	"context"
	"time"

	"github.com/specialistvlad/modload/internal/ctxlog"
	"github.com/specialistvlad/modload/internal/fetch"
	"github.com/specialistvlad/modload/internal/host"
	"github.com/specialistvlad/modload/internal/metrics"
	"github.com/specialistvlad/modload/internal/registry"
	"github.com/specialistvlad/modload/internal/session"
)

// SessionFactory implements session.Factory for local runs.
type SessionFactory struct {
	// Registry receives module declarations. Nil means a fresh registry
	// per session.
	Registry *registry.Registry
	// Metrics, when set, observes sessions and fetches.
	Metrics *metrics.Collector
	// Fetcher overrides the default file and HTTP fetcher.
	Fetcher fetch.Fetcher
	// Dir is the base directory of relative file locators.
	Dir string
	// Globals are symbols defined before any resource runs.
	Globals []string
}

var _ session.Factory = (*SessionFactory)(nil)

// NewSession creates and configures a new local session.
func (f *SessionFactory) NewSession(ctx context.Context, cfg session.Config) (*session.Session, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Creating local session.", "app", cfg.App, "dir", f.Dir)

	fetcher := f.Fetcher
	if fetcher == nil {
		fetcher = DefaultFetcher(f.Dir, cfg.Timeout)
	}
	reg := f.Registry
	if reg == nil {
		reg = registry.New()
	}
	reg.WithLogger(logger)

	opts := []session.Option{
		session.WithFetcher(fetcher),
		session.WithRegistrar(reg),
		session.WithEnvironment(host.NewEnvironment(f.Globals...)),
		session.WithLogger(logger),
	}
	if f.Metrics != nil {
		opts = append(opts, session.WithObserver(f.Metrics), session.WithFetchObserver(f.Metrics))
	}

	s := session.New(opts...)
	if err := s.Configure(ctx, cfg); err != nil {
		_ = s.Close()
		return nil, err
	}
	ctxlog.FromContext(ctxlog.WithSession(ctx, s.ID())).Debug("Local session created.")
	return s, nil
}

// DefaultFetcher reads plain and file:// locators below dir and fetches
// http(s) and scheme-relative locators over the network.
func DefaultFetcher(dir string, timeout time.Duration) fetch.Fetcher {
	if timeout <= 0 {
		timeout = fetch.DefaultTimeout
	}
	file := &fetch.File{Dir: dir}
	web := fetch.NewHTTP(timeout)
	return &fetch.Schemes{
		ByScheme: map[string]fetch.Fetcher{
			"file":  file,
			"http":  web,
			"https": web,
		},
		Default: file,
	}
}
