// Package session runs the asynchronous module loader.
//
// A Session owns the load gate, the path resolver and the resource loader.
// All of its state is touched by a single goroutine draining a FIFO task
// queue; fetch goroutines and timers only post tasks to it. The exported
// methods are safe to call from any goroutine except from inside BootstrapFn
// or ErrorHandler, which run on the loop itself.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/specialistvlad/modload/internal/ctxlog"
	"github.com/specialistvlad/modload/internal/fetch"
	"github.com/specialistvlad/modload/internal/gate"
	"github.com/specialistvlad/modload/internal/host"
	"github.com/specialistvlad/modload/internal/loaderr"
	"github.com/specialistvlad/modload/internal/pathresolve"
	"github.com/specialistvlad/modload/internal/readiness"
	"github.com/specialistvlad/modload/internal/registry"
)

// Observer receives session level events. Implementations must be safe for
// concurrent use.
type Observer interface {
	SetPending(n int)
	Bootstrapped()
	Error(kind loaderr.Kind)
}

type nopObserver struct{}

func (nopObserver) SetPending(int)     {}
func (nopObserver) Bootstrapped()      {}
func (nopObserver) Error(loaderr.Kind) {}

// Option configures a Session.
type Option func(*Session)

// WithFetcher sets the fetcher used for every resource.
func WithFetcher(f fetch.Fetcher) Option {
	return func(s *Session) { s.fetcher = f }
}

// WithRegistrar sets the host the session registers modules with.
func WithRegistrar(r host.Registrar) Option {
	return func(s *Session) { s.orig = r }
}

// WithEnvironment sets the symbol table readiness checkers consult.
func WithEnvironment(env *host.Environment) Option {
	return func(s *Session) { s.env = env }
}

// WithObserver attaches a session observer.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.obs = o
		}
	}
}

// WithFetchObserver attaches an observer to the resource loader.
func WithFetchObserver(o fetch.Observer) Option {
	return func(s *Session) { s.fetchObs = o }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.baseLogger = l
		}
	}
}

// Session is one load-and-start cycle. See the package documentation.
type Session struct {
	fetcher    fetch.Fetcher
	orig       host.Registrar
	env        *host.Environment
	obs        Observer
	fetchObs   fetch.Observer
	baseLogger *slog.Logger

	queue    *taskQueue
	stop     chan struct{}
	loopDone chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	closing  sync.Once

	// mu guards id, err and the generation channels, which are read by
	// callers outside the loop. reset is closed when the generation ends.
	mu           sync.Mutex
	id           string
	err          *loaderr.Error
	failed       chan struct{}
	bootstrapped chan struct{}
	reset        chan struct{}

	// Loop-owned state.
	logger    *slog.Logger
	gen       uint64
	base      *Config
	cfg       *Config
	resolver  *pathresolve.Resolver
	loader    *fetch.Loader
	registrar host.Registrar
	gate      *gate.Gate
	resources map[string]*resource
	// provided holds locators whose content an executed bundle already
	// held.
	provided map[string]bool
	declared map[string]bool
	roots    []string
	current   string
}

// New creates a Session and starts its loop. Configure must be called
// before Start or Load.
func New(opts ...Option) *Session {
	s := &Session{
		fetcher:    &fetch.File{},
		obs:        nopObserver{},
		baseLogger: slog.Default(),
		queue:      newTaskQueue(),
		stop:       make(chan struct{}),
		loopDone:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.orig == nil {
		s.orig = registry.New().WithLogger(s.baseLogger)
	}
	if s.env == nil {
		s.env = host.NewEnvironment()
	}
	s.registrar = host.Intercept(s.orig, host.Hooks{
		BeforeModule: s.beforeModule,
		AfterModule:  s.afterModule,
	})
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.resetState()

	go s.run()
	return s
}

// resetState starts a new session generation. It runs before the loop
// starts or on the loop.
func (s *Session) resetState() {
	s.gen++
	id := uuid.NewString()
	s.logger = s.baseLogger.With("session", id)
	s.ctx = ctxlog.WithLogger(s.ctx, s.logger)

	s.gate = gate.New()
	s.resources = make(map[string]*resource)
	s.provided = make(map[string]bool)
	s.declared = make(map[string]bool)
	s.roots = nil
	s.current = ""
	if s.base != nil {
		s.applyConfig()
	}

	s.mu.Lock()
	s.id = id
	s.err = nil
	s.failed = make(chan struct{})
	s.bootstrapped = make(chan struct{})
	if s.reset != nil {
		close(s.reset)
	}
	s.reset = make(chan struct{})
	s.mu.Unlock()

	s.obs.SetPending(0)
}

// applyConfig installs a fresh copy of the base configuration. Resources
// may extend the copy; the base stays as configured.
func (s *Session) applyConfig() {
	cfg := s.base.clone()
	s.cfg = &cfg
	s.resolver = pathresolve.New(cfg.resolverOptions())
	if s.loader != nil {
		s.loader.Reset()
	}
	s.loader = fetch.NewLoader(s.fetcher, fetch.WithTimeout(cfg.Timeout), fetch.WithObserver(s.fetchObs))
}

// ID returns the identifier of the current session generation.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Registrar returns the host registrar modules are registered with.
func (s *Session) Registrar() host.Registrar { return s.orig }

// Environment returns the symbol table of the session.
func (s *Session) Environment() *host.Environment { return s.env }

// Configure validates cfg and installs it. It may be called again to
// replace the configuration of a session that has not started loading.
func (s *Session) Configure(ctx context.Context, cfg Config) error {
	valid, err := cfg.validate()
	if err != nil {
		return err
	}
	return s.call(ctx, func() error {
		if s.gate.State() != gate.Idle {
			return fmt.Errorf("cannot configure a session in state %s", s.gate.State())
		}
		s.base = &valid
		s.applyConfig()
		s.logger.Debug("Session configured.", "app", valid.App, "root", valid.Root, "timeout", valid.Timeout)
		return nil
	})
}

// Start claims the root module and starts loading it. It does not wait;
// use Wait for the bootstrap.
func (s *Session) Start(ctx context.Context) error {
	return s.call(ctx, func() error {
		if s.cfg == nil {
			return loaderr.New(loaderr.NotInitialized, "")
		}
		app := s.cfg.App
		s.logger.Info("Starting application load.", "app", app)
		if !pathresolve.IsAbsoluteURL(app) {
			if err := s.claim(moduleKey(app)); err != nil {
				return err
			}
		}
		s.startBatch([]string{app}, "", LoadOptions{}, nil)
		return nil
	})
}

// Load loads names and blocks until every one of them was fetched, executed
// and passed its readiness check. Names whose locator is already settled
// return immediately; names already in flight are waited for without a
// second fetch.
func (s *Session) Load(ctx context.Context, names []string, opts LoadOptions) error {
	done := make(chan error, 1)
	var failed, reset <-chan struct{}
	err := s.call(ctx, func() error {
		if s.cfg == nil {
			return loaderr.New(loaderr.NotInitialized, strings.Join(names, ", "))
		}
		failed, reset = s.generationChans()
		s.startBatch(slices.Clone(names), "", opts, func(err error) { done <- err })
		return nil
	})
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-failed:
		return s.Err()
	case <-reset:
		return ErrReset
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stop:
		return ErrClosed
	}
}

// Require loads every name with its own checker and blocks like Load.
func (s *Session) Require(ctx context.Context, specs map[string]readiness.Spec) error {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return s.Load(ctx, names, LoadOptions{Checkers: specs})
}

// Wait blocks until the application bootstrapped or the session failed.
// A Reset while waiting returns ErrReset; Wait again for the new generation.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	failed, booted, reset := s.failed, s.bootstrapped, s.reset
	s.mu.Unlock()
	select {
	case <-booted:
		return nil
	case <-failed:
		return s.Err()
	case <-reset:
		return ErrReset
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stop:
		return ErrClosed
	}
}

// Err returns the error that failed the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		return nil
	}
	return s.err
}

// Pending returns the number of outstanding claims.
func (s *Session) Pending(ctx context.Context) (int, error) {
	var n int
	err := s.call(ctx, func() error {
		n = s.gate.Pending()
		return nil
	})
	return n, err
}

// PendingKeys lists the outstanding claims in claim order. Modules are
// reported as "module:<name>", resources by locator.
func (s *Session) PendingKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.call(ctx, func() error {
		keys = s.gate.PendingKeys()
		return nil
	})
	return keys, err
}

// State returns the gate state.
func (s *Session) State(ctx context.Context) (gate.State, error) {
	var st gate.State
	err := s.call(ctx, func() error {
		st = s.gate.State()
		return nil
	})
	return st, err
}

// Reset discards all loading state and starts a new session generation
// with the same configuration. In-flight fetches and polls are ignored.
// Registrar and environment are reset when they support it; host
// provided globals and builtin modules stay. Callers blocked in Wait or
// Load return ErrReset.
func (s *Session) Reset(ctx context.Context) error {
	return s.call(ctx, func() error {
		if r, ok := s.orig.(interface{ Reset() }); ok {
			r.Reset()
		}
		s.env.Reset()
		s.resetState()
		s.logger.Debug("Session reset.")
		return nil
	})
}

// Close stops the loop. Pending tasks are dropped and blocked callers
// return ErrClosed.
func (s *Session) Close() error {
	s.closing.Do(func() {
		s.queue.close()
		close(s.stop)
		s.cancel()
		<-s.loopDone
	})
	return nil
}

func (s *Session) generationChans() (failed, reset <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed, s.reset
}

func moduleKey(name string) string { return "module:" + name }
