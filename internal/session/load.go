package session

import (
	"errors"
	"time"

	"github.com/specialistvlad/modload/internal/fetch"
	"github.com/specialistvlad/modload/internal/gate"
	"github.com/specialistvlad/modload/internal/loaderr"
	"github.com/specialistvlad/modload/internal/manifest"
	"github.com/specialistvlad/modload/internal/readiness"
)

// resource tracks one claimed locator.
type resource struct {
	locator string
	name    string
	settled bool
	err     error
	waiters []func(error)
}

func (r *resource) finish(err error) {
	r.err = err
	r.settled = err == nil
	waiters := r.waiters
	r.waiters = nil
	for _, w := range waiters {
		w(err)
	}
}

// batch completes once every member was dispatched and is done.
type batch struct {
	remaining  int
	dispatched bool
	finished   bool
	err        error
	done       func(error)
}

func (b *batch) memberDone(err error) {
	if err != nil && b.err == nil {
		b.err = err
	}
	b.remaining--
	b.maybeFinish()
}

func (b *batch) maybeFinish() {
	if !b.dispatched || b.remaining > 0 || b.finished {
		return
	}
	b.finished = true
	if b.done != nil {
		b.done(b.err)
	}
}

type member struct {
	name    string
	locator string
}

// startBatch loads names relative to parent. done may be nil.
func (s *Session) startBatch(names []string, parent string, opts LoadOptions, done func(error)) {
	b := &batch{done: done}

	var members []member
	for _, name := range names {
		if s.provided[name] {
			members = append(members, member{name: name, locator: name})
			continue
		}
		locator, ok := s.resolver.Resolve(name, parent)
		if !ok {
			s.logger.Debug("Skipping excluded module.", "name", name)
			continue
		}
		members = append(members, member{name: name, locator: locator})
	}

	if !opts.Sequential {
		for _, m := range members {
			b.remaining++
			s.loadMember(b, m, opts, func() {})
		}
		b.dispatched = true
		b.maybeFinish()
		return
	}

	gen := s.gen
	var next func(i int)
	next = func(i int) {
		if gen != s.gen {
			return
		}
		if i == len(members) {
			b.dispatched = true
			b.maybeFinish()
			return
		}
		b.remaining++
		s.loadMember(b, members[i], opts, func() {
			s.post(func() { next(i + 1) })
		})
	}
	next(0)
}

// loadMember loads one member of b. onLoaded runs once the resource was
// fetched and executed, or immediately when the member does not own it.
func (s *Session) loadMember(b *batch, m member, opts LoadOptions, onLoaded func()) {
	if r, ok := s.resources[m.locator]; ok {
		switch {
		case r.settled:
			b.memberDone(nil)
		case r.err != nil:
			b.memberDone(r.err)
		default:
			r.waiters = append(r.waiters, b.memberDone)
		}
		onLoaded()
		return
	}

	if err := s.claim(m.locator); err != nil {
		s.report(err)
		b.memberDone(err)
		onLoaded()
		return
	}

	r := &resource{locator: m.locator, name: m.name, waiters: []func(error){b.memberDone}}
	s.resources[m.locator] = r

	checker := s.checkerFor(m.name, opts)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.cfg.Timeout
	}

	if s.provided[m.locator] {
		s.logger.Debug("Resource already bundled.", "name", m.name, "locator", m.locator)
		onLoaded()
		s.awaitReady(r, checker, timeout)
		return
	}

	gen := s.gen
	s.logger.Debug("Loading resource.", "name", m.name, "locator", m.locator)
	s.loader.Load(s.ctx, m.locator, func(c fetch.Completion) {
		s.post(func() {
			if gen != s.gen {
				return
			}
			s.onFetched(r, c, checker, timeout, onLoaded)
		})
	})
}

func (s *Session) checkerFor(name string, opts LoadOptions) readiness.Spec {
	if spec, ok := opts.Checkers[name]; ok {
		return spec
	}
	if !opts.Checker.IsAlways() {
		return opts.Checker
	}
	return s.cfg.Checkers[name]
}

func (s *Session) onFetched(r *resource, c fetch.Completion, checker readiness.Spec, timeout time.Duration, onLoaded func()) {
	if c.Err != nil {
		s.fail(r, c.Err)
		onLoaded()
		return
	}

	if err := s.execute(r, c.Body); err != nil {
		s.fail(r, loaderr.Wrap(loaderr.LoadFailure, r.locator, err))
		onLoaded()
		return
	}
	s.logger.Debug("Resource executed.", "locator", r.locator, "duration", c.Duration)
	onLoaded()
	s.awaitReady(r, checker, timeout)
}

// awaitReady settles r once checker holds, or fails it after timeout.
func (s *Session) awaitReady(r *resource, checker readiness.Spec, timeout time.Duration) {
	if checker.IsAlways() {
		s.settle(r)
		return
	}
	pred := readiness.Normalize(checker, s.env)
	readiness.Poll(loopScheduler{s: s, gen: s.gen}, pred, s.cfg.Interval, timeout, func(o readiness.Outcome) {
		if o == readiness.Ready {
			s.settle(r)
			return
		}
		s.fail(r, loaderr.New(loaderr.ReadinessTimeout, r.name, timeout))
	})
}

// execute parses and evaluates a fetched manifest.
func (s *Session) execute(r *resource, body []byte) error {
	f, err := manifest.Parse(r.locator, body)
	if err != nil {
		return err
	}
	prev := s.current
	s.current = r.locator
	defer func() { s.current = prev }()
	return manifest.Evaluate(f, &evaluator{s: s})
}

func (s *Session) settle(r *resource) {
	if err := s.release(r.locator); err != nil {
		s.report(err)
		r.finish(err)
		return
	}
	r.finish(nil)
}

func (s *Session) fail(r *resource, err error) {
	s.report(err)
	r.finish(err)
}

func (s *Session) claim(key string) error {
	if err := s.gate.Claim(key); err != nil {
		return err
	}
	s.obs.SetPending(s.gate.Pending())
	return nil
}

func (s *Session) release(key string) error {
	zero, err := s.gate.Release(key)
	if err != nil {
		return err
	}
	s.obs.SetPending(s.gate.Pending())
	if zero {
		gen := s.gen
		s.post(func() {
			if gen == s.gen {
				s.bootstrapCheck()
			}
		})
	}
	return nil
}

// bootstrapCheck runs as its own task after the pending count reached zero,
// so work queued in between can still add claims.
func (s *Session) bootstrapCheck() {
	if s.Err() != nil || s.gate.State() != gate.Loading || !s.gate.CanBootstrap() {
		return
	}
	if err := s.gate.Bootstrap(); err != nil {
		s.report(err)
		return
	}

	roots := s.roots
	if len(roots) == 0 {
		roots = []string{s.cfg.App}
	}
	if err := s.registrar.Bootstrap(roots); err != nil {
		le := asLoaderError(err, "bootstrap")
		s.obs.Error(le.Kind)
		if s.cfg.ErrorHandler != nil {
			s.cfg.ErrorHandler(le)
		}
		s.terminate(le)
		return
	}
	if s.cfg.BootstrapFn != nil {
		s.cfg.BootstrapFn()
	}
	s.obs.Bootstrapped()
	s.logger.Info("Application bootstrapped.", "modules", roots)

	s.mu.Lock()
	close(s.bootstrapped)
	s.mu.Unlock()
}

// report hands err to the error handler, or fails the session when there
// is none.
func (s *Session) report(err error) {
	le := asLoaderError(err, "")
	s.obs.Error(le.Kind)
	if s.cfg != nil && s.cfg.ErrorHandler != nil {
		s.logger.Warn("Loader error handled.", "kind", le.Kind, "error", le)
		s.cfg.ErrorHandler(le)
		return
	}
	s.terminate(le)
}

// terminate fails the session. Only the first error is kept.
func (s *Session) terminate(le *loaderr.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	s.err = le
	close(s.failed)
	s.logger.Error("Session failed.", "kind", le.Kind, "error", le)
}

func asLoaderError(err error, subject string) *loaderr.Error {
	var le *loaderr.Error
	if errors.As(err, &le) {
		return le
	}
	return loaderr.Wrap(loaderr.LoadFailure, subject, err)
}
