// Package readiness turns checker specifications into uniform predicates and
// polls them until they hold or time out.
//
// A checker is the secondary gate after a resource has been fetched: it
// confirms that the resource finished its own initialisation. Specs come in
// four shapes (none, a predicate, one symbol name, several symbol names) and
// are normalised once, when a load is requested.
package readiness

import (
	"context"
	"time"

	"github.com/specialistvlad/modload/internal/loaderr"
)

// DefaultInterval is the delay between two evaluations of a predicate.
const DefaultInterval = 10 * time.Millisecond

// Predicate reports whether a resource is ready.
type Predicate func() bool

// SymbolTable is the part of the host environment a checker can inspect.
type SymbolTable interface {
	Defined(name string) bool
}

type kind int

const (
	kindAlways kind = iota
	kindFunc
	kindSymbols
)

// Spec is a tagged checker specification. The zero value is "always ready".
type Spec struct {
	kind    kind
	fn      Predicate
	symbols []string
}

// Always returns a spec that is ready as soon as the resource loaded.
func Always() Spec { return Spec{} }

// Func returns a spec backed by a predicate. A nil predicate means Always.
func Func(fn Predicate) Spec {
	if fn == nil {
		return Always()
	}
	return Spec{kind: kindFunc, fn: fn}
}

// Symbol returns a spec that is ready once name is defined in the host.
func Symbol(name string) Spec { return Symbols(name) }

// Symbols returns a spec that is ready once every name is defined.
func Symbols(names ...string) Spec {
	if len(names) == 0 {
		return Always()
	}
	return Spec{kind: kindSymbols, symbols: append([]string(nil), names...)}
}

// IsAlways reports whether the spec never delays a release.
func (s Spec) IsAlways() bool { return s.kind == kindAlways }

// SymbolNames returns the names a symbol spec waits for, or nil.
func (s Spec) SymbolNames() []string {
	if s.kind != kindSymbols {
		return nil
	}
	return append([]string(nil), s.symbols...)
}

// Normalize compiles spec into a predicate. env is only consulted for
// symbol specs and may be nil otherwise.
func Normalize(spec Spec, env SymbolTable) Predicate {
	switch spec.kind {
	case kindFunc:
		return spec.fn
	case kindSymbols:
		names := spec.symbols
		return func() bool {
			if env == nil {
				return false
			}
			for _, n := range names {
				if !env.Defined(n) {
					return false
				}
			}
			return true
		}
	default:
		return func() bool { return true }
	}
}

// Outcome is the result of a poll.
type Outcome int

const (
	// Ready means the predicate held.
	Ready Outcome = iota
	// TimedOut means the predicate did not hold before the timeout.
	TimedOut
)

// Scheduler runs fn after d on the caller's thread of control. The session
// event loop implements it so predicates never run concurrently with
// resource evaluation.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// Poll evaluates pred immediately, then every interval via s, until it holds
// or timeout has elapsed since the call. done is invoked exactly once.
func Poll(s Scheduler, pred Predicate, interval, timeout time.Duration, done func(Outcome)) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	start := time.Now()
	var tick func()
	tick = func() {
		if pred() {
			done(Ready)
			return
		}
		if time.Since(start) >= timeout {
			done(TimedOut)
			return
		}
		s.After(interval, tick)
	}
	tick()
}

// Wait is the blocking form of Poll. subject names the resource in the
// returned ReadinessTimeout error.
func Wait(ctx context.Context, subject string, pred Predicate, interval, timeout time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if pred() {
			return nil
		}
		if !time.Now().Before(deadline) {
			return loaderr.New(loaderr.ReadinessTimeout, subject)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
