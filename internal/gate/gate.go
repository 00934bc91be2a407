// Package gate tracks outstanding loads and decides when an application may
// bootstrap.
//
// A Gate is a plain data structure with no locking. It is owned by exactly one
// goroutine (the session loop) and must not be shared.
package gate

import (
	"github.com/specialistvlad/modload/internal/loaderr"
)

// State is the lifecycle phase of a Gate.
type State int

const (
	// Idle means nothing was claimed yet.
	Idle State = iota
	// Loading means at least one claim was made and bootstrap has not fired.
	Loading
	// Bootstrapped is terminal.
	Bootstrapped
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Bootstrapped:
		return "bootstrapped"
	default:
		return "unknown"
	}
}

type status int

const (
	pending status = iota + 1
	settled
)

// Gate is the lock table plus its pending counter.
type Gate struct {
	locks   map[string]status
	order   []string
	pending int
	state   State
}

// New returns an idle Gate.
func New() *Gate {
	return &Gate{locks: make(map[string]status)}
}

// Claim marks key as pending.
func (g *Gate) Claim(key string) error {
	if g.state == Bootstrapped {
		return loaderr.New(loaderr.AlreadyBootstrapped, key)
	}
	if _, ok := g.locks[key]; ok {
		return loaderr.New(loaderr.DoubleClaim, key)
	}
	g.locks[key] = pending
	g.order = append(g.order, key)
	g.pending++
	g.state = Loading
	return nil
}

// Release settles key. zero reports whether the pending count dropped to zero
// with this call.
func (g *Gate) Release(key string) (zero bool, err error) {
	st, ok := g.locks[key]
	if !ok {
		return false, loaderr.New(loaderr.UnknownRelease, key)
	}
	if st == settled {
		return false, loaderr.New(loaderr.DoubleRelease, key)
	}
	g.locks[key] = settled
	g.pending--
	return g.pending == 0, nil
}

// Bootstrap moves the gate to its terminal state. It fails if the gate
// already bootstrapped or if claims are still pending.
func (g *Gate) Bootstrap() error {
	if g.state == Bootstrapped {
		return loaderr.New(loaderr.AlreadyBootstrapped, "")
	}
	if g.pending != 0 {
		return loaderr.New(loaderr.LoadFailure, "bootstrap", g.pending)
	}
	g.state = Bootstrapped
	return nil
}

// CanBootstrap reports whether Bootstrap would succeed right now.
func (g *Gate) CanBootstrap() bool {
	return g.state != Bootstrapped && g.pending == 0
}

// Has reports whether key was ever claimed.
func (g *Gate) Has(key string) bool {
	_, ok := g.locks[key]
	return ok
}

// IsPending reports whether key is claimed and not yet released.
func (g *Gate) IsPending(key string) bool {
	return g.locks[key] == pending
}

// Pending returns the number of outstanding claims.
func (g *Gate) Pending() int { return g.pending }

// State returns the current lifecycle phase.
func (g *Gate) State() State { return g.state }

// PendingKeys lists outstanding claims in claim order.
func (g *Gate) PendingKeys() []string {
	var out []string
	for _, k := range g.order {
		if g.locks[k] == pending {
			out = append(out, k)
		}
	}
	return out
}
