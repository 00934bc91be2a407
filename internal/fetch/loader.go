package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/modload/internal/loaderr"
)

// DefaultTimeout bounds how long a caller waits for one resource.
const DefaultTimeout = 30 * time.Second

// Outcome classifies a Completion.
type Outcome int

const (
	// Loaded means the body arrived in time.
	Loaded Outcome = iota
	// Failed means the fetcher returned an error.
	Failed
	// TimedOut means the caller stopped waiting; the fetch may still finish.
	TimedOut
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Completion is the single result of a Load call.
type Completion struct {
	Locator  string
	Epoch    uint64
	Outcome  Outcome
	Body     []byte
	Err      error
	Duration time.Duration
}

// Observer is notified about fetch activity. Implementations must be safe
// for concurrent use.
type Observer interface {
	FetchStarted(locator string)
	FetchFinished(locator string, outcome Outcome, d time.Duration)
	FetchDiscarded(locator string)
}

// Loader performs fetches with the load contract described in the package
// documentation.
type Loader struct {
	fetcher  Fetcher
	timeout  time.Duration
	observer Observer

	mu         sync.Mutex
	generation uint64
	epochs     map[string]uint64
}

// Option configures a Loader.
type Option func(*Loader)

// WithTimeout sets the per-load timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(l *Loader) { l.observer = o }
}

// NewLoader creates a Loader around f.
func NewLoader(f Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher: f,
		timeout: DefaultTimeout,
		epochs:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Timeout returns the configured per-load timeout.
func (l *Loader) Timeout() time.Duration { return l.timeout }

// Reset invalidates every in-flight load. Their results are discarded.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	l.epochs = make(map[string]uint64)
}

// Load starts fetching locator and calls deliver exactly once, from another
// goroutine, with the outcome. ctx is handed to the fetch itself; the timeout
// does not cancel it.
func (l *Loader) Load(ctx context.Context, locator string, deliver func(Completion)) {
	l.mu.Lock()
	l.epochs[locator]++
	epoch := l.epochs[locator]
	gen := l.generation
	l.mu.Unlock()

	if l.observer != nil {
		l.observer.FetchStarted(locator)
	}

	start := time.Now()
	var once sync.Once
	settle := func(c Completion) {
		fired := false
		once.Do(func() { fired = true })
		if !fired || !l.current(locator, epoch, gen) {
			if l.observer != nil {
				l.observer.FetchDiscarded(locator)
			}
			return
		}
		c.Locator = locator
		c.Epoch = epoch
		c.Duration = time.Since(start)
		if l.observer != nil {
			l.observer.FetchFinished(locator, c.Outcome, c.Duration)
		}
		deliver(c)
	}

	timer := time.AfterFunc(l.timeout, func() {
		settle(Completion{
			Outcome: TimedOut,
			Err:     loaderr.New(loaderr.LoadTimeout, locator, l.timeout),
		})
	})

	go func() {
		body, err := l.fetcher.Fetch(ctx, locator)
		timer.Stop()
		if err != nil {
			settle(Completion{Outcome: Failed, Err: loaderr.Wrap(loaderr.LoadFailure, locator, err)})
			return
		}
		settle(Completion{Outcome: Loaded, Body: body})
	}()
}

// LoadSync blocks until the Completion of locator is available or ctx ends.
func (l *Loader) LoadSync(ctx context.Context, locator string) Completion {
	ch := make(chan Completion, 1)
	l.Load(ctx, locator, func(c Completion) { ch <- c })
	select {
	case c := <-ch:
		return c
	case <-ctx.Done():
		return Completion{Locator: locator, Outcome: Failed, Err: ctx.Err()}
	}
}

func (l *Loader) current(locator string, epoch, gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation == gen && l.epochs[locator] == epoch
}
