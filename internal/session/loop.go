package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("session closed")

// ErrReset is returned to callers blocked in Wait or Load when the session
// is reset underneath them.
var ErrReset = errors.New("session reset")

// taskQueue is an unbounded FIFO of functions run by the loop goroutine.
// Fetch goroutines and timers only ever append to it.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []func()
	wake   chan struct{}
	closed bool
}

func newTaskQueue() *taskQueue {
	return &taskQueue{wake: make(chan struct{}, 1)}
}

func (q *taskQueue) push(fn func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

func (q *taskQueue) pop() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.tasks) == 0 {
		return nil, false
	}
	fn := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return fn, true
}

func (q *taskQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.tasks = nil
}

// run drains the queue until stop is closed.
func (s *Session) run() {
	defer close(s.loopDone)
	for {
		select {
		case <-s.stop:
			return
		case <-s.queue.wake:
		}
		for {
			fn, ok := s.queue.pop()
			if !ok {
				break
			}
			fn()
		}
	}
}

// post schedules fn on the loop. It reports false once the session closed.
func (s *Session) post(fn func()) bool {
	return s.queue.push(fn)
}

// call runs fn on the loop and waits for its result.
func (s *Session) call(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	if !s.post(func() { res <- fn() }) {
		return ErrClosed
	}
	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stop:
		return ErrClosed
	}
}

// loopScheduler implements readiness.Scheduler on the session loop. Ticks
// scheduled before a Reset are dropped.
type loopScheduler struct {
	s   *Session
	gen uint64
}

func (l loopScheduler) After(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		l.s.post(func() {
			if l.s.gen == l.gen {
				fn()
			}
		})
	})
}
