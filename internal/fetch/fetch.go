// Package fetch retrieves resource bodies and races each retrieval against
// a timeout.
//
// A Fetcher knows how to read one locator. The Loader wraps a Fetcher with
// the load contract used by the session: one in-flight request per call,
// exactly one Completion delivered, no retries, and late results dropped once
// a timeout has been reported or the loader was reset.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Fetcher reads the body of the resource at locator.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, locator string) ([]byte, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, locator string) ([]byte, error) {
	return f(ctx, locator)
}

// Schemes dispatches to a Fetcher by URL scheme. Locators without a scheme
// go to Default; scheme-relative locators ("//host/x") use the "https" entry.
type Schemes struct {
	ByScheme map[string]Fetcher
	Default  Fetcher
}

// Fetch implements Fetcher.
func (s *Schemes) Fetch(ctx context.Context, locator string) ([]byte, error) {
	scheme := schemeOf(locator)
	if scheme == "" {
		if s.Default == nil {
			return nil, fmt.Errorf("no fetcher for %q", locator)
		}
		return s.Default.Fetch(ctx, locator)
	}
	f, ok := s.ByScheme[scheme]
	if !ok {
		return nil, fmt.Errorf("unsupported scheme %q for %q", scheme, locator)
	}
	return f.Fetch(ctx, locator)
}

func schemeOf(locator string) string {
	if strings.HasPrefix(locator, "//") {
		return "https"
	}
	i := strings.Index(locator, "://")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(locator[:i])
}

// Static serves bodies from memory. Delay, when set, is applied to every
// fetch before answering.
type Static struct {
	mu     sync.Mutex
	Bodies map[string][]byte
	Delay  time.Duration
	hits   map[string]int
}

// NewStatic returns a Static fetcher serving files.
func NewStatic(files map[string]string) *Static {
	bodies := make(map[string][]byte, len(files))
	for k, v := range files {
		bodies[k] = []byte(v)
	}
	return &Static{Bodies: bodies}
}

// Fetch implements Fetcher.
func (s *Static) Fetch(ctx context.Context, locator string) ([]byte, error) {
	s.mu.Lock()
	if s.hits == nil {
		s.hits = make(map[string]int)
	}
	s.hits[locator]++
	body, ok := s.Bodies[locator]
	delay := s.Delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if !ok {
		return nil, fmt.Errorf("resource %q not found", locator)
	}
	return body, nil
}

// Hits returns how many times locator was fetched.
func (s *Static) Hits(locator string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[locator]
}
