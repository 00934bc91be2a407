package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/modload/internal/loaderr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu        sync.Mutex
	started   []string
	finished  map[Outcome]int
	discarded int
}

func (o *recordingObserver) FetchStarted(locator string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, locator)
}

func (o *recordingObserver) FetchFinished(_ string, outcome Outcome, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finished == nil {
		o.finished = make(map[Outcome]int)
	}
	o.finished[outcome]++
}

func (o *recordingObserver) FetchDiscarded(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.discarded++
}

func (o *recordingObserver) snapshot() (int, map[Outcome]int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[Outcome]int, len(o.finished))
	for k, v := range o.finished {
		out[k] = v
	}
	return len(o.started), out, o.discarded
}

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "a.hcl"), []byte(`module "a" {}`), 0o644))

	f := &File{Dir: dir}

	body, err := f.Fetch(context.Background(), "lib/a.hcl")
	require.NoError(t, err)
	assert.Equal(t, `module "a" {}`, string(body))

	body, err = f.Fetch(context.Background(), "file://"+filepath.ToSlash(filepath.Join(dir, "lib", "a.hcl")))
	require.NoError(t, err)
	assert.Equal(t, `module "a" {}`, string(body))

	_, err = f.Fetch(context.Background(), "lib/missing.hcl")
	assert.ErrorContains(t, err, "failed to read")
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.hcl":
			fmt.Fprint(w, `module "remote" {}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	h := &HTTP{Client: srv.Client()}
	defer h.CloseIdleConnections()

	body, err := h.Fetch(context.Background(), srv.URL+"/ok.hcl")
	require.NoError(t, err)
	assert.Equal(t, `module "remote" {}`, string(body))

	_, err = h.Fetch(context.Background(), srv.URL+"/missing.hcl")
	assert.ErrorContains(t, err, "unexpected status 404")
}

func TestSchemes(t *testing.T) {
	local := NewStatic(map[string]string{"a.hcl": "local"})
	remote := NewStatic(map[string]string{
		"https://cdn.example/x.hcl": "remote",
		"//cdn.example/y.hcl":       "scheme-relative",
	})
	s := &Schemes{ByScheme: map[string]Fetcher{"https": remote}, Default: local}

	body, err := s.Fetch(context.Background(), "a.hcl")
	require.NoError(t, err)
	assert.Equal(t, "local", string(body))

	body, err = s.Fetch(context.Background(), "https://cdn.example/x.hcl")
	require.NoError(t, err)
	assert.Equal(t, "remote", string(body))

	body, err = s.Fetch(context.Background(), "//cdn.example/y.hcl")
	require.NoError(t, err)
	assert.Equal(t, "scheme-relative", string(body))

	_, err = s.Fetch(context.Background(), "ftp://host/z.hcl")
	assert.ErrorContains(t, err, `unsupported scheme "ftp"`)
}

func TestLoader_Loaded(t *testing.T) {
	obs := &recordingObserver{}
	l := NewLoader(NewStatic(map[string]string{"a.hcl": "body"}), WithObserver(obs))

	c := l.LoadSync(context.Background(), "a.hcl")
	require.Equal(t, Loaded, c.Outcome)
	assert.NoError(t, c.Err)
	assert.Equal(t, "body", string(c.Body))
	assert.Equal(t, "a.hcl", c.Locator)
	assert.Equal(t, uint64(1), c.Epoch)

	started, finished, _ := obs.snapshot()
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, finished[Loaded])
}

func TestLoader_Failure(t *testing.T) {
	l := NewLoader(NewStatic(nil))

	c := l.LoadSync(context.Background(), "missing.hcl")
	require.Equal(t, Failed, c.Outcome)
	assert.True(t, errors.Is(c.Err, loaderr.ErrLoadFailure))
	assert.ErrorContains(t, c.Err, "not found")
}

func TestLoader_TimeoutDiscardsLateResult(t *testing.T) {
	obs := &recordingObserver{}
	slow := NewStatic(map[string]string{"slow.hcl": "late"})
	slow.Delay = 60 * time.Millisecond
	l := NewLoader(slow, WithTimeout(10*time.Millisecond), WithObserver(obs))

	var mu sync.Mutex
	var got []Completion
	l.Load(context.Background(), "slow.hcl", func(c Completion) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, c)
	})

	// Wait until the fetch itself has finished too.
	require.Eventually(t, func() bool {
		_, _, discarded := obs.snapshot()
		return discarded == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, TimedOut, got[0].Outcome)
	assert.True(t, errors.Is(got[0].Err, loaderr.ErrLoadTimeout))
}

func TestLoader_ResetDropsInFlight(t *testing.T) {
	slow := NewStatic(map[string]string{"a.hcl": "x"})
	slow.Delay = 30 * time.Millisecond
	obs := &recordingObserver{}
	l := NewLoader(slow, WithObserver(obs))

	delivered := make(chan Completion, 1)
	l.Load(context.Background(), "a.hcl", func(c Completion) { delivered <- c })
	l.Reset()

	require.Eventually(t, func() bool {
		_, _, discarded := obs.snapshot()
		return discarded == 1
	}, time.Second, 5*time.Millisecond)

	select {
	case c := <-delivered:
		t.Fatalf("stale completion delivered: %+v", c)
	default:
	}
}

func TestLoader_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewLoader(nil).Timeout())
	assert.Equal(t, DefaultTimeout, NewLoader(nil, WithTimeout(0)).Timeout())
	assert.Equal(t, time.Second, NewLoader(nil, WithTimeout(time.Second)).Timeout())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "loaded", Loaded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "timed_out", TimedOut.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
