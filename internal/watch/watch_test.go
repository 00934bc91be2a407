package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/modload/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncesTrackedFiles(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"app.hcl":   `module "app" {}`,
		"other.hcl": `module "other" {}`,
	})
	logger, _ := testutil.NewLogger(t)

	w, err := New(50*time.Millisecond, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	require.NoError(t, w.Track([]string{filepath.Join(dir, "app.hcl")}))

	var mu sync.Mutex
	var batches [][]string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(changed []string) {
			mu.Lock()
			defer mu.Unlock()
			batches = append(batches, changed)
		})
	}()

	app := filepath.Join(dir, "app.hcl")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(app, []byte(`module "app" { requires = ["x"] }`), 0o644))
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.hcl"), []byte(`# untracked`), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) > 0
	}, 2*time.Second, 10*time.Millisecond)

	// Give a second batch the chance to show up if debouncing were broken.
	time.Sleep(150 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 1)
	absApp, err := filepath.Abs(app)
	require.NoError(t, err)
	assert.Equal(t, []string{absApp}, absAll(t, batches[0]))
}

func TestWatcher_CloseEndsRun(t *testing.T) {
	w, err := New(0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background(), func([]string) {}) }()
	require.NoError(t, w.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func absAll(t *testing.T, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		require.NoError(t, err)
		out[i] = abs
	}
	return out
}
