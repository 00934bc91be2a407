package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/specialistvlad/modload/internal/bundle"
	"github.com/specialistvlad/modload/internal/config"
	"github.com/specialistvlad/modload/internal/manifest"
	"github.com/specialistvlad/modload/internal/registry"
	"github.com/specialistvlad/modload/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	*App
	dir  string
	out  *bytes.Buffer
	logs *testutil.SafeBuffer
}

// newTestApp writes files to a temp dir and builds an App rooted there.
// A modload.hcl file, when present, is used as configuration.
func newTestApp(t *testing.T, files map[string]string, cfg Config, modules ...registry.Module) *testApp {
	t.Helper()
	dir := testutil.WriteFiles(t, files)
	cfg.Dir = dir
	if _, ok := files["modload.hcl"]; ok {
		cfg.ConfigPaths = []string{filepath.Join(dir, "modload.hcl")}
	}
	if cfg.Output != "" {
		cfg.Output = filepath.Join(dir, cfg.Output)
	}
	validated, err := NewConfig(cfg)
	require.NoError(t, err)

	out, logs := &bytes.Buffer{}, &testutil.SafeBuffer{}
	a, err := NewApp(out, logs, validated, config.NewLoader(), modules...)
	require.NoError(t, err)
	return &testApp{App: a, dir: dir, out: out, logs: logs}
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(Config{})
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "yaml", cfg.Format)

	testCases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"log format", Config{LogFormat: "xml"}, "invalid log-format"},
		{"log level", Config{LogLevel: "trace"}, "invalid log-level"},
		{"report format", Config{Format: "dot"}, "invalid format"},
		{"negative timeout", Config{Timeout: -time.Second}, "must not be negative"},
		{"port", Config{HealthcheckPort: 70000}, "invalid healthcheck-port"},
		{"watch without output", Config{Watch: true}, "--watch needs an output file"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(tc.cfg)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestNewApp(t *testing.T) {
	t.Run("flags override configuration files", func(t *testing.T) {
		a := newTestApp(t, map[string]string{
			"modload.hcl": `
app      = "configured"
root     = "lib"
builtins = ["core", "dom"]
`,
		}, Config{App: "app"}, registry.Builtin{Name: "core"})

		assert.Equal(t, "app", a.Model().App)
		assert.Equal(t, "lib", a.Model().Root)

		entries := a.Registry().Modules()
		require.Len(t, entries, 2)
		assert.Equal(t, "core", entries[0].Name)
		assert.Equal(t, "dom", entries[1].Name)
		assert.True(t, entries[1].Builtin)
	})

	t.Run("errors", func(t *testing.T) {
		cfg, err := NewConfig(Config{ConfigPaths: []string{filepath.Join(t.TempDir(), "missing.hcl")}})
		require.NoError(t, err)
		_, err = NewApp(&bytes.Buffer{}, &bytes.Buffer{}, cfg, config.NewLoader())
		assert.ErrorContains(t, err, "failed to load configuration")

		cfg, err = NewConfig(Config{})
		require.NoError(t, err)
		dup := registry.Builtin{Name: "core"}
		_, err = NewApp(&bytes.Buffer{}, &bytes.Buffer{}, cfg, config.NewLoader(), dup, dup)
		assert.ErrorContains(t, err, "failed to register builtin modules")
	})
}

func TestRun(t *testing.T) {
	a := newTestApp(t, map[string]string{
		"modload.hcl": `builtins = ["core"]`,
		"app.hcl":     `module "app" { requires = ["core", "a"] }`,
		"a.hcl":       `module "a" {}`,
	}, Config{App: "app"})

	require.NoError(t, a.Run(testCtx(t)))

	lines := strings.Split(strings.TrimSpace(a.out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Regexp(t, `^SEQ\s+MODULE\s+REQUIRES\s+SOURCE$`, lines[0])
	assert.Regexp(t, `^0\s+core\s+-\s+builtin$`, lines[1])
	assert.Contains(t, a.out.String(), "core,a")
	testutil.AssertLogged(t, a.logs, "Application bootstrapped.")
}

func TestRun_Failures(t *testing.T) {
	t.Run("missing dependency", func(t *testing.T) {
		a := newTestApp(t, map[string]string{
			"app.hcl": `module "app" { requires = ["missing"] }`,
		}, Config{App: "app"})

		err := a.Run(testCtx(t))
		require.Error(t, err)
		assert.ErrorContains(t, err, `failed to load application "app"`)
		assert.ErrorContains(t, err, "missing.hcl")
	})

	t.Run("bootstrap wait timeout reports pending work", func(t *testing.T) {
		a := newTestApp(t, map[string]string{
			"modload.hcl": `checkers = { slow = "neverDefined" }`,
			"app.hcl":     `module "app" { requires = ["slow"] }`,
			"slow.hcl":    `module "slow" {}`,
		}, Config{App: "app", Timeout: 5 * time.Second, WaitTimeout: 100 * time.Millisecond})

		err := a.Run(testCtx(t))
		require.Error(t, err)
		assert.ErrorContains(t, err, "did not bootstrap within 100ms")
		assert.ErrorContains(t, err, "slow.hcl")
	})

	t.Run("missing app", func(t *testing.T) {
		a := newTestApp(t, nil, Config{})
		assert.ErrorContains(t, a.Run(testCtx(t)), "failed to create session")
	})
}

func TestHealthMux(t *testing.T) {
	a := newTestApp(t, nil, Config{})
	mux := a.healthMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "modload_")
}

var bundleFiles = map[string]string{
	"src/app.hcl": `module "app" { requires = ["a"] }`,
	"src/a.hcl":   `module "a" {}`,
}

func TestBundle(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		a := newTestApp(t, bundleFiles, Config{Root: "src", Entries: []string{"src/app.hcl"}})
		require.NoError(t, a.Bundle(testCtx(t)))

		f, err := manifest.Parse("bundle.hcl", a.out.Bytes())
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "app"}, f.ModuleNames())
		assert.Equal(t, []string{"app"}, f.Bootstrap)
	})

	t.Run("output file from a pattern", func(t *testing.T) {
		a := newTestApp(t, bundleFiles, Config{Root: "src", Entries: []string{"src/app*"}, Output: "dist/bundle.hcl"})
		require.NoError(t, a.Bundle(testCtx(t)))

		body, err := os.ReadFile(filepath.Join(a.dir, "dist", "bundle.hcl"))
		require.NoError(t, err)
		assert.Contains(t, string(body), "# src/a.hcl")
		assert.Empty(t, a.out.String())
		testutil.AssertLogged(t, a.logs, "Bundle written.")
	})

	t.Run("no entries", func(t *testing.T) {
		a := newTestApp(t, nil, Config{})
		assert.ErrorContains(t, a.Bundle(testCtx(t)), "no entry manifests given")
	})
}

func TestBundle_Watch(t *testing.T) {
	a := newTestApp(t, bundleFiles, Config{
		Root:    "src",
		Entries: []string{"src/app.hcl"},
		Output:  "dist/bundle.hcl",
		Watch:   true,
	})
	target := filepath.Join(a.dir, "dist", "bundle.hcl")

	ctx, cancel := context.WithCancel(testCtx(t))
	done := make(chan error, 1)
	go func() { done <- a.Bundle(ctx) }()

	read := func() string {
		body, _ := os.ReadFile(target)
		return string(body)
	}
	require.Eventually(t, func() bool {
		return strings.Contains(read(), `module "a"`) && strings.Contains(a.logs.String(), "Watching sources")
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(a.dir, "src", "a.hcl"), []byte(`module "a" {}`+"\n"+`module "b" {}`), 0o600))
	assert.Eventually(t, func() bool {
		return strings.Contains(read(), `module "b"`)
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bundle watch did not stop after cancel")
	}
}

func TestGraph(t *testing.T) {
	a := newTestApp(t, bundleFiles, Config{Root: "src", Entries: []string{"src"}, Format: "json"})
	require.NoError(t, a.Graph(testCtx(t)))

	var rep bundle.Report
	require.NoError(t, json.Unmarshal(a.out.Bytes(), &rep))
	assert.Equal(t, []string{"src/a.hcl", "src/app.hcl"}, rep.Order)
	assert.Equal(t, []string{"a", "app"}, rep.Roots)
}
