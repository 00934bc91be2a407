package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/modload/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	command string
	cfg     *app.Config
}

func parse(t *testing.T, args ...string) (*captured, string, error) {
	t.Helper()
	got := &captured{}
	out := &bytes.Buffer{}
	err := Execute(context.Background(), args, out, func(_ context.Context, command string, cfg *app.Config) error {
		got.command, got.cfg = command, cfg
		return nil
	})
	return got, out.String(), err
}

func TestExecute_Help(t *testing.T) {
	for _, args := range [][]string{{"-h"}, {}, {"bundle", "--help"}} {
		got, out, err := parse(t, args...)
		require.NoError(t, err)
		assert.Contains(t, out, "Usage:")
		assert.Empty(t, got.command)
	}

	_, out, err := parse(t, "run", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Fetch and readiness timeout (default 30s).")
}

func TestExecute_Run(t *testing.T) {
	t.Setenv("MODLOAD_APP", "from-env")
	t.Setenv("MODLOAD_ROOT", "env-root")
	t.Setenv("MODLOAD_LOG_LEVEL", "debug")

	got, _, err := parse(t, "run",
		"--root", "static",
		"--timeout", "2s",
		"--wait-timeout", "1m",
		"--config", "base.hcl", "--config", "local.yaml",
		"--healthcheck-port", "8080",
	)
	require.NoError(t, err)

	assert.Equal(t, "run", got.command)
	assert.Equal(t, "from-env", got.cfg.App)
	assert.Equal(t, "static", got.cfg.Root, "flags win over the environment")
	assert.Equal(t, "debug", got.cfg.LogLevel)
	assert.Equal(t, "text", got.cfg.LogFormat)
	assert.Equal(t, 2*time.Second, got.cfg.Timeout)
	assert.Equal(t, time.Minute, got.cfg.WaitTimeout)
	assert.Equal(t, []string{"base.hcl", "local.yaml"}, got.cfg.ConfigPaths)
	assert.Equal(t, 8080, got.cfg.HealthcheckPort)
}

func TestExecute_BundleAndGraph(t *testing.T) {
	got, _, err := parse(t, "bundle", "-o", "dist/app.hcl", "--watch", "app.hcl", "lib/**/*.hcl")
	require.NoError(t, err)
	assert.Equal(t, "bundle", got.command)
	assert.Equal(t, []string{"app.hcl", "lib/**/*.hcl"}, got.cfg.Entries)
	assert.Equal(t, "dist/app.hcl", got.cfg.Output)
	assert.True(t, got.cfg.Watch)

	got, _, err = parse(t, "graph", "--format", "JSON", "app.hcl")
	require.NoError(t, err)
	assert.Equal(t, "graph", got.command)
	assert.Equal(t, "json", got.cfg.Format)
	assert.Empty(t, got.cfg.Output)
}

func TestExecute_UsageErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"run", "--this-is-not-a-valid-flag"}, "unknown flag: --this-is-not-a-valid-flag"},
		{"unknown command", []string{"deploy"}, `unknown command "deploy"`},
		{"run takes no arguments", []string{"run", "extra"}, "unknown command \"extra\""},
		{"invalid log level", []string{"run", "--log-level", "loud"}, "invalid log-level"},
		{"invalid log format", []string{"graph", "--log-format", "xml"}, "invalid log-format"},
		{"watch without output", []string{"bundle", "--watch", "app.hcl"}, "--watch needs an output file"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := parse(t, tc.args...)
			require.Error(t, err)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}

func TestExecute_RuntimeErrors(t *testing.T) {
	err := Execute(context.Background(), []string{"run"}, &bytes.Buffer{}, func(context.Context, string, *app.Config) error {
		return errors.New("boom")
	})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Equal(t, "boom", exitErr.Message)

	err = Execute(context.Background(), []string{"run"}, &bytes.Buffer{}, func(context.Context, string, *app.Config) error {
		return &ExitError{Code: 2, Message: "bad config"}
	})
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}
