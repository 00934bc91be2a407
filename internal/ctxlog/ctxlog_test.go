package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))

	assert.Panics(t, func() { FromContext(context.Background()) })
}

func TestOrDefault(t *testing.T) {
	assert.Same(t, slog.Default(), OrDefault(context.Background()))
}

func TestWithSession(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithSession(WithLogger(context.Background(), logger), "abc")

	FromContext(ctx).Info("Session started.")
	assert.Contains(t, buf.String(), "session=abc")
	assert.Contains(t, buf.String(), `msg="Session started."`)
}
