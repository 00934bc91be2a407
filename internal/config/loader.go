package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/specialistvlad/modload/internal/ctxlog"
)

// Loader is the interface for a configuration loader.
type Loader interface {
	// Load reads the given files in order and merges them into one Model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// FileLoader loads configuration files from the local filesystem, choosing
// the decoder by file extension.
type FileLoader struct{}

// NewLoader returns a FileLoader.
func NewLoader() *FileLoader {
	return &FileLoader{}
}

var _ Loader = (*FileLoader)(nil)

// Load implements Loader. Without paths it returns an empty Model.
func (l *FileLoader) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.OrDefault(ctx)
	m := &Model{}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", p, err)
		}

		var fm *Model
		switch ext := strings.ToLower(filepath.Ext(p)); ext {
		case ".hcl":
			fm, err = decodeHCL(p, src)
		case ".yaml", ".yml", ".json", ".toml":
			fm, err = decodeStructured(p, ext, src)
		default:
			return nil, fmt.Errorf("unsupported config format %q for %s", ext, p)
		}
		if err != nil {
			return nil, err
		}
		if _, err := fm.Transforms(); err != nil {
			return nil, fmt.Errorf("config %s: %w", p, err)
		}
		fm.Sources = []string{p}
		m.Merge(fm)
		logger.Debug("Configuration file loaded.", "path", p, "app", fm.App, "paths", len(fm.Paths))
	}
	return m, nil
}

// parseDuration reads a bare integer as milliseconds and anything else as
// a Go duration string.
func parseDuration(attr, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	var d time.Duration
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		d = time.Duration(ms) * time.Millisecond
	} else if d, err = time.ParseDuration(s); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", attr, s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", attr, s)
	}
	return d, nil
}
