package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/modload/internal/config"
	"github.com/specialistvlad/modload/internal/ctxlog"
	"github.com/specialistvlad/modload/internal/localsession"
	"github.com/specialistvlad/modload/internal/metrics"
	"github.com/specialistvlad/modload/internal/registry"
	"github.com/specialistvlad/modload/internal/session"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	model    *config.Model
	registry *registry.Registry
	metrics  *metrics.Collector
	factory  session.Factory

	ctx        context.Context
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It loads the
// configuration files, applies the overrides in cfg and registers the
// builtin modules. Command output goes to outW, logs to logW.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.ConfigPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	model.Merge(&config.Model{
		App:       cfg.App,
		Root:      cfg.Root,
		Timeout:   cfg.Timeout,
		Extension: cfg.Extension,
		Entries:   cfg.Entries,
	})
	logger.Debug("Configuration loaded.", "sources", model.Sources, "app", model.App)

	reg := registry.New().WithLogger(logger)
	builtins := builtinModules(modules, model.Builtins)
	if err := registerModules(reg, builtins); err != nil {
		return nil, err
	}
	logger.Debug("Builtin modules registered.", "count", len(builtins))

	collector := metrics.New()
	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		model:    model,
		registry: reg,
		metrics:  collector,
		factory: &localsession.SessionFactory{
			Registry: reg,
			Metrics:  collector,
			Dir:      cfg.Dir,
			Globals:  model.Globals,
		},
		ctx: ctx,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the merged configuration.
func (a *App) Model() *config.Model {
	return a.model
}

// sessionConfig translates the merged configuration for a session.
func (a *App) sessionConfig() (session.Config, error) {
	transforms, err := a.model.Transforms()
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		App:        a.model.App,
		Root:       a.model.Root,
		Timeout:    a.model.Timeout,
		Extension:  a.model.Extension,
		Paths:      a.model.Paths,
		Transforms: transforms,
		Checkers:   a.model.Checkers,
		Interval:   a.model.Interval,
	}, nil
}
