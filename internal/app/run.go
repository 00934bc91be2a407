package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/specialistvlad/modload/internal/ctxlog"
)

// Run starts a session for the configured application, waits for it to
// bootstrap and prints the registered modules in registration order.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.healthCheckServer()
		defer func() { _ = a.closeHealthCheckServer() }()
	}

	cfg, err := a.sessionConfig()
	if err != nil {
		return err
	}
	s, err := a.factory.NewSession(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer s.Close()

	a.logger.Info("🚀 Loading application.", "app", cfg.App)
	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	waitCtx := ctx
	if a.config.WaitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, a.config.WaitTimeout)
		defer cancel()
	}
	if err := s.Wait(waitCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			keys, _ := s.PendingKeys(ctx)
			return fmt.Errorf("application %q did not bootstrap within %s, still pending: %s",
				cfg.App, a.config.WaitTimeout, strings.Join(keys, ", "))
		}
		return fmt.Errorf("failed to load application %q: %w", cfg.App, err)
	}

	modules := a.registry.Modules()
	a.logger.Info("🏁 Application bootstrapped.", "app", cfg.App, "modules", len(modules))
	return a.printModules()
}

// printModules writes the registry as a table.
func (a *App) printModules() error {
	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tMODULE\tREQUIRES\tSOURCE")
	for _, e := range a.registry.Modules() {
		requires := "-"
		if len(e.Requires) > 0 {
			requires = strings.Join(e.Requires, ",")
		}
		source := "loaded"
		if e.Builtin {
			source = "builtin"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.Seq, e.Name, requires, source)
	}
	return tw.Flush()
}
