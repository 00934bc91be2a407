package app

import (
	"context"

	"github.com/specialistvlad/modload/internal/ctxlog"
)

// Graph resolves the entry manifests and prints the dependency report.
func (a *App) Graph(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	res, err := a.resolve(ctx)
	if err != nil {
		return err
	}
	return res.Report().Encode(a.outW, a.config.Format)
}
