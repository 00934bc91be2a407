package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/modload/internal/app"
	"github.com/specialistvlad/modload/internal/cli"
	"github.com/specialistvlad/modload/internal/config"
)

// main is the entrypoint for the modload application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW, logW io.Writer, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application panicked: %v", r)
		}
	}()
	return cli.Execute(ctx, args, outW, func(ctx context.Context, command string, cfg *app.Config) error {
		a, err := app.NewApp(outW, logW, cfg, config.NewLoader())
		if err != nil {
			return &cli.ExitError{Code: 2, Message: err.Error()}
		}
		switch command {
		case "run":
			return a.Run(ctx)
		case "bundle":
			return a.Bundle(ctx)
		case "graph":
			return a.Graph(ctx)
		}
		return fmt.Errorf("unknown command %q", command)
	})
}
