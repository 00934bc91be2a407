package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/modload/internal/bundle"
	"github.com/specialistvlad/modload/internal/ctxlog"
	"github.com/specialistvlad/modload/internal/fsutil"
	"github.com/specialistvlad/modload/internal/localsession"
	"github.com/specialistvlad/modload/internal/pathresolve"
	"github.com/specialistvlad/modload/internal/watch"
)

// Bundle resolves the entry manifests offline and writes them, in
// dependency order, as one manifest. With Watch set it rebuilds the bundle
// whenever a source changes until ctx is done.
func (a *App) Bundle(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	res, err := a.writeBundle(ctx)
	if err != nil {
		return err
	}
	if !a.config.Watch {
		return nil
	}
	return a.watchBundle(ctx, res)
}

// resolve expands the configured entries and walks their dependencies.
func (a *App) resolve(ctx context.Context) (*bundle.Result, error) {
	entries, err := a.entryLocators()
	if err != nil {
		return nil, err
	}
	transforms, err := a.model.Transforms()
	if err != nil {
		return nil, err
	}
	res, err := bundle.Resolve(ctx, bundle.Options{
		Entries:    entries,
		App:        a.model.App,
		Root:       a.model.Root,
		Extension:  a.model.Extension,
		Paths:      a.model.Paths,
		Transforms: transforms,
		Fetcher:    localsession.DefaultFetcher(a.config.Dir, a.model.Timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dependency graph: %w", err)
	}
	return res, nil
}

// entryLocators expands files, directories and patterns below Dir into
// slash separated locators relative to Dir.
func (a *App) entryLocators() ([]string, error) {
	if len(a.model.Entries) == 0 {
		return nil, errors.New("no entry manifests given")
	}
	ext := a.model.Extension
	if ext == "" {
		ext = pathresolve.DefaultExtension
	}

	paths := make([]string, len(a.model.Entries))
	for i, e := range a.model.Entries {
		paths[i] = a.localPath(e)
	}
	files, err := fsutil.ExpandEntries(paths, ext)
	if err != nil {
		return nil, err
	}

	locators := make([]string, len(files))
	for i, f := range files {
		if a.config.Dir != "" {
			if rel, err := filepath.Rel(a.config.Dir, f); err == nil {
				f = rel
			}
		}
		locators[i] = filepath.ToSlash(f)
	}
	return locators, nil
}

// localPath maps a relative locator or path below Dir.
func (a *App) localPath(p string) string {
	p = filepath.FromSlash(p)
	if a.config.Dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.config.Dir, p)
}

func (a *App) writeBundle(ctx context.Context) (*bundle.Result, error) {
	res, err := a.resolve(ctx)
	if err != nil {
		return nil, err
	}
	out, err := res.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render bundle: %w", err)
	}

	if a.config.Output == "" {
		_, err := a.outW.Write(out)
		return res, err
	}
	if err := os.MkdirAll(filepath.Dir(a.config.Output), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(a.config.Output, out, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write bundle: %w", err)
	}
	a.logger.Info("📦 Bundle written.", "path", a.config.Output, "resources", len(res.Order), "bytes", len(out))
	return res, nil
}

// watchBundle rebuilds the bundle when a local source changes. A failed
// rebuild is logged and the previous sources stay watched.
func (a *App) watchBundle(ctx context.Context, res *bundle.Result) error {
	w, err := watch.New(watch.DefaultDebounce, a.logger)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Track(a.sourceFiles(res)); err != nil {
		return err
	}
	a.logger.Info("👀 Watching sources for changes.", "files", len(res.Order))

	err = w.Run(ctx, func(changed []string) {
		a.logger.Info("Sources changed, rebuilding bundle.", "files", changed)
		next, err := a.writeBundle(ctx)
		if err != nil {
			a.logger.Error("Bundle rebuild failed.", "error", err)
			return
		}
		if err := w.Track(a.sourceFiles(next)); err != nil {
			a.logger.Error("Failed to watch sources.", "error", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// sourceFiles lists the local files behind the bundled resources.
func (a *App) sourceFiles(res *bundle.Result) []string {
	var files []string
	for _, loc := range res.Locators() {
		switch {
		case strings.HasPrefix(loc, "file://"):
			files = append(files, a.localPath(strings.TrimPrefix(loc, "file://")))
		case pathresolve.IsAbsoluteURL(loc):
		default:
			files = append(files, a.localPath(loc))
		}
	}
	return files
}
