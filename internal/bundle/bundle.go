// Package bundle resolves the dependency graph of a set of entry manifests
// offline and concatenates them into a single manifest.
//
// The walk fetches every reachable resource once, inspects its declarations
// statically and records one graph node per locator. Absolute URLs are never
// fetched; they become external stubs loaded ahead of the bundle. The
// emission order puts dependencies first. Cycles are broken as described on
// dag.Graph.Order and reported in Result.Broken.
package bundle

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/specialistvlad/modload/internal/ctxlog"
	"github.com/specialistvlad/modload/internal/dag"
	"github.com/specialistvlad/modload/internal/fetch"
	"github.com/specialistvlad/modload/internal/manifest"
	"github.com/specialistvlad/modload/internal/pathresolve"
)

// Options configures Resolve.
type Options struct {
	// Entries are the locators the walk starts from.
	Entries []string
	// App names the root module written to the bootstrap trailer. Empty
	// means the roots declared by the entries.
	App string

	Root       string
	Extension  string
	Paths      map[string]pathresolve.Override
	Transforms []pathresolve.Transform

	// Fetcher reads resources. Nil means the local filesystem.
	Fetcher fetch.Fetcher
}

// Result is a resolved dependency graph.
type Result struct {
	Entries   []string
	Roots     []string
	Externals []string
	// Order lists every node, dependencies first.
	Order []*dag.Node
	// Broken lists the nodes emitted before all of their dependencies.
	Broken []string
	Graph  *dag.Graph

	files map[string]*manifest.File
	// relative maps, per locator, each "./" name it references to the
	// locator that name resolved to.
	relative map[string]map[string]string
}

// File returns the parsed manifest behind a node.
func (r *Result) File(locator string) (*manifest.File, bool) {
	f, ok := r.files[locator]
	return f, ok
}

// Locators returns the locators of every node in emission order.
func (r *Result) Locators() []string {
	return dag.IDs(r.Order)
}

type walker struct {
	ctx       context.Context
	opts      Options
	logger    *slog.Logger
	fetcher   fetch.Fetcher
	settings  manifest.Settings
	resolver  *pathresolve.Resolver
	graph     *dag.Graph
	files     map[string]*manifest.File
	relative  map[string]map[string]string
	externals []string
	// stack holds the locators being walked, outermost first.
	stack []string
}

// Resolve walks the graph reachable from opts.Entries.
func Resolve(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.Entries) == 0 {
		return nil, fmt.Errorf("no entry manifests given")
	}
	logger := ctxlog.OrDefault(ctx)

	w := &walker{
		ctx:      ctx,
		opts:     opts,
		logger:   logger,
		fetcher:  opts.Fetcher,
		settings: manifest.Settings{Paths: maps.Clone(opts.Paths)},
		graph:    dag.New(),
		files:    make(map[string]*manifest.File),
		relative: make(map[string]map[string]string),
	}
	if w.fetcher == nil {
		w.fetcher = &fetch.File{}
	}
	w.resolver = pathresolve.New(w.resolverOptions())

	logger.Debug("Walking dependency graph.", "entries", opts.Entries)
	for _, entry := range opts.Entries {
		if err := w.walk(entry, entry); err != nil {
			return nil, err
		}
	}

	if err := w.graph.DetectCycles(); err != nil {
		logger.Warn("Dependency graph has cycles.", "error", err)
	}
	order, broken := w.graph.Order()
	for _, id := range broken {
		logger.Warn("Cycle broken, emitting resource before its dependencies.", "locator", id)
	}

	res := &Result{
		Entries:   slices.Clone(opts.Entries),
		Externals: w.externals,
		Order:     order,
		Broken:    broken,
		Graph:     w.graph,
		files:     w.files,
		relative:  w.relative,
	}
	res.Roots = w.roots()
	logger.Info("Dependency graph resolved.", "resources", len(order), "externals", len(w.externals), "broken", len(broken))
	return res, nil
}

func (w *walker) resolverOptions() pathresolve.Options {
	return pathresolve.Options{
		Paths:      w.settings.Paths,
		Transforms: w.opts.Transforms,
		Root:       w.opts.Root,
		Extension:  w.opts.Extension,
	}
}

// walk visits locator, reached through name. Visited locators are a no-op.
func (w *walker) walk(name, locator string) error {
	if _, ok := w.graph.Node(locator); ok {
		return nil
	}
	if err := w.ctx.Err(); err != nil {
		return err
	}
	w.graph.AddNode(locator, name)
	w.stack = append(w.stack, locator)
	defer func() { w.stack = w.stack[:len(w.stack)-1] }()

	body, err := w.fetcher.Fetch(w.ctx, locator)
	if err != nil {
		return fmt.Errorf("failed to fetch %s (%s): %w", locator, w.trace(), err)
	}
	f, err := manifest.Parse(locator, body)
	if err != nil {
		return err
	}
	w.files[locator] = f
	w.logger.Debug("Resource walked.", "locator", locator, "name", name, "modules", f.ModuleNames())

	if !f.Settings.Empty() {
		w.settings.Merge(f.Settings, false)
		w.resolver = pathresolve.New(w.resolverOptions())
	}

	for _, dep := range f.Dependencies() {
		if pathresolve.IsAbsoluteURL(dep) {
			w.addExternal(dep)
			continue
		}
		depLocator, ok := w.resolver.Resolve(dep, locator)
		if !ok {
			w.logger.Debug("Skipping excluded dependency.", "name", dep, "locator", locator)
			continue
		}
		if depLocator == locator {
			continue
		}
		if strings.HasPrefix(dep, "./") {
			if w.relative[locator] == nil {
				w.relative[locator] = make(map[string]string)
			}
			w.relative[locator][dep] = depLocator
		}
		if err := w.walk(dep, depLocator); err != nil {
			return err
		}
		if err := w.graph.AddDependency(locator, depLocator); err != nil {
			return fmt.Errorf("failed to link %s to %s: %w", locator, depLocator, err)
		}
	}
	return nil
}

func (w *walker) addExternal(url string) {
	if slices.Contains(w.externals, url) {
		return
	}
	w.externals = append(w.externals, url)
}

func (w *walker) trace() string {
	return strings.Join(w.stack, " -> ")
}

// roots returns the configured app, else the bootstrap blocks of the entries,
// else the modules the entries declare.
func (w *walker) roots() []string {
	if w.opts.App != "" {
		return []string{w.opts.App}
	}
	var bootstrap, declared []string
	for _, entry := range w.opts.Entries {
		f, ok := w.files[entry]
		if !ok {
			continue
		}
		if f.HasBootstrap {
			bootstrap = append(bootstrap, f.Bootstrap...)
		}
		declared = append(declared, f.ModuleNames()...)
	}
	if len(bootstrap) > 0 {
		return dedupe(bootstrap)
	}
	return dedupe(declared)
}

func dedupe(in []string) []string {
	var out []string
	for _, s := range in {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
