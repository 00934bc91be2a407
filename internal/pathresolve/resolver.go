// Package pathresolve maps logical module names to resource locators.
//
// Resolution is a pure function of the name, the resolver options and the
// locator of the resource that asked for the name. Names are pushed through
// an ordered pipeline of transforms; user transforms run first, followed by
// the built-in stages that stop on absolute URLs, prefix the root and append
// the default extension.
package pathresolve

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// DefaultExtension is appended to locators that do not already carry it.
const DefaultExtension = ".hcl"

// absoluteURL matches "scheme://..." and scheme-relative "//..." names.
var absoluteURL = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+.-]*:)?//.+`)

// IsAbsoluteURL reports whether name is a fully qualified or scheme-relative URL.
func IsAbsoluteURL(name string) bool {
	return absoluteURL.MatchString(name)
}

// Transform is one pipeline stage. It receives the current path and the
// path the pipeline started from. Returning false stops the pipeline and
// keeps the path produced by the previous stage.
type Transform func(path, original string) (string, bool)

// Override is an explicit entry of the name to locator map.
type Override struct {
	Locator  string
	Excluded bool
}

// Options configures a Resolver.
type Options struct {
	// Paths overrides the starting path of a name, or excludes it.
	Paths map[string]Override
	// Transforms run before the built-in stages.
	Transforms []Transform
	// Root is prefixed to relative paths. Empty means no prefix.
	Root string
	// Extension is appended unless present. Empty means DefaultExtension.
	Extension string
}

// Resolver resolves names with a fixed set of options.
type Resolver struct {
	opts     Options
	pipeline []Transform
}

// New creates a Resolver. The options are copied; later changes to the
// caller's maps are not observed.
func New(opts Options) *Resolver {
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	paths := make(map[string]Override, len(opts.Paths))
	for k, v := range opts.Paths {
		paths[k] = v
	}
	opts.Paths = paths

	r := &Resolver{opts: opts}
	r.pipeline = append(r.pipeline, opts.Transforms...)
	r.pipeline = append(r.pipeline, stopOnAbsolute, r.prefixRoot, r.appendExtension)
	return r
}

// Options returns a copy of the resolver's options.
func (r *Resolver) Options() Options {
	out := r.opts
	out.Paths = make(map[string]Override, len(r.opts.Paths))
	for k, v := range r.opts.Paths {
		out.Paths[k] = v
	}
	out.Transforms = append([]Transform(nil), r.opts.Transforms...)
	return out
}

// Resolve returns the locator for name. parent is the locator of the
// resource that referenced name and is only consulted for "./" names. The
// boolean is false when the name is excluded and has no backing resource.
func (r *Resolver) Resolve(name, parent string) (string, bool) {
	if o, ok := r.opts.Paths[name]; ok && o.Excluded {
		return "", false
	}
	if IsAbsoluteURL(name) {
		return name, true
	}
	if strings.HasPrefix(name, "./") && parent != "" {
		return r.appendExtensionOnly(resolveRelative(parent, name)), true
	}

	start := name
	if o, ok := r.opts.Paths[name]; ok {
		start = o.Locator
	}
	return Apply(start, r.pipeline), true
}

// Apply runs path through transforms left to right.
func Apply(p string, transforms []Transform) string {
	original := p
	for _, fn := range transforms {
		next, ok := fn(p, original)
		if !ok {
			return p
		}
		p = next
	}
	return p
}

func stopOnAbsolute(p, _ string) (string, bool) {
	if IsAbsoluteURL(p) {
		return p, false
	}
	return p, true
}

func (r *Resolver) prefixRoot(p, _ string) (string, bool) {
	if r.opts.Root == "" || strings.HasPrefix(p, "/") {
		return p, true
	}
	return strings.TrimSuffix(r.opts.Root, "/") + "/" + p, true
}

func (r *Resolver) appendExtension(p, _ string) (string, bool) {
	return r.appendExtensionOnly(p), true
}

func (r *Resolver) appendExtensionOnly(p string) string {
	if strings.HasSuffix(p, r.opts.Extension) {
		return p
	}
	return p + r.opts.Extension
}

// resolveRelative resolves a "./" reference against the directory of parent.
func resolveRelative(parent, ref string) string {
	if IsAbsoluteURL(parent) {
		base, err := url.Parse(parent)
		if err == nil {
			rel, err := url.Parse(ref)
			if err == nil {
				return base.ResolveReference(rel).String()
			}
		}
	}
	return path.Join(path.Dir(parent), ref)
}
