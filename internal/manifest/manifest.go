// Package manifest parses module manifests, the resources the loader fetches
// and executes.
//
// A manifest is an HCL file made only of blocks, so several manifests
// concatenated together are still a valid manifest:
//
//	config { paths = { jquery = "//cdn.example/jquery" } }
//	external "https://cdn.example/x.hcl" {}
//	require "shim" { checker = "theShim" }
//	global "theShim" {}
//	module "app" { requires = ["a", "b"] }
//	bootstrap { modules = ["app"] }
//
// A bundle also carries a `bundled` block listing the locators whose
// content it already holds.
package manifest

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/modload/internal/readiness"
)

// Require is a `require` block: a dependency with an optional checker.
type Require struct {
	Name    string
	Checker readiness.Spec
}

// Module is a `module` block.
type Module struct {
	Name     string
	Requires []string
	// Body holds the block content other than requires.
	Body hcl.Body
}

// File is one parsed manifest.
type File struct {
	Locator   string
	Source    []byte
	Settings  Settings
	Externals []string
	Requires  []Require
	Globals   []string
	Modules   []Module
	// Bootstrap names the root modules of a bundle; HasBootstrap tells an
	// empty list from a missing block.
	Bootstrap    []string
	HasBootstrap bool
	// Bundled lists the locators whose content this manifest already holds.
	Bundled []string
}

// Parse parses src. locator is used as the file name in diagnostics.
func Parse(locator string, src []byte) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, locator)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", locator, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", locator, diags)
	}

	f := &File{Locator: locator, Source: src}

	for _, c := range root.Configs {
		s, err := decodeSettings(c)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: config: %w", locator, err)
		}
		f.Settings.Merge(s, true)
	}
	for _, e := range root.Externals {
		f.Externals = append(f.Externals, e.URL)
	}
	for _, r := range root.Requires {
		spec := readiness.Always()
		if isExprDefined(r.Checker) {
			v, diags := r.Checker.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("manifest %s: require %q: %w", locator, r.Name, diags)
			}
			var err error
			if spec, err = CheckerValue(v); err != nil {
				return nil, fmt.Errorf("manifest %s: require %q: %w", locator, r.Name, err)
			}
		}
		f.Requires = append(f.Requires, Require{Name: r.Name, Checker: spec})
	}
	for _, g := range root.Globals {
		f.Globals = append(f.Globals, g.Name)
	}
	for _, m := range root.Modules {
		f.Modules = append(f.Modules, Module{Name: m.Name, Requires: m.Requires, Body: m.Remain})
	}
	for _, b := range root.Bootstraps {
		f.HasBootstrap = true
		f.Bootstrap = append(f.Bootstrap, b.Modules...)
	}
	for _, b := range root.Bundled {
		f.Bundled = append(f.Bundled, b.Locators...)
	}

	return f, nil
}

// Dependencies returns every name the manifest asks to load, in declaration
// order: externals, require names, then module requires. Duplicates are
// dropped.
func (f *File) Dependencies() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, e := range f.Externals {
		add(e)
	}
	for _, r := range f.Requires {
		add(r.Name)
	}
	for _, m := range f.Modules {
		for _, dep := range m.Requires {
			add(dep)
		}
	}
	return out
}

// ModuleNames returns the names of the modules the manifest declares.
func (f *File) ModuleNames() []string {
	out := make([]string, len(f.Modules))
	for i, m := range f.Modules {
		out[i] = m.Name
	}
	return out
}
