package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/modload/internal/manifest"
	"github.com/specialistvlad/modload/internal/pathresolve"
	"github.com/zclconf/go-cty/cty"
)

type hclConfig struct {
	App       string             `hcl:"app,optional"`
	Root      string             `hcl:"root,optional"`
	Timeout   string             `hcl:"timeout,optional"`
	Interval  string             `hcl:"interval,optional"`
	Extension string             `hcl:"extension,optional"`
	Globals   []string           `hcl:"globals,optional"`
	Builtins  []string           `hcl:"builtins,optional"`
	Entries   []string           `hcl:"entries,optional"`
	Paths     hcl.Expression     `hcl:"paths,optional"`
	Checkers  hcl.Expression     `hcl:"checkers,optional"`
	Rules     []pathresolve.Rule `hcl:"path_transform,block"`
}

func decodeHCL(path string, src []byte) (*Model, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, diags)
	}
	var raw hclConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, diags)
	}

	paths, err := staticValue(raw.Paths, "paths")
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	checkers, err := staticValue(raw.Checkers, "checkers")
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	settings, err := manifest.DecodeSettings(paths, checkers)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	m := &Model{
		App:       raw.App,
		Root:      raw.Root,
		Extension: raw.Extension,
		Paths:     settings.Paths,
		Checkers:  settings.Checkers,
		Rules:     raw.Rules,
		Globals:   raw.Globals,
		Builtins:  raw.Builtins,
		Entries:   raw.Entries,
	}
	if m.Timeout, err = parseDuration("timeout", raw.Timeout); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if m.Interval, err = parseDuration("interval", raw.Interval); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return m, nil
}

// staticValue evaluates expr without variables or functions.
func staticValue(expr hcl.Expression, attr string) (cty.Value, error) {
	if expr == nil {
		return cty.NilVal, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("invalid %s: %w", attr, diags)
	}
	return v, nil
}
