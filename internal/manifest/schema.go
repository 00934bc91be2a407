package manifest

import "github.com/hashicorp/hcl/v2"

// fileRoot is used to decode every top-level block a manifest may contain.
type fileRoot struct {
	Configs    []*configBlock    `hcl:"config,block"`
	Externals  []*externalBlock  `hcl:"external,block"`
	Requires   []*requireBlock   `hcl:"require,block"`
	Globals    []*globalBlock    `hcl:"global,block"`
	Modules    []*moduleBlock    `hcl:"module,block"`
	Bootstraps []*bootstrapBlock `hcl:"bootstrap,block"`
	Bundled    []*bundledBlock   `hcl:"bundled,block"`
}

type configBlock struct {
	Paths    hcl.Expression `hcl:"paths,optional"`
	Checkers hcl.Expression `hcl:"checkers,optional"`
}

type externalBlock struct {
	URL string `hcl:"url,label"`
}

type requireBlock struct {
	Name    string         `hcl:"name,label"`
	Checker hcl.Expression `hcl:"checker,optional"`
}

type globalBlock struct {
	Name   string   `hcl:"name,label"`
	Remain hcl.Body `hcl:",remain"`
}

type moduleBlock struct {
	Name     string   `hcl:"name,label"`
	Requires []string `hcl:"requires,optional"`
	// Everything else is the module body and stays opaque.
	Remain hcl.Body `hcl:",remain"`
}

type bootstrapBlock struct {
	Modules []string `hcl:"modules"`
}

type bundledBlock struct {
	Locators []string `hcl:"locators"`
}

// isExprDefined reports whether an optional attribute was present in the
// source. gohcl fills omitted optional expressions with a zero-width
// placeholder, so a nil check is not enough.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}
