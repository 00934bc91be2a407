package pathresolve

import (
	"fmt"
	"regexp"
)

// Rule is the declarative form of a Transform, used by configuration files.
// A rule with StopIf set stops the pipeline when the current path matches.
// Otherwise every match of Pattern is replaced with Replace.
type Rule struct {
	Pattern string `hcl:"pattern,optional" mapstructure:"pattern" yaml:"pattern,omitempty"`
	Replace string `hcl:"replace,optional" mapstructure:"replace" yaml:"replace,omitempty"`
	StopIf  string `hcl:"stop_if,optional" mapstructure:"stop_if" yaml:"stop_if,omitempty"`
}

// Compile turns the rule into a Transform.
func (r Rule) Compile() (Transform, error) {
	switch {
	case r.StopIf != "" && r.Pattern != "":
		return nil, fmt.Errorf("path transform sets both stop_if and pattern")
	case r.StopIf != "":
		re, err := regexp.Compile(r.StopIf)
		if err != nil {
			return nil, fmt.Errorf("invalid stop_if %q: %w", r.StopIf, err)
		}
		return func(p, _ string) (string, bool) {
			return p, !re.MatchString(p)
		}, nil
	case r.Pattern != "":
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", r.Pattern, err)
		}
		return func(p, _ string) (string, bool) {
			return re.ReplaceAllString(p, r.Replace), true
		}, nil
	default:
		return nil, fmt.Errorf("path transform needs stop_if or pattern")
	}
}

// CompileRules compiles rules in order.
func CompileRules(rules []Rule) ([]Transform, error) {
	out := make([]Transform, 0, len(rules))
	for i, r := range rules {
		fn, err := r.Compile()
		if err != nil {
			return nil, fmt.Errorf("path_transform #%d: %w", i+1, err)
		}
		out = append(out, fn)
	}
	return out, nil
}
