package manifest

import (
	"fmt"
	"maps"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/modload/internal/pathresolve"
	"github.com/specialistvlad/modload/internal/readiness"
	"github.com/zclconf/go-cty/cty"
)

// Settings is the loader configuration a manifest can carry in its config
// blocks.
type Settings struct {
	Paths    map[string]pathresolve.Override
	Checkers map[string]readiness.Spec
}

// Empty reports whether s carries nothing.
func (s Settings) Empty() bool {
	return len(s.Paths) == 0 && len(s.Checkers) == 0
}

// Merge copies entries of other into s. With override false, names already
// present in s keep their value.
func (s *Settings) Merge(other Settings, override bool) {
	if len(other.Paths) > 0 && s.Paths == nil {
		s.Paths = make(map[string]pathresolve.Override, len(other.Paths))
	}
	for k, v := range other.Paths {
		if _, ok := s.Paths[k]; ok && !override {
			continue
		}
		s.Paths[k] = v
	}
	if len(other.Checkers) > 0 && s.Checkers == nil {
		s.Checkers = make(map[string]readiness.Spec, len(other.Checkers))
	}
	for k, v := range other.Checkers {
		if _, ok := s.Checkers[k]; ok && !override {
			continue
		}
		s.Checkers[k] = v
	}
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	return Settings{Paths: maps.Clone(s.Paths), Checkers: maps.Clone(s.Checkers)}
}

func decodeSettings(b *configBlock) (Settings, error) {
	paths, err := exprValue(b.Paths, "paths")
	if err != nil {
		return Settings{}, err
	}
	checkers, err := exprValue(b.Checkers, "checkers")
	if err != nil {
		return Settings{}, err
	}
	return DecodeSettings(paths, checkers)
}

// DecodeSettings builds Settings from a paths object and a checkers object.
// Either may be cty.NilVal or null. A path that is null or false excludes
// the name.
func DecodeSettings(paths, checkers cty.Value) (Settings, error) {
	var s Settings

	entries, err := objectEntries(paths, "paths")
	if err != nil {
		return s, err
	}
	if entries != nil {
		s.Paths = make(map[string]pathresolve.Override, len(entries))
	}
	for name, v := range entries {
		switch {
		case v.IsNull(), v.Type() == cty.Bool && v.False():
			s.Paths[name] = pathresolve.Override{Excluded: true}
		case v.Type() == cty.String:
			s.Paths[name] = pathresolve.Override{Locator: v.AsString()}
		default:
			return s, fmt.Errorf("paths.%s: expected a string or null, got %s", name, v.Type().FriendlyName())
		}
	}

	entries, err = objectEntries(checkers, "checkers")
	if err != nil {
		return s, err
	}
	if entries != nil {
		s.Checkers = make(map[string]readiness.Spec, len(entries))
	}
	for name, v := range entries {
		spec, err := CheckerValue(v)
		if err != nil {
			return s, fmt.Errorf("checkers.%s: %w", name, err)
		}
		s.Checkers[name] = spec
	}

	return s, nil
}

func exprValue(expr hcl.Expression, attr string) (cty.Value, error) {
	if !isExprDefined(expr) {
		return cty.NilVal, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("invalid %s: %w", attr, diags)
	}
	return v, nil
}

func objectEntries(v cty.Value, attr string) (map[string]cty.Value, error) {
	if v == cty.NilVal || v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("%s must be an object, got %s", attr, ty.FriendlyName())
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("%s must be known at parse time", attr)
	}
	return v.AsValueMap(), nil
}

// CheckerValue converts a checker value into a spec: null means always
// ready, a string names one symbol and a list or tuple of strings names
// several.
func CheckerValue(v cty.Value) (readiness.Spec, error) {
	if v.IsNull() {
		return readiness.Always(), nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return readiness.Symbol(v.AsString()), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		var names []string
		for it := v.ElementIterator(); it.Next(); {
			_, el := it.Element()
			if el.IsNull() || el.Type() != cty.String {
				return readiness.Spec{}, fmt.Errorf("checker list must only contain strings")
			}
			names = append(names, el.AsString())
		}
		return readiness.Symbols(names...), nil
	default:
		return readiness.Spec{}, fmt.Errorf("checker must be a string or a list of strings, got %s", ty.FriendlyName())
	}
}
