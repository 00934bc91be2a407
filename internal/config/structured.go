package config

import (
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/specialistvlad/modload/internal/manifest"
	"github.com/specialistvlad/modload/internal/pathresolve"
	"github.com/spf13/viper"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"
)

// scalars holds the settings bound through viper. Viper folds keys to
// lower case, so the name keyed paths and checkers maps are decoded apart.
type scalars struct {
	App       string             `mapstructure:"app"`
	Root      string             `mapstructure:"root"`
	Timeout   string             `mapstructure:"timeout"`
	Interval  string             `mapstructure:"interval"`
	Extension string             `mapstructure:"extension"`
	Globals   []string           `mapstructure:"globals"`
	Builtins  []string           `mapstructure:"builtins"`
	Entries   []string           `mapstructure:"entries"`
	Rules     []pathresolve.Rule `mapstructure:"path_transform"`
}

func decodeStructured(path, ext string, src []byte) (*Model, error) {
	raw := map[string]any{}
	var err error
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(src, &raw)
	case ".json":
		err = json.Unmarshal(src, &raw)
	case ".toml":
		err = toml.Unmarshal(src, &raw)
	default:
		err = fmt.Errorf("unsupported format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	paths, err := ctyValue(raw["paths"])
	if err != nil {
		return nil, fmt.Errorf("config %s: paths: %w", path, err)
	}
	checkers, err := ctyValue(raw["checkers"])
	if err != nil {
		return nil, fmt.Errorf("config %s: checkers: %w", path, err)
	}
	settings, err := manifest.DecodeSettings(paths, checkers)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	delete(raw, "paths")
	delete(raw, "checkers")

	v := viper.New()
	if err := v.MergeConfigMap(raw); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	var sc scalars
	if err := v.Unmarshal(&sc); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	m := &Model{
		App:       sc.App,
		Root:      sc.Root,
		Extension: sc.Extension,
		Paths:     settings.Paths,
		Checkers:  settings.Checkers,
		Rules:     sc.Rules,
		Globals:   sc.Globals,
		Builtins:  sc.Builtins,
		Entries:   sc.Entries,
	}
	if m.Timeout, err = parseDuration("timeout", sc.Timeout); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if m.Interval, err = parseDuration("interval", sc.Interval); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return m, nil
}

// ctyValue converts a decoded document value to cty through its JSON form.
func ctyValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return cty.NilVal, err
	}
	ty, err := ctyjson.ImpliedType(b)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(b, ty)
}
