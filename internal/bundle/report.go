package bundle

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Report is a serialisable description of a resolved graph.
type Report struct {
	Entries   []string     `json:"entries" yaml:"entries"`
	Roots     []string     `json:"roots" yaml:"roots"`
	Externals []string     `json:"externals,omitempty" yaml:"externals,omitempty"`
	Order     []string     `json:"order" yaml:"order"`
	Broken    []string     `json:"broken,omitempty" yaml:"broken,omitempty"`
	Nodes     []NodeReport `json:"nodes" yaml:"nodes"`
}

// NodeReport describes one resource.
type NodeReport struct {
	Locator      string   `json:"locator" yaml:"locator"`
	Name         string   `json:"name" yaml:"name"`
	Priority     int      `json:"priority" yaml:"priority"`
	Modules      []string `json:"modules,omitempty" yaml:"modules,omitempty"`
	Globals      []string `json:"globals,omitempty" yaml:"globals,omitempty"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Report describes r. Nodes are listed in emission order.
func (r *Result) Report() Report {
	rep := Report{
		Entries:   r.Entries,
		Roots:     r.Roots,
		Externals: r.Externals,
		Order:     r.Locators(),
		Broken:    r.Broken,
	}
	for _, n := range r.Order {
		deps, _ := r.Graph.Dependencies(n.ID)
		nr := NodeReport{
			Locator:      n.ID,
			Name:         n.Name,
			Priority:     n.Priority,
			Dependencies: deps,
		}
		if f, ok := r.files[n.ID]; ok {
			nr.Modules = f.ModuleNames()
			nr.Globals = f.Globals
		}
		rep.Nodes = append(rep.Nodes, nr)
	}
	return rep
}

// Encode writes rep as "yaml" or "json".
func (rep Report) Encode(w io.Writer, format string) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}
