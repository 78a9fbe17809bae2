// Package tools defines the static catalog of drone commands the
// assistant can invoke, and validation of extracted calls against it.
//
// The catalog is shared between the prompt renderer and the actuation
// service's own accepted command set; the two must not diverge.
package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Param describes one parameter of a tool's schema.
type Param struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Default     any      `json:"default,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
}

// Definition describes one remotely executable tool.
type Definition struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Params      map[string]Param `json:"parameters"`
}

// Registry is a read-only catalog of tool definitions, populated once
// at startup. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	order []string
}

// NewRegistry builds a registry from the given definitions.
// Duplicate or unnamed definitions are a configuration error.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("tools: definition with empty name")
		}
		if _, exists := r.defs[d.Name]; exists {
			return nil, fmt.Errorf("tools: duplicate definition %q", d.Name)
		}
		r.defs[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	if len(r.defs) == 0 {
		return nil, fmt.Errorf("tools: empty catalog")
	}
	return r, nil
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	return d, ok
}

// List returns all definitions in catalog order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}
	return out
}

// ValidateCall checks an extracted invocation against the catalog:
// the tool must exist, required parameters must be present, and
// numeric parameters must be within their declared bounds.
func (r *Registry) ValidateCall(name string, params map[string]any) error {
	def, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("unknown tool: %s", name)
	}

	// Deterministic error for multi-parameter schemas.
	keys := make([]string, 0, len(def.Params))
	for k := range def.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		p := def.Params[key]
		val, present := params[key]
		if !present {
			if p.Required {
				return fmt.Errorf("tool %s: missing required parameter %q", name, key)
			}
			continue
		}
		if p.Min == nil && p.Max == nil {
			continue
		}
		n, ok := toFloat(val)
		if !ok {
			return fmt.Errorf("tool %s: parameter %q must be a number", name, key)
		}
		if p.Min != nil && n < *p.Min {
			return fmt.Errorf("tool %s: parameter %q below minimum %v", name, key, *p.Min)
		}
		if p.Max != nil && n > *p.Max {
			return fmt.Errorf("tool %s: parameter %q above maximum %v", name, key, *p.Max)
		}
	}
	return nil
}

// PromptBlock renders the catalog for the generation prompt: every
// tool's name, description, and parameters with required/default
// annotations.
func (r *Registry) PromptBlock() string {
	var b strings.Builder
	b.WriteString("You can control the drone with the following tools:\n\n")
	for _, def := range r.List() {
		fmt.Fprintf(&b, "- **%s**: %s\n", def.Name, def.Description)
		if len(def.Params) == 0 {
			b.WriteString("\n")
			continue
		}
		b.WriteString("  Parameters:\n")

		keys := make([]string, 0, len(def.Params))
		for k := range def.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			p := def.Params[key]
			fmt.Fprintf(&b, "    - %s: %s", key, p.Description)
			if p.Default != nil {
				fmt.Fprintf(&b, " (default: %v)", p.Default)
			}
			if p.Required {
				b.WriteString(" [required]")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
