package resource

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-resync/layering"
)

// DefaultPrecision is the number of decimal places derived fields are
// rounded to when a definition does not say otherwise.
const DefaultPrecision = 2

// Definition is the static, resource specific configuration the core is
// driven by: endpoints, field aliasing, draft defaults and derived fields.
// UI facing names are used everywhere except Fields, which lists wire names
// in display order.
type Definition struct {
	Name             string            `yaml:"name" json:"name"`
	Collection       string            `yaml:"collection" json:"collection"`
	Health           string            `yaml:"health" json:"health"`
	ItemsKey         string            `yaml:"items_key" json:"items_key"`
	Fields           []string          `yaml:"fields" json:"fields,omitempty"`
	Aliases          map[string]string `yaml:"aliases" json:"aliases,omitempty"`
	Required         []string          `yaml:"required" json:"required,omitempty"`
	Numeric          []string          `yaml:"numeric" json:"numeric,omitempty"`
	ResetAfterCreate []string          `yaml:"reset_after_create" json:"reset_after_create,omitempty"`
	Defaults         map[string]any    `yaml:"defaults" json:"defaults,omitempty"`
	Derived          []DerivedField    `yaml:"derived" json:"derived,omitempty"`
	Rules            []Rule            `yaml:"rules" json:"rules,omitempty"`
}

// DerivedField computes Field from Expr when the draft leaves Field at its
// zero sentinel.
type DerivedField struct {
	Field     string `yaml:"field" json:"field"`
	Expr      string `yaml:"expr" json:"expr"`
	Precision *int   `yaml:"precision" json:"precision,omitempty"`
}

// Places returns the rounding precision for the derived value.
func (d DerivedField) Places() int {
	if d.Precision == nil || *d.Precision < 0 {
		return DefaultPrecision
	}
	return *d.Precision
}

// Rule is a validation expression that must evaluate to true for a draft to
// be submitted.
type Rule struct {
	Field   string `yaml:"field" json:"field"`
	Expr    string `yaml:"expr" json:"expr"`
	Message string `yaml:"message" json:"message"`
}

// DefaultDefinition holds the values every definition falls back to.
func DefaultDefinition() Definition {
	return Definition{
		Health:   "/api/health",
		ItemsKey: "items",
	}
}

// WithDefaults layers d over DefaultDefinition and fills the collection path
// from the name when it is missing.
func (d Definition) WithDefaults() Definition {
	merged := layering.Merge(d, DefaultDefinition())
	if merged.Collection == "" && merged.Name != "" {
		merged.Collection = "/api/" + merged.Name
	}
	return merged
}

// Validate reports configuration mistakes.
func (d Definition) Validate() error {
	var errs []error
	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.TrimSpace(d.Collection) == "" {
		errs = append(errs, errors.New("collection path is required"))
	}
	for ui, wire := range d.Aliases {
		if strings.TrimSpace(ui) == "" || strings.TrimSpace(wire) == "" {
			errs = append(errs, fmt.Errorf("alias %q -> %q must name both fields", ui, wire))
		}
	}
	for i, derived := range d.Derived {
		if derived.Field == "" || derived.Expr == "" {
			errs = append(errs, fmt.Errorf("derived[%d] requires field and expr", i))
		}
	}
	for i, rule := range d.Rules {
		if rule.Expr == "" {
			errs = append(errs, fmt.Errorf("rules[%d] requires expr", i))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("resource: invalid definition %q: %w", d.Name, errors.Join(errs...))
}

// IsNumeric reports whether field is declared numeric.
func (d Definition) IsNumeric(field string) bool {
	for _, f := range d.Numeric {
		if f == field {
			return true
		}
	}
	return false
}

// WireName translates a UI field name to its wire name.
func (d Definition) WireName(field string) string {
	if wire, ok := d.Aliases[field]; ok && wire != "" {
		return wire
	}
	return field
}

// ToWire returns a copy of fields keyed by wire names. When a draft holds
// both a UI name and its wire target, the UI name's value wins.
func (d Definition) ToWire(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if d.WireName(k) == k {
			out[k] = cloneValue(v)
		}
	}
	for k, v := range fields {
		if wire := d.WireName(k); wire != k {
			out[wire] = cloneValue(v)
		}
	}
	return out
}

// ParseDefinition decodes a YAML definition, applies defaults and validates
// it.
func ParseDefinition(data []byte) (Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("resource: parse definition: %w", err)
	}
	def = def.WithDefaults()
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// LoadDefinition reads and parses the YAML definition at path.
func LoadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("resource: read definition: %w", err)
	}
	return ParseDefinition(data)
}
