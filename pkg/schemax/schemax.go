// Package schemax validates record properties against the declared models.
package schemax

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/Abraxas-365/gatekeep/pkg/config"
)

type Result struct {
	IsValid bool
	Error   string
}

// Validator checks data against a registered schema reference.
type Validator interface {
	Validate(ref string, data map[string]any) Result
}

type SchemaValidator struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Resolved
}

var _ Validator = (*SchemaValidator)(nil)

func New() *SchemaValidator {
	return &SchemaValidator{schemas: make(map[string]*jsonschema.Resolved)}
}

// Register compiles m under ref. Properties named in omit are dropped from
// the schema, so data carrying them is rejected.
func (v *SchemaValidator) Register(ref string, m config.Model, omit ...string) error {
	skip := make(map[string]bool, len(omit))
	for _, o := range omit {
		skip[o] = true
	}

	s := &jsonschema.Schema{
		Type:                 "object",
		Properties:           make(map[string]*jsonschema.Schema, len(m.Properties)),
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
	for name, p := range m.Properties {
		if skip[name] {
			continue
		}
		ps := &jsonschema.Schema{Type: p.Type, Description: p.Description}
		if p.Type == config.TypeArray {
			ps.Items = &jsonschema.Schema{Type: config.TypeString}
		}
		s.Properties[name] = ps
	}
	for _, r := range m.Required {
		if !skip[r] {
			s.Required = append(s.Required, r)
		}
	}
	sort.Strings(s.Required)

	resolved, err := s.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolve schema %s: %w", ref, err)
	}

	v.mu.Lock()
	v.schemas[ref] = resolved
	v.mu.Unlock()
	return nil
}

func (v *SchemaValidator) Validate(ref string, data map[string]any) Result {
	v.mu.RLock()
	resolved, ok := v.schemas[ref]
	v.mu.RUnlock()
	if !ok {
		return Result{Error: "unknown schema " + ref}
	}

	instance, err := normalize(data)
	if err != nil {
		return Result{Error: err.Error()}
	}
	if err := resolved.Validate(instance); err != nil {
		return Result{Error: err.Error()}
	}
	return Result{IsValid: true}
}

// normalize round-trips data through JSON so the validator only sees
// JSON-shaped values.
func normalize(data map[string]any) (any, error) {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
