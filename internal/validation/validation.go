// Package validation checks the shape of incoming records against the JSON
// schema of their entity before they are projected.
package validation

import (
	"embed"
	"fmt"
	"strings"

	"github.com/ukydev/vehicle-ingest/internal/models"
	"github.com/ukydev/vehicle-ingest/internal/schema"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Violation is one failed constraint.
type Violation struct {
	Field   string
	Message string
}

// Error lists every violation found in one record.
type Error struct {
	Entity     schema.Entity
	Violations []Violation
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return strings.Join(parts, "; ")
}

// Validator holds one compiled schema per entity.
type Validator struct {
	schemas map[schema.Entity]*gojsonschema.Schema
}

// New compiles the embedded schemas.
func New() (*Validator, error) {
	v := &Validator{schemas: make(map[schema.Entity]*gojsonschema.Schema)}
	for _, e := range schema.Entities() {
		raw, err := schemaFS.ReadFile("schemas/" + string(e) + ".json")
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", e, err)
		}
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", e, err)
		}
		v.schemas[e] = compiled
	}
	return v, nil
}

// Validate returns *Error when p does not satisfy the schema of e.
func (v *Validator) Validate(e schema.Entity, p models.Payload) error {
	s, ok := v.schemas[e]
	if !ok {
		return fmt.Errorf("no schema for entity %q", e)
	}
	if p == nil {
		p = models.Payload{}
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(map[string]any(p)))
	if err != nil {
		return fmt.Errorf("validate %s: %w", e, err)
	}
	if result.Valid() {
		return nil
	}
	verr := &Error{Entity: e}
	for _, desc := range result.Errors() {
		verr.Violations = append(verr.Violations, Violation{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return verr
}
