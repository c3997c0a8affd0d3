package stac

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// TypeError reports that a rendered document is structurally not a STAC
// Item (missing or mistyped required fields).
type TypeError struct {
	Reason string
}

func (e *TypeError) Error() string { return "stac: " + e.Reason }

// ValidationError wraps one or more JSON Schema violations.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stac: schema validation failed: %v", e.Violations)
}

// ItemFromJSON converts a generic decoded JSON document into an Item,
// enforcing the minimal structural requirements from the data model
// (id, type, geometry, properties, assets all present) before optional
// schema validation runs.
func ItemFromJSON(doc map[string]interface{}) (*Item, error) {
	for _, required := range []string{"id", "type", "geometry", "properties", "assets"} {
		if _, ok := doc[required]; !ok {
			return nil, &TypeError{Reason: fmt.Sprintf("missing required field %q", required)}
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, &TypeError{Reason: "document is not serializable: " + err.Error()}
	}
	var item Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, &TypeError{Reason: "document does not match the STAC item shape: " + err.Error()}
	}
	return &item, nil
}

// Schema wraps a compiled JSON Schema document used to validate rendered
// items when OrchestrationInput.Validate is set.
type Schema struct {
	compiled *jsonschema.Schema
}

// CompileSchema compiles schemaJSON (the STAC Item JSON Schema, or a
// project-specific subset of it) once, for reuse across many Validate calls.
func CompileSchema(schemaJSON []byte) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	const resourceName = "stac-item-schema.json"
	if err := compiler.AddResource(resourceName, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, err
	}
	return &Schema{compiled: compiled}, nil
}

// Validate checks doc (the raw decoded JSON map, prior to ItemFromJSON
// narrowing) against the compiled schema, returning a ValidationError
// listing every violation found.
func (s *Schema) Validate(doc map[string]interface{}) error {
	if err := s.compiled.Validate(doc); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			var msgs []string
			for _, cause := range ve.BasicOutput().Errors {
				if cause.Error != "" {
					msgs = append(msgs, cause.Error)
				}
			}
			if len(msgs) == 0 {
				msgs = []string{ve.Error()}
			}
			return &ValidationError{Violations: msgs}
		}
		return &ValidationError{Violations: []string{err.Error()}}
	}
	return nil
}
