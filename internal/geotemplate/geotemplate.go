// Package geotemplate wraps a compiled template with the three rendering
// stages (text, JSON, STAC Item) and the typed error taxonomy the
// orchestrator and activities need to distinguish.
package geotemplate

import (
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/Azure/microsoft-planetary-computer-pro/internal/engine"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/stac"
)

// JSONError reports that rendered template text was not valid JSON.
type JSONError struct{ Err error }

func (e *JSONError) Error() string { return "geotemplate: rendered text is not valid JSON: " + e.Err.Error() }
func (e *JSONError) Unwrap() error { return e.Err }

// GeoTemplate is a compiled template bound to the environment it must be
// evaluated in.
type GeoTemplate struct {
	tmpl   *template.Template
	schema *stac.Schema // optional; nil when validation was never requested
}

// New wraps a compiled template. schema may be nil if STAC schema
// validation will never be requested for this template.
func New(tmpl *template.Template, schema *stac.Schema) *GeoTemplate {
	return &GeoTemplate{tmpl: tmpl, schema: schema}
}

// RenderText evaluates the template against sceneInfo, mapping engine
// failures to *engine.RuntimeError so callers can distinguish filter-arg,
// sandbox-security, and generic runtime failures.
func (g *GeoTemplate) RenderText(sceneInfo interface{}) (string, error) {
	return engine.Execute(g.tmpl, sceneInfo)
}

// RenderJSON renders then decodes the result as a generic JSON document.
func (g *GeoTemplate) RenderJSON(sceneInfo interface{}) (map[string]interface{}, error) {
	text, err := g.RenderText(sceneInfo)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &JSONError{Err: err}
	}
	return doc, nil
}

// RenderStac renders the template, decodes it as JSON, and builds a STAC
// Item, optionally schema-validating it. Error classification precedence
// is JSON decode -> STAC structural -> STAC validation -> runtime: a
// runtime (engine execution) error can only occur before any of the JSON/
// STAC stages are reached, so this ordering falls out of the call
// sequence below rather than needing an explicit priority table. This
// ordering is load-bearing for scenario S2.
func (g *GeoTemplate) RenderStac(sceneInfo interface{}, validate bool) (*stac.Item, error) {
	doc, err := g.RenderJSON(sceneInfo)
	if err != nil {
		return nil, err
	}
	item, err := stac.ItemFromJSON(doc)
	if err != nil {
		return nil, err
	}
	if validate {
		if g.schema == nil {
			return nil, fmt.Errorf("geotemplate: validation requested but no schema is configured")
		}
		if err := g.schema.Validate(doc); err != nil {
			return nil, err
		}
	}
	return item, nil
}
