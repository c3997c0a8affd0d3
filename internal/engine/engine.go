// Package engine implements the sandboxed template evaluation environment:
// a text/template instance extended with geospatial filters, functions,
// tests, and globals, plus a compiled-template cache and static validation.
// Go's text/template is itself the sandbox (see SPEC_FULL.md §0): unlike
// Jinja2 it has no ambient attribute access to block, only what Funcs
// explicitly registers.
package engine

import (
	"context"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig"
)

// Fetcher abstracts the remote-read capability the get_text/get_xml/
// get_json/get_rasterio_dataset functions need, satisfied by the Blob
// Store Gateway in production and by a fake in tests.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Environment owns the registered filters/functions/tests/globals and
// compiles template sources against them.
type Environment struct {
	fetcher Fetcher
	funcs   template.FuncMap
}

// NewEnvironment builds the environment used throughout the pipeline,
// registering every filter/function/test from SPEC_FULL.md §4.3.1-4.3.4.
func NewEnvironment(fetcher Fetcher) *Environment {
	// Seed with sprig's general-purpose string/math/date helpers (the
	// stand-in for the string/collection builtins Jinja2 templates expect
	// beyond this pipeline's own geospatial filters), then let the
	// domain-specific registrations below take precedence on name clash.
	e := &Environment{fetcher: fetcher, funcs: sprig.TxtFuncMap()}
	e.registerRegex()
	e.registerGeo()
	e.registerRaster()
	e.registerFunctions()
	e.registerTests()
	e.registerGlobals()
	return e
}

// Compile parses src into an executable template, never allowing
// {{template "..."}} references (enforced at Validate time, not here —
// Compile itself simply never registers a template name for the parser to
// resolve, so such a reference fails at execute time with a clear error).
func (e *Environment) Compile(name, src string) (*template.Template, error) {
	t, err := template.New(name).Funcs(e.funcs).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("engine: parse error: %w", err)
	}
	return t, nil
}
