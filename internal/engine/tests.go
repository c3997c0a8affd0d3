package engine

import "strings"

// registerTests installs the boolean string predicates used from
// {{if}}/{{with}} actions — Go templates have no distinct "test" grammar
// slot the way Jinja2 does, so these are ordinary FuncMap entries.
func (e *Environment) registerTests() {
	e.funcs["starts_with"] = func(s, prefix string) bool { return strings.HasPrefix(s, prefix) }
	e.funcs["ends_with"] = func(s, suffix string) bool { return strings.HasSuffix(s, suffix) }
	e.funcs["contains"] = func(s, substr string) bool { return strings.Contains(s, substr) }
}
