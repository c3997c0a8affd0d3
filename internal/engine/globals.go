package engine

// registerGlobals installs the regex-flag names for template source
// compatibility. Go's regexp package has no runtime flag values the way
// Python's re module does — flags are expressed with inline syntax like
// (?i) instead — so each name is a function returning its inline flag
// prefix, which a template can prepend to a pattern.
func (e *Environment) registerGlobals() {
	e.funcs["RE_IGNORECASE"] = func() string { return "(?i)" }
	e.funcs["RE_MULTILINE"] = func() string { return "(?m)" }
	e.funcs["RE_DOTALL"] = func() string { return "(?s)" }
}
