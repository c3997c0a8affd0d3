package engine

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"text/template/parse"
)

// ValidationErrorKind enumerates the static-analysis error kinds
// SPEC_FULL.md §4.3.3 names. SecurityError is reserved for a future
// execution-based check and never produced by ValidateTemplate.
type ValidationErrorKind string

const (
	KindSyntaxError         ValidationErrorKind = "SyntaxError"
	KindUndeclaredVariable  ValidationErrorKind = "UndeclaredVariable"
	KindUnsupportedReference ValidationErrorKind = "UnsupportedReference"
	KindSecurityError       ValidationErrorKind = "SecurityError"
)

// ValidationError is one static-analysis finding.
type ValidationError struct {
	Kind ValidationErrorKind
	Line int
	Msg  string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s at line %d: %s", e.Kind, e.Line, e.Msg)
}

var parseErrLine = regexp.MustCompile(`:(\d+):`)

// ValidateTemplate performs the pre-execution static checks: parse
// validity, undeclared variable references, and import/include/extends
// references (always rejected — this engine never registers named
// sub-templates for {{template}} to resolve). It never executes the
// template. Parsing uses the same registered functions as NewEnvironment,
// and a $-variable the parser reports as undefined is an
// UndeclaredVariable finding rather than a SyntaxError.
func ValidateTemplate(src string) (bool, []ValidationError) {
	t, err := template.New("validate").Funcs(NewEnvironment(nil).funcs).Parse(src)
	if err != nil {
		line := 0
		if m := parseErrLine.FindStringSubmatch(err.Error()); m != nil {
			fmt.Sscanf(m[1], "%d", &line)
		}
		kind := KindSyntaxError
		if strings.Contains(err.Error(), "undefined variable") {
			kind = KindUndeclaredVariable
		}
		return false, []ValidationError{{Kind: kind, Line: line, Msg: err.Error()}}
	}

	var errs []ValidationError
	st := &validateState{declared: map[string]bool{"$": true}, rootDot: true}
	for _, tmpl := range t.Templates() {
		if tmpl.Tree == nil {
			continue
		}
		errs = append(errs, walk(tmpl.Tree.Root, st)...)
	}
	return len(errs) == 0, errs
}

// validateState threads the set of declared $-variables (shared by
// reference across the whole tree, matching text/template's own
// unscoped variable visibility) and whether "." still refers to the
// template root (scene_info) or has been rebound by an enclosing
// {{range}}/{{with}} body, in which case field references can no longer
// be checked statically.
type validateState struct {
	declared map[string]bool
	rootDot  bool
}

func (st *validateState) withRebindingDot() *validateState {
	return &validateState{declared: st.declared, rootDot: false}
}

func walk(node parse.Node, st *validateState) []ValidationError {
	var errs []ValidationError
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return nil
		}
		for _, c := range n.Nodes {
			errs = append(errs, walk(c, st)...)
		}
	case *parse.TemplateNode:
		errs = append(errs, ValidationError{
			Kind: KindUnsupportedReference,
			Line: int(n.Line()),
			Msg:  fmt.Sprintf("template reference %q is not permitted", n.Name),
		})
	case *parse.ActionNode:
		errs = append(errs, checkPipe(n.Pipe, st)...)
	case *parse.IfNode:
		errs = append(errs, checkPipe(n.Pipe, st)...)
		errs = append(errs, walk(n.List, st)...)
		errs = append(errs, walk(n.ElseList, st)...)
	case *parse.RangeNode:
		errs = append(errs, checkPipe(n.Pipe, st)...)
		errs = append(errs, walk(n.List, st.withRebindingDot())...)
		errs = append(errs, walk(n.ElseList, st)...)
	case *parse.WithNode:
		errs = append(errs, checkPipe(n.Pipe, st)...)
		errs = append(errs, walk(n.List, st.withRebindingDot())...)
		errs = append(errs, walk(n.ElseList, st)...)
	}
	return errs
}

// checkPipe inspects every VariableNode ($x-style) and, when st.rootDot
// holds, every FieldNode (.x-style) argument: a FieldNode's leading
// segment must be "scene_info" — the only name bound at the template
// root (spec.md §3: scene_info is the sole global scene_info handed to
// the template) — since field references inside a {{range}}/{{with}}
// body operate against a rebound, statically-unknown "." and are left
// unchecked.
func checkPipe(pipe *parse.PipeNode, st *validateState) []ValidationError {
	if pipe == nil {
		return nil
	}
	var errs []ValidationError
	for _, cmd := range pipe.Cmds {
		for _, arg := range cmd.Args {
			switch v := arg.(type) {
			case *parse.VariableNode:
				name := v.Ident[0]
				if !st.declared[name] {
					errs = append(errs, ValidationError{
						Kind: KindUndeclaredVariable,
						Line: int(v.Line()),
						Msg:  fmt.Sprintf("undeclared variable %q", name),
					})
				}
			case *parse.FieldNode:
				if st.rootDot && len(v.Ident) > 0 && v.Ident[0] != "scene_info" {
					errs = append(errs, ValidationError{
						Kind: KindUndeclaredVariable,
						Line: int(v.Line()),
						Msg:  fmt.Sprintf("undeclared field reference %q: only .scene_info is defined at the template root", "."+strings.Join(v.Ident, ".")),
					})
				}
			}
		}
	}
	for _, decl := range pipe.Decl {
		st.declared[decl.Ident[0]] = true
	}
	return errs
}

// RuntimeValidate always reports errNotImplemented: only parse-time checks
// are supported from this entry point, per SPEC_FULL.md §4.3.3.
func RuntimeValidate(src string) error {
	return errNotImplemented
}

var errNotImplemented = fmt.Errorf("engine: runtime validation is not implemented; use ValidateTemplate for static checks")
