package obslog

import "strings"

// toPascalCase rewrites a snake_case or lower-case field name to
// PascalCase for the remote sink's column naming convention. No
// third-party "humps"-equivalent casing library appears anywhere in the
// retrieved pack, so this is a small local helper over stdlib strings.
func toPascalCase(field string) string {
	parts := strings.FieldsFunc(field, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	var sb strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(p[:1]))
		if len(p) > 1 {
			sb.WriteString(p[1:])
		}
	}
	return sb.String()
}
