package batch

import (
	"strconv"
	"strings"
)

// Escape doubles every single quote so the value reads back as one quoted string literal.
// It is the only sanitization applied to free text.
func Escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Quote escapes s and wraps it in single quotes.
func Quote(s string) string {
	return "'" + Escape(s) + "'"
}

// identifierLiteral renders a record identifier. Only canonical base-10
// integers are emitted bare, since Postgres would rewrite "007" or "+5" on the
// way into a TEXT column. Anything else is quoted.
func identifierLiteral(id string) string {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil && strconv.FormatInt(n, 10) == id {
		return id
	}

	return Quote(id)
}
