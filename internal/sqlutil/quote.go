// Package sqlutil provides SQL utility functions.
package sqlutil

import (
	"fmt"
	"regexp"
	"strings"
)

// QuoteIdentifier quotes a SQL identifier (table name, column name, etc.)
// with double quotes and escapes any double quotes within the identifier.
func QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

// QuoteQualified quotes a possibly alias-qualified column reference.
// "users.name" becomes "users"."name"; a bare name is quoted as-is.
func QuoteQualified(ref string) string {
	parts := strings.SplitN(ref, ".", 2)
	if len(parts) == 2 {
		return QuoteIdentifier(parts[0]) + "." + QuoteIdentifier(parts[1])
	}
	return QuoteIdentifier(ref)
}

// QuoteString quotes a SQL string literal with single quotes and escapes
// any single quotes within the string by doubling them.
func QuoteString(s string) string {
	escaped := strings.ReplaceAll(s, "'", "''")
	return "'" + escaped + "'"
}

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// RenumberPlaceholders rewrites $N placeholders in a SQL fragment so that
// numbering starts at offset+1 while preserving relative order. Fragments
// rendered with independent numbering (relationship constraint clauses)
// must pass through here before being merged into a larger statement.
func RenumberPlaceholders(fragment string, offset int) string {
	return placeholderPattern.ReplaceAllStringFunc(fragment, func(match string) string {
		var n int
		fmt.Sscanf(match, "$%d", &n)
		return fmt.Sprintf("$%d", n+offset)
	})
}

// QuestionToDollar converts ? placeholders into $N placeholders numbered
// from offset+1. Used to splice squirrel-built fragments into statements
// assembled with numbered placeholders.
func QuestionToDollar(fragment string, offset int) string {
	var b strings.Builder
	b.Grow(len(fragment))
	n := offset
	for i := 0; i < len(fragment); i++ {
		if fragment[i] == '?' {
			// ?? is squirrel's escape for a literal question mark.
			if i+1 < len(fragment) && fragment[i+1] == '?' {
				b.WriteByte('?')
				i++
				continue
			}
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(fragment[i])
	}
	return b.String()
}
