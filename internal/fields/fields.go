// Package fields computes allow-listed column projections.
package fields

import (
	"strings"

	"restq/internal/sqlutil"
)

// Select resolves the requested projection against the allow-list.
//
// An empty request selects the full allow-listed set (never *, which would
// expose columns outside the list). A non-empty request selects the
// intersection of requested and allow-listed fields, preserving allow-list
// order. If the intersection is empty the projection falls back to an
// unrestricted * — a documented leniency, not a typo check.
func Select(requested, allowed []string) []string {
	if len(requested) == 0 {
		return append([]string(nil), allowed...)
	}
	want := make(map[string]struct{}, len(requested))
	for _, f := range requested {
		f = strings.TrimSpace(f)
		if f != "" {
			want[f] = struct{}{}
		}
	}
	selected := make([]string, 0, len(want))
	for _, f := range allowed {
		if _, ok := want[f]; ok {
			selected = append(selected, f)
		}
	}
	if len(selected) == 0 {
		return []string{"*"}
	}
	return selected
}

// FromString splits a comma-separated field list.
func FromString(expr string) []string {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	parts := strings.Split(expr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Clause renders the projection as a SELECT list. The * fallback passes
// through unquoted.
func Clause(selected []string) string {
	if len(selected) == 0 {
		return "*"
	}
	quoted := make([]string, len(selected))
	for i, f := range selected {
		if f == "*" {
			quoted[i] = "*"
			continue
		}
		quoted[i] = sqlutil.QuoteQualified(f)
	}
	return strings.Join(quoted, ", ")
}
