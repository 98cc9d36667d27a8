// Package sorting parses request sort expressions into ORDER BY clauses.
package sorting

import (
	"strings"

	"restq/internal/sqlutil"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Sort is one field plus direction.
type Sort struct {
	Field     string
	Direction Direction
}

// FromString parses a comma-separated sort expression. Accepted forms per
// key: "field" (ascending), "-field"/"+field" (prefix sign), "field:asc",
// "field:desc". Blank and unparsable keys are skipped. An empty expression
// yields an empty list.
func FromString(expr string) []Sort {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	parts := strings.Split(expr, ",")
	sorts := make([]Sort, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if s, ok := parseKey(part); ok {
			sorts = append(sorts, s)
		}
	}
	return sorts
}

func parseKey(key string) (Sort, bool) {
	direction := Asc
	switch {
	case strings.HasPrefix(key, "-"):
		direction = Desc
		key = key[1:]
	case strings.HasPrefix(key, "+"):
		key = key[1:]
	}
	if field, suffix, found := strings.Cut(key, ":"); found {
		switch strings.ToLower(strings.TrimSpace(suffix)) {
		case "asc":
			direction = Asc
		case "desc":
			direction = Desc
		default:
			return Sort{}, false
		}
		key = field
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return Sort{}, false
	}
	return Sort{Field: key, Direction: direction}, true
}

// Allowed filters the list down to allow-listed fields, dropping
// disallowed entries individually. If nothing survives, the fallback
// (the entity's configured default) is substituted so offset pages keep
// deterministic boundaries.
func Allowed(sorts []Sort, allowed []string, fallback *Sort) []Sort {
	set := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		set[f] = struct{}{}
	}
	kept := make([]Sort, 0, len(sorts))
	for _, s := range sorts {
		if _, ok := set[s.Field]; ok {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 && fallback != nil {
		return []Sort{*fallback}
	}
	return kept
}

// OrderByClause renders the list as the body of an ORDER BY clause.
// An empty list renders to the empty string.
func OrderByClause(sorts []Sort) string {
	if len(sorts) == 0 {
		return ""
	}
	clauses := make([]string, len(sorts))
	for i, s := range sorts {
		clauses[i] = sqlutil.QuoteQualified(s.Field) + " " + string(s.Direction)
	}
	return strings.Join(clauses, ", ")
}
