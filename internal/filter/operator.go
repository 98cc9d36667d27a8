// Package filter parses untrusted request filters into predicate trees and
// renders them as parameterized SQL. Parsing is best-effort: tokens that do
// not resolve to a known operator or an allow-listed field are dropped so a
// single malformed condition never fails the whole query.
package filter

import "strings"

// Operator identifies a comparison in the closed predicate vocabulary.
type Operator string

const (
	OpEq          Operator = "eq"
	OpNe          Operator = "ne"
	OpGt          Operator = "gt"
	OpGte         Operator = "gte"
	OpLt          Operator = "lt"
	OpLte         Operator = "lte"
	OpLike        Operator = "like"
	OpNotLike     Operator = "not_like"
	OpILike       Operator = "ilike"
	OpNotILike    Operator = "not_ilike"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpIsNull      Operator = "is_null"
	OpIsNotNull   Operator = "is_not_null"
	OpBetween     Operator = "between"
	OpNotBetween  Operator = "not_between"
	OpContains    Operator = "contains"
	OpContainedBy Operator = "contained_by"
	OpHasKey      Operator = "has_key"
	OpHasAnyKey   Operator = "has_any_key"
	OpHasAllKeys  Operator = "has_all_keys"
	OpSearch      Operator = "search"
)

// operatorTokens maps every accepted token (canonical names plus symbolic
// synonyms) to its operator. Lookup is case-insensitive.
var operatorTokens = map[string]Operator{
	"eq":           OpEq,
	"=":            OpEq,
	"ne":           OpNe,
	"neq":          OpNe,
	"!=":           OpNe,
	"<>":           OpNe,
	"gt":           OpGt,
	">":            OpGt,
	"gte":          OpGte,
	">=":           OpGte,
	"lt":           OpLt,
	"<":            OpLt,
	"lte":          OpLte,
	"<=":           OpLte,
	"like":         OpLike,
	"not_like":     OpNotLike,
	"notlike":      OpNotLike,
	"ilike":        OpILike,
	"not_ilike":    OpNotILike,
	"notilike":     OpNotILike,
	"in":           OpIn,
	"not_in":       OpNotIn,
	"notin":        OpNotIn,
	"is_null":      OpIsNull,
	"null":         OpIsNull,
	"is_not_null":  OpIsNotNull,
	"not_null":     OpIsNotNull,
	"notnull":      OpIsNotNull,
	"between":      OpBetween,
	"not_between":  OpNotBetween,
	"notbetween":   OpNotBetween,
	"contains":     OpContains,
	"contained_by": OpContainedBy,
	"has_key":      OpHasKey,
	"has_any_key":  OpHasAnyKey,
	"has_all_keys": OpHasAllKeys,
	"search":       OpSearch,
}

// OperatorFromString resolves an operator token case-insensitively,
// including symbolic synonyms (=, >=, <>). Unknown tokens report false.
func OperatorFromString(token string) (Operator, bool) {
	op, ok := operatorTokens[strings.ToLower(strings.TrimSpace(token))]
	return op, ok
}

// sqlToken returns the SQL comparison token for the operator. Operators
// with dedicated emission shapes (IN, BETWEEN, NULL checks, JSON, search)
// are handled in Filter.ToSQL and do not appear here.
func (op Operator) sqlToken() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpLike:
		return "LIKE"
	case OpNotLike:
		return "NOT LIKE"
	case OpILike:
		return "ILIKE"
	case OpNotILike:
		return "NOT ILIKE"
	case OpContains:
		return "@>"
	case OpContainedBy:
		return "<@"
	case OpHasKey:
		return "?"
	}
	return ""
}

// MultiValued reports whether the operator consumes a list of values.
func (op Operator) MultiValued() bool {
	switch op {
	case OpIn, OpNotIn, OpBetween, OpNotBetween, OpHasAnyKey, OpHasAllKeys:
		return true
	}
	return false
}
