package filter

import (
	"fmt"
	"strings"

	"restq/internal/binder"
	"restq/internal/sqlutil"
)

// Filter is one field/operator/value predicate.
type Filter struct {
	Field    string
	Operator Operator
	Values   []interface{}
}

// New builds a single-value filter.
func New(field string, op Operator, value interface{}) Filter {
	return Filter{Field: field, Operator: op, Values: []interface{}{value}}
}

// NewMulti builds a multi-value filter (in, between, key lists).
func NewMulti(field string, op Operator, values ...interface{}) Filter {
	return Filter{Field: field, Operator: op, Values: values}
}

// Value returns the first bound value, or nil when the filter carries none.
func (f Filter) Value() interface{} {
	if len(f.Values) == 0 {
		return nil
	}
	return f.Values[0]
}

// ToSQL renders the predicate as a SQL fragment, pushing bound values onto
// the shared binder so placeholder numbers stay consistent across the whole
// statement. IS [NOT] NULL binds nothing; IN binds one value per element;
// BETWEEN binds two; everything else binds exactly one.
func (f Filter) ToSQL(b *binder.Binder) (string, error) {
	col := sqlutil.QuoteQualified(f.Field)

	switch f.Operator {
	case OpIsNull:
		return col + " IS NULL", nil
	case OpIsNotNull:
		return col + " IS NOT NULL", nil

	case OpIn, OpNotIn:
		if len(f.Values) == 0 {
			return "", fmt.Errorf("filter %s: %s requires at least one value", f.Field, f.Operator)
		}
		placeholders := make([]string, len(f.Values))
		for i, v := range f.Values {
			placeholders[i] = b.Add(v)
		}
		token := "IN"
		if f.Operator == OpNotIn {
			token = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", col, token, strings.Join(placeholders, ", ")), nil

	case OpBetween, OpNotBetween:
		if len(f.Values) == 0 {
			return "", fmt.Errorf("filter %s: %s requires a value", f.Field, f.Operator)
		}
		// With fewer than two values the range degenerates to a plain
		// comparison on the first value instead of erroring.
		if len(f.Values) < 2 {
			token := "="
			if f.Operator == OpNotBetween {
				token = "!="
			}
			return fmt.Sprintf("%s %s %s", col, token, b.Add(f.Values[0])), nil
		}
		token := "BETWEEN"
		if f.Operator == OpNotBetween {
			token = "NOT BETWEEN"
		}
		lo := b.Add(f.Values[0])
		hi := b.Add(f.Values[1])
		return fmt.Sprintf("%s %s %s AND %s", col, token, lo, hi), nil

	case OpHasAnyKey, OpHasAllKeys:
		if len(f.Values) == 0 {
			return "", fmt.Errorf("filter %s: %s requires at least one key", f.Field, f.Operator)
		}
		keys := make([]string, len(f.Values))
		for i, v := range f.Values {
			keys[i] = b.Add(v)
		}
		token := "?|"
		if f.Operator == OpHasAllKeys {
			token = "?&"
		}
		return fmt.Sprintf("%s %s ARRAY[%s]", col, token, strings.Join(keys, ", ")), nil

	case OpSearch:
		if len(f.Values) == 0 {
			return "", fmt.Errorf("filter %s: search requires a value", f.Field)
		}
		return fmt.Sprintf("to_tsvector(%s) @@ plainto_tsquery(%s)", col, b.Add(f.Values[0])), nil
	}

	token := f.Operator.sqlToken()
	if token == "" {
		return "", fmt.Errorf("filter %s: unsupported operator %q", f.Field, f.Operator)
	}
	if len(f.Values) == 0 {
		return "", fmt.Errorf("filter %s: operator %s requires a value", f.Field, f.Operator)
	}
	return fmt.Sprintf("%s %s %s", col, token, b.Add(f.Values[0])), nil
}

// ParseParam interprets one request pair as a filter. The key is either a
// bare field name (implicit eq) or field[operator]. Multi-value operators
// split the raw value on commas. Unrecognized operator tokens report false
// and the pair is dropped by the caller.
func ParseParam(key, raw string) (Filter, bool) {
	field := key
	token := ""
	if i := strings.IndexByte(key, '['); i >= 0 && strings.HasSuffix(key, "]") {
		field = key[:i]
		token = key[i+1 : len(key)-1]
	}
	if field == "" {
		return Filter{}, false
	}

	op := OpEq
	if token != "" {
		parsed, ok := OperatorFromString(token)
		if !ok {
			return Filter{}, false
		}
		op = parsed
	}

	if op == OpIsNull || op == OpIsNotNull {
		return Filter{Field: field, Operator: op}, true
	}
	if op.MultiValued() {
		return Filter{Field: field, Operator: op, Values: splitValues(raw)}, true
	}
	return New(field, op, raw), true
}

func splitValues(raw string) []interface{} {
	parts := strings.Split(raw, ",")
	values := make([]interface{}, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		values = append(values, p)
	}
	return values
}
