package filter

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"restq/internal/binder"
	"restq/internal/sqlutil"

	sq "github.com/Masterminds/squirrel"
)

// BoolOp is the boolean connective of a Group.
type BoolOp string

const (
	And BoolOp = "AND"
	Or  BoolOp = "OR"
)

// Condition is a node in a filter tree: either a Filter leaf or a nested
// *Group. The interface is sealed to this package.
type Condition interface {
	isCondition()
}

func (Filter) isCondition() {}
func (*Group) isCondition() {}

// Group is a boolean tree of filters and nested groups.
type Group struct {
	Op         BoolOp
	Conditions []Condition
}

// NewAnd builds an AND group over the given conditions.
func NewAnd(conditions ...Condition) *Group {
	return &Group{Op: And, Conditions: conditions}
}

// NewOr builds an OR group over the given conditions.
func NewOr(conditions ...Condition) *Group {
	return &Group{Op: Or, Conditions: conditions}
}

// AllowList is the set of field names an entity permits for filtering.
type AllowList map[string]struct{}

// NewAllowList builds an AllowList from field names.
func NewAllowList(fields ...string) AllowList {
	set := make(AllowList, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Allows reports whether the field may be filtered on.
func (a AllowList) Allows(field string) bool {
	_, ok := a[field]
	return ok
}

// ToSQL renders the tree into one SQL fragment, binding values through the
// shared binder so nested groups keep placeholder numbers consistent with
// the surrounding statement. Leaves whose field is not allow-listed, and
// leaves that fail to render, are dropped rather than failing the tree.
// An empty tree renders to the empty string; a single surviving condition
// is emitted unwrapped; multiple conditions are parenthesized and joined
// by the group's connective.
func (g *Group) ToSQL(allowed AllowList, b *binder.Binder) string {
	if g == nil {
		return ""
	}
	fragments := make([]string, 0, len(g.Conditions))
	for _, cond := range g.Conditions {
		switch c := cond.(type) {
		case Filter:
			if !allowed.Allows(c.Field) {
				continue
			}
			frag, err := c.ToSQL(b)
			if err != nil {
				continue
			}
			fragments = append(fragments, frag)
		case *Group:
			if frag := c.ToSQL(allowed, b); frag != "" {
				fragments = append(fragments, frag)
			}
		}
	}

	switch len(fragments) {
	case 0:
		return ""
	case 1:
		return fragments[0]
	}
	return "(" + strings.Join(fragments, " "+string(g.Op)+" ") + ")"
}

// ToSqlizer converts the tree into a squirrel condition for callers that
// assemble statements with squirrel (relationship constraint clauses).
// The same allow-list and drop policy as ToSQL applies. The second return
// is false when nothing survives.
func (g *Group) ToSqlizer(allowed AllowList) (sq.Sqlizer, bool) {
	if g == nil {
		return nil, false
	}
	conds := make([]sq.Sqlizer, 0, len(g.Conditions))
	for _, cond := range g.Conditions {
		switch c := cond.(type) {
		case Filter:
			if !allowed.Allows(c.Field) {
				continue
			}
			if s, ok := filterSqlizer(c); ok {
				conds = append(conds, s)
			}
		case *Group:
			if s, ok := c.ToSqlizer(allowed); ok {
				conds = append(conds, s)
			}
		}
	}
	switch len(conds) {
	case 0:
		return nil, false
	case 1:
		return conds[0], true
	}
	if g.Op == Or {
		return sq.Or(conds), true
	}
	return sq.And(conds), true
}

func filterSqlizer(f Filter) (sq.Sqlizer, bool) {
	col := sqlutil.QuoteQualified(f.Field)
	switch f.Operator {
	case OpEq:
		return sq.Eq{col: f.Value()}, true
	case OpNe:
		return sq.NotEq{col: f.Value()}, true
	case OpGt:
		return sq.Gt{col: f.Value()}, true
	case OpGte:
		return sq.GtOrEq{col: f.Value()}, true
	case OpLt:
		return sq.Lt{col: f.Value()}, true
	case OpLte:
		return sq.LtOrEq{col: f.Value()}, true
	case OpLike:
		return sq.Like{col: f.Value()}, true
	case OpNotLike:
		return sq.NotLike{col: f.Value()}, true
	case OpILike:
		return sq.ILike{col: f.Value()}, true
	case OpNotILike:
		return sq.NotILike{col: f.Value()}, true
	case OpIn:
		return sq.Eq{col: f.Values}, true
	case OpNotIn:
		return sq.NotEq{col: f.Values}, true
	case OpIsNull:
		return sq.Eq{col: nil}, true
	case OpIsNotNull:
		return sq.NotEq{col: nil}, true
	case OpBetween:
		if len(f.Values) < 2 {
			return sq.Eq{col: f.Value()}, true
		}
		return sq.Expr(col+" BETWEEN ? AND ?", f.Values[0], f.Values[1]), true
	case OpNotBetween:
		if len(f.Values) < 2 {
			return sq.NotEq{col: f.Value()}, true
		}
		return sq.Expr(col+" NOT BETWEEN ? AND ?", f.Values[0], f.Values[1]), true
	}
	return nil, false
}

// groupItemPattern matches indexed bracket keys inside a filter block:
// and[0][field], and[0][op], and[0][value], mirrored for or.
var groupItemPattern = regexp.MustCompile(`^(and|or)\[(\d+)\]\[(field|op|value)\]$`)

// ParseQuery folds a flat filter parameter map (keys with the leading
// "filter" segment already stripped) into one filter tree.
//
// Bare keys use the field[operator]=value syntax from ParseParam. Indexed
// keys build explicit groups: filter[and][0][field]=..., [op], [value]
// (likewise for or). Simple filters and an and-block merge into the same
// AND group; when an or-block is also present the top level is an AND of
// the two resolved groups. Nil is returned when nothing survives parsing.
func ParseQuery(params map[string]string) *Group {
	type item struct {
		field, op, value string
	}
	blocks := map[string]map[int]*item{"and": {}, "or": {}}
	simpleKeys := make([]string, 0, len(params))

	for key := range params {
		if m := groupItemPattern.FindStringSubmatch(key); m != nil {
			idx, _ := strconv.Atoi(m[2])
			it := blocks[m[1]][idx]
			if it == nil {
				it = &item{}
				blocks[m[1]][idx] = it
			}
			switch m[3] {
			case "field":
				it.field = params[key]
			case "op":
				it.op = params[key]
			case "value":
				it.value = params[key]
			}
			continue
		}
		simpleKeys = append(simpleKeys, key)
	}
	// Map iteration order is random; sorted keys keep compilation idempotent.
	sort.Strings(simpleKeys)

	buildBlock := func(name string, op BoolOp) *Group {
		items := blocks[name]
		if len(items) == 0 {
			return nil
		}
		indexes := make([]int, 0, len(items))
		for idx := range items {
			indexes = append(indexes, idx)
		}
		sort.Ints(indexes)

		conditions := make([]Condition, 0, len(items))
		for _, idx := range indexes {
			it := items[idx]
			if it.field == "" {
				continue
			}
			key := it.field
			if it.op != "" {
				key = fmt.Sprintf("%s[%s]", it.field, it.op)
			}
			if f, ok := ParseParam(key, it.value); ok {
				conditions = append(conditions, f)
			}
		}
		if len(conditions) == 0 {
			return nil
		}
		return &Group{Op: op, Conditions: conditions}
	}

	andConditions := make([]Condition, 0, len(simpleKeys))
	for _, key := range simpleKeys {
		if f, ok := ParseParam(key, params[key]); ok {
			andConditions = append(andConditions, f)
		}
	}
	if andBlock := buildBlock("and", And); andBlock != nil {
		andConditions = append(andConditions, andBlock.Conditions...)
	}
	orBlock := buildBlock("or", Or)

	switch {
	case len(andConditions) == 0 && orBlock == nil:
		return nil
	case len(andConditions) == 0:
		return orBlock
	case orBlock == nil:
		return NewAnd(andConditions...)
	}
	return NewAnd(append(andConditions, orBlock)...)
}

// Builder accumulates conditions before finalizing into a group.
type Builder struct {
	conditions []Condition
}

// NewBuilder returns an empty fluent group builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Where appends a filter leaf.
func (b *Builder) Where(field string, op Operator, value interface{}) *Builder {
	b.conditions = append(b.conditions, New(field, op, value))
	return b
}

// WhereFilter appends a pre-built filter leaf.
func (b *Builder) WhereFilter(f Filter) *Builder {
	b.conditions = append(b.conditions, f)
	return b
}

// WhereGroup appends a nested group.
func (b *Builder) WhereGroup(g *Group) *Builder {
	if g != nil {
		b.conditions = append(b.conditions, g)
	}
	return b
}

// ToAnd finalizes the accumulated conditions as an AND group.
func (b *Builder) ToAnd() *Group {
	return NewAnd(b.conditions...)
}

// ToOr finalizes the accumulated conditions as an OR group.
func (b *Builder) ToOr() *Group {
	return NewOr(b.conditions...)
}
