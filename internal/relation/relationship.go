// Package relation describes how one entity's rows relate to another's —
// direct key, pivot-mediated, multi-hop through, or polymorphic morph —
// and renders relationship constraints as correlated SQL predicates.
package relation

import (
	"fmt"

	"restq/internal/filter"
	"restq/internal/sqlutil"

	sq "github.com/Masterminds/squirrel"
	"github.com/jinzhu/inflection"
)

// Kind tags the relationship variant.
type Kind string

const (
	HasOne         Kind = "has_one"
	HasMany        Kind = "has_many"
	BelongsTo      Kind = "belongs_to"
	BelongsToMany  Kind = "belongs_to_many"
	HasOneThrough  Kind = "has_one_through"
	HasManyThrough Kind = "has_many_through"
	MorphTo        Kind = "morph_to"
	MorphOne       Kind = "morph_one"
	MorphMany      Kind = "morph_many"
	MorphToMany    Kind = "morph_to_many"
)

// PivotSpec describes the junction table of a many-to-many relationship.
type PivotSpec struct {
	Table      string
	LocalKey   string // pivot column referencing the owner
	ForeignKey string // pivot column referencing the target
	// TypeColumn carries the owner type for morph-to-many pivots.
	TypeColumn string
}

// ThroughSpec describes the intermediate hop of a through relationship.
type ThroughSpec struct {
	Table     string
	FirstKey  string // intermediate column referencing the owner
	SecondKey string // target column referencing the intermediate
	LocalKey  string // intermediate key the target points at
}

// MorphSpec names the polymorphic type/id column pair and the owner's
// type literal stored in the type column.
type MorphSpec struct {
	TypeColumn string
	IDColumn   string
	TypeValue  string
}

// Relationship is a typed association descriptor. LocalKey and ForeignKey
// follow the variant's shape from the table in the package documentation;
// Pivot, Through, and Morph are set only for the variants that need them.
type Relationship struct {
	Kind       Kind
	Name       string
	Table      string // target table
	LocalKey   string
	ForeignKey string
	Pivot      *PivotSpec
	Through    *ThroughSpec
	Morph      *MorphSpec

	// Constraints is an optional embedded filter group applied to the
	// target rows, checked against ConstraintAllow at render time.
	Constraints     *filter.Group
	ConstraintAllow filter.AllowList
}

// DefaultForeignKey derives the conventional foreign key column for a
// table: singularized table name plus _id (users -> user_id).
func DefaultForeignKey(table string) string {
	return inflection.Singular(table) + "_id"
}

// DefaultPivotTable derives the conventional pivot table for two tables:
// both singularized, joined in lexical order (posts, tags -> post_tag).
func DefaultPivotTable(a, b string) string {
	as, bs := inflection.Singular(a), inflection.Singular(b)
	if bs < as {
		as, bs = bs, as
	}
	return as + "_" + bs
}

// ConstraintClause renders the relationship as a correlated EXISTS
// predicate against the owner table, embedded constraints included.
//
// The clause is numbered independently, starting at $1: merging several
// clauses into one statement requires renumbering by the orchestrator
// (sqlutil.RenumberPlaceholders); no automatic merge happens here.
func (r Relationship) ConstraintClause(ownerTable string) (string, []interface{}, error) {
	sub, err := r.subquery(ownerTable)
	if err != nil {
		return "", nil, err
	}
	sql, args, err := sub.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return "", nil, err
	}
	return "EXISTS (" + sqlutil.QuestionToDollar(sql, 0) + ")", args, nil
}

func (r Relationship) subquery(ownerTable string) (sq.SelectBuilder, error) {
	owner := sqlutil.QuoteIdentifier(ownerTable)
	target := sqlutil.QuoteIdentifier(r.Table)
	col := func(table, name string) string {
		return table + "." + sqlutil.QuoteIdentifier(name)
	}

	var b sq.SelectBuilder
	switch r.Kind {
	case HasOne, HasMany:
		if r.LocalKey == "" || r.ForeignKey == "" {
			return b, fmt.Errorf("relationship %s: missing key mapping", r.Name)
		}
		b = sq.Select("1").From(target).
			Where(sq.Expr(col(target, r.ForeignKey) + " = " + col(owner, r.LocalKey)))

	case BelongsTo:
		if r.LocalKey == "" || r.ForeignKey == "" {
			return b, fmt.Errorf("relationship %s: missing key mapping", r.Name)
		}
		b = sq.Select("1").From(target).
			Where(sq.Expr(col(target, r.LocalKey) + " = " + col(owner, r.ForeignKey)))

	case BelongsToMany:
		if r.Pivot == nil {
			return b, fmt.Errorf("relationship %s: missing pivot spec", r.Name)
		}
		pivot := sqlutil.QuoteIdentifier(r.Pivot.Table)
		b = sq.Select("1").From(pivot).
			Join(fmt.Sprintf("%s ON %s = %s",
				target, col(pivot, r.Pivot.ForeignKey), col(target, r.ForeignKey))).
			Where(sq.Expr(col(pivot, r.Pivot.LocalKey) + " = " + col(owner, r.LocalKey)))

	case HasOneThrough, HasManyThrough:
		if r.Through == nil {
			return b, fmt.Errorf("relationship %s: missing through spec", r.Name)
		}
		mid := sqlutil.QuoteIdentifier(r.Through.Table)
		b = sq.Select("1").From(target).
			Join(fmt.Sprintf("%s ON %s = %s",
				mid, col(target, r.Through.SecondKey), col(mid, r.Through.LocalKey))).
			Where(sq.Expr(col(mid, r.Through.FirstKey) + " = " + col(owner, r.LocalKey)))

	case MorphTo:
		if r.Morph == nil {
			return b, fmt.Errorf("relationship %s: missing morph spec", r.Name)
		}
		// The owner row carries the (type, id) pair pointing at the target.
		b = sq.Select("1").From(target).
			Where(sq.Expr(col(target, r.LocalKey) + " = " + col(owner, r.Morph.IDColumn))).
			Where(sq.Expr(col(owner, r.Morph.TypeColumn)+" = ?", r.Morph.TypeValue))

	case MorphOne, MorphMany:
		if r.Morph == nil {
			return b, fmt.Errorf("relationship %s: missing morph spec", r.Name)
		}
		b = sq.Select("1").From(target).
			Where(sq.Expr(col(target, r.Morph.IDColumn) + " = " + col(owner, r.LocalKey))).
			Where(sq.Expr(col(target, r.Morph.TypeColumn)+" = ?", r.Morph.TypeValue))

	case MorphToMany:
		if r.Pivot == nil || r.Morph == nil {
			return b, fmt.Errorf("relationship %s: missing pivot or morph spec", r.Name)
		}
		pivot := sqlutil.QuoteIdentifier(r.Pivot.Table)
		b = sq.Select("1").From(pivot).
			Join(fmt.Sprintf("%s ON %s = %s",
				target, col(pivot, r.Pivot.ForeignKey), col(target, r.ForeignKey))).
			Where(sq.Expr(col(pivot, r.Pivot.LocalKey) + " = " + col(owner, r.LocalKey))).
			Where(sq.Expr(col(pivot, r.Pivot.TypeColumn)+" = ?", r.Morph.TypeValue))

	default:
		return b, fmt.Errorf("relationship %s: unknown kind %q", r.Name, r.Kind)
	}

	if r.Constraints != nil {
		if cond, ok := r.Constraints.ToSqlizer(r.ConstraintAllow); ok {
			b = b.Where(cond)
		}
	}
	return b, nil
}
