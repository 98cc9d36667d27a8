// Package builder orchestrates the query compiler: it resolves a parsed
// request against an entity's allow-lists, assembles the parameterized
// SELECT/WHERE/ORDER BY/LIMIT statement, and executes it through a
// QueryExecutor with optional scope layering and result caching.
package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"restq/internal/binder"
	"restq/internal/dbexec"
	"restq/internal/entity"
	"restq/internal/fields"
	"restq/internal/filter"
	"restq/internal/logging"
	"restq/internal/pagination"
	"restq/internal/querycache"
	"restq/internal/relation"
	"restq/internal/scope"
	"restq/internal/sorting"
	"restq/internal/sqlutil"
)

// ErrInvalidRequest marks compilation failures caused by the request
// itself (a stale or mismatched cursor) rather than by configuration or
// execution. Callers map it to a client error.
var ErrInvalidRequest = errors.New("invalid query request")

// SQLQuery pairs SQL text with its ordered bind values.
type SQLQuery struct {
	SQL  string
	Args []interface{}
}

// Plan is a compiled, executable query. Count is zero-valued in cursor
// mode, which never computes totals.
type Plan struct {
	Query SQLQuery
	Count SQLQuery

	Fields          []string
	Sorts           []sorting.Sort
	Page            pagination.Request
	Includes        []*relation.Include
	DroppedIncludes []string

	// Backward reports that the window scans toward earlier rows (the
	// request carried a prev cursor): the statement's ORDER BY is
	// inverted and the fetched page is reversed back afterward.
	Backward bool
}

// Result is the response envelope: rows plus the metadata of whichever
// pagination mode produced them.
type Result struct {
	Data   []map[string]interface{} `json:"data"`
	Meta   *pagination.OffsetMeta   `json:"meta,omitempty"`
	Cursor *pagination.CursorMeta   `json:"cursor,omitempty"`
}

// QueryBuilder compiles requests for one entity. The zero value is not
// usable; construct with New. Fluent mutators return the receiver, so a
// builder is built once and used for one request.
type QueryBuilder struct {
	entity   *entity.Entity
	executor dbexec.QueryExecutor

	scopes     *scope.Resolver
	scopeNames []string
	extra      *filter.Group

	cache *querycache.Cache
}

// Option configures a QueryBuilder.
type Option func(*QueryBuilder)

// WithScopeResolver attaches the named-scope registry.
func WithScopeResolver(r *scope.Resolver) Option {
	return func(qb *QueryBuilder) { qb.scopes = r }
}

// WithCache enables result caching for offset-paginated queries.
func WithCache(c *querycache.Cache) Option {
	return func(qb *QueryBuilder) { qb.cache = c }
}

// New builds a QueryBuilder for the given entity and executor.
func New(e *entity.Entity, executor dbexec.QueryExecutor, opts ...Option) *QueryBuilder {
	qb := &QueryBuilder{entity: e, executor: executor}
	for _, opt := range opts {
		opt(qb)
	}
	return qb
}

// Scoped layers named scopes onto the query, combined with And in the
// given order. Unknown names are ignored by the resolver.
func (qb *QueryBuilder) Scoped(names ...string) *QueryBuilder {
	qb.scopeNames = append(qb.scopeNames, names...)
	return qb
}

// Where layers an ad hoc filter group onto the query, combined with And.
func (qb *QueryBuilder) Where(g *filter.Group) *QueryBuilder {
	if qb.extra == nil {
		qb.extra = g
		return qb
	}
	qb.extra = filter.NewAnd(qb.extra, g)
	return qb
}

// Compile resolves the request against the entity's allow-lists and
// assembles the parameterized statement. Compilation is pure: the same
// request compiles to byte-identical SQL and argument lists.
func (qb *QueryBuilder) Compile(req Request) (*Plan, error) {
	return qb.compile(req, true)
}

func (qb *QueryBuilder) compile(req Request, windowed bool) (*Plan, error) {
	e := qb.entity
	plan := &Plan{Page: req.Page}

	plan.Fields = fields.Select(req.FieldsFor(e.Name), e.Selectable)
	plan.Sorts = sorting.Allowed(req.Sorts, e.Sortable, e.DefaultSort)

	kept, dropped := relation.FilterRoots(req.Includes, e.RelationNames())
	plan.DroppedIncludes = dropped
	// Request trees stay immutable: per-relation overrides from the
	// request are annotated onto copies of the kept roots.
	plan.Includes = make([]*relation.Include, len(kept))
	for i, inc := range kept {
		annotated := *inc
		if fs, ok := req.FieldsByResource[annotated.Relation]; ok {
			annotated.Fields = fs
		}
		if len(annotated.Sorts) == 0 {
			annotated.Sorts = req.SortsFor(annotated.Relation)
		}
		plan.Includes[i] = &annotated
	}

	b := binder.New()
	var whereParts []string

	if group := qb.combinedFilters(req); group != nil {
		if clause := group.ToSQL(e.FilterAllow(), b); clause != "" {
			whereParts = append(whereParts, clause)
		}
	}

	// Relationship-level constraints apply whenever the relation is
	// pulled into the query; an include-level filter tightens them
	// further. Each clause arrives numbered from $1, so it is renumbered
	// past the binder's current position before its arguments join the
	// queue.
	for _, inc := range plan.Includes {
		rel, ok := e.Relationship(inc.Relation)
		if !ok {
			continue
		}
		if inc.Filter != nil {
			if rel.Constraints == nil {
				rel.Constraints = inc.Filter
			} else {
				rel.Constraints = filter.NewAnd(rel.Constraints, inc.Filter)
			}
		}
		if rel.Constraints == nil {
			continue
		}
		clause, args, err := rel.ConstraintClause(e.Table)
		if err != nil {
			return nil, fmt.Errorf("relationship %s: %w", inc.Relation, err)
		}
		whereParts = append(whereParts, sqlutil.RenumberPlaceholders(clause, b.Len()))
		for _, arg := range args {
			b.Add(arg)
		}
	}

	if req.Page.Mode == pagination.ModeCursor && req.Page.Cursor != "" {
		seek, backward, err := qb.seekClause(req.Page.Cursor, plan.Sorts, b)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		whereParts = append(whereParts, seek)
		plan.Backward = backward
	}

	base := "SELECT " + fields.Clause(plan.Fields) + " FROM " + sqlutil.QuoteIdentifier(e.Table)
	countBase := "SELECT COUNT(*) FROM " + sqlutil.QuoteIdentifier(e.Table)
	if len(whereParts) > 0 {
		where := " WHERE " + strings.Join(whereParts, " AND ")
		base += where
		countBase += where
	}
	orderSorts := plan.Sorts
	if plan.Backward {
		orderSorts = invertSorts(plan.Sorts)
	}
	if orderBy := sorting.OrderByClause(orderSorts); orderBy != "" {
		base += " ORDER BY " + orderBy
	}

	args := b.Args()
	if windowed {
		switch req.Page.Mode {
		case pagination.ModeCursor:
			// One extra row detects whether a further page exists.
			base += fmt.Sprintf(" LIMIT %d", req.Page.PerPage+1)
		default:
			limit, offset := req.Page.LimitOffset()
			base += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
			plan.Count = SQLQuery{SQL: countBase, Args: args}
		}
	}
	plan.Query = SQLQuery{SQL: base, Args: args}
	return plan, nil
}

// combinedFilters layers resolved scopes, the builder's ad hoc group,
// and the request's filter tree into one And group.
func (qb *QueryBuilder) combinedFilters(req Request) *filter.Group {
	adHoc := qb.extra
	switch {
	case adHoc == nil:
		adHoc = req.Filters
	case req.Filters != nil:
		adHoc = filter.NewAnd(adHoc, req.Filters)
	}

	resolver := qb.scopes
	if resolver == nil {
		resolver = scope.NewResolver(nil)
	}
	return scope.NewBuilder(resolver).
		Scope(qb.scopeNames...).
		With(adHoc).
		Build()
}

// seekClause translates an opaque cursor into the keyset predicate for
// the current sort: a disjunction of "prior columns equal, this column
// past the boundary" terms, one per sort key. A prev cursor seeks before
// its boundary instead of past it; the second return reports that
// backward traversal so the caller inverts the scan.
func (qb *QueryBuilder) seekClause(cursor string, sorts []sorting.Sort, b *binder.Binder) (string, bool, error) {
	if len(sorts) == 0 {
		return "", false, fmt.Errorf("cursor pagination requires a sort")
	}
	entityName, sortKey, direction, values, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return "", false, err
	}
	expectedKey := pagination.SortKey(sorts)
	if err := pagination.ValidateCursor(qb.entity.Name, expectedKey, entityName, sortKey, len(sorts), len(values)); err != nil {
		return "", false, err
	}
	backward := direction == pagination.CursorPrev

	disjuncts := make([]string, len(sorts))
	for i, s := range sorts {
		terms := make([]string, 0, i+1)
		for j := 0; j < i; j++ {
			terms = append(terms, sqlutil.QuoteQualified(sorts[j].Field)+" = "+b.AddSmart(values[j]))
		}
		op := ">"
		if (s.Direction == sorting.Desc) != backward {
			op = "<"
		}
		terms = append(terms, sqlutil.QuoteQualified(s.Field)+" "+op+" "+b.AddSmart(values[i]))
		if len(terms) == 1 {
			disjuncts[i] = terms[0]
		} else {
			disjuncts[i] = "(" + strings.Join(terms, " AND ") + ")"
		}
	}
	if len(disjuncts) == 1 {
		return disjuncts[0], backward, nil
	}
	return "(" + strings.Join(disjuncts, " OR ") + ")", backward, nil
}

// invertSorts flips every direction so a backward window scans toward
// earlier rows. The fetched page is reversed back to natural order.
func invertSorts(sorts []sorting.Sort) []sorting.Sort {
	out := make([]sorting.Sort, len(sorts))
	for i, s := range sorts {
		d := sorting.Asc
		if s.Direction == sorting.Asc {
			d = sorting.Desc
		}
		out[i] = sorting.Sort{Field: s.Field, Direction: d}
	}
	return out
}

// Paginate compiles and executes the request, returning the envelope of
// whichever pagination mode it named. Offset mode issues a COUNT and a
// windowed SELECT; cursor mode issues one SELECT and translates the
// boundary rows into next/prev tokens.
func (qb *QueryBuilder) Paginate(ctx context.Context, req Request) (*Result, error) {
	log := logging.FromContext(ctx)

	plan, err := qb.Compile(req)
	if err != nil {
		return nil, err
	}
	if len(plan.DroppedIncludes) > 0 {
		log.Warn("dropped invalid include roots",
			"entity", qb.entity.Name, "roots", strings.Join(plan.DroppedIncludes, ","))
	}

	cacheKey := ""
	if qb.cache != nil && plan.Page.Mode == pagination.ModeOffset {
		cacheKey = qb.cacheKey(req, plan)
		var cached Result
		hit, err := qb.cache.Get(cacheKey, &cached)
		if err != nil {
			return nil, err
		}
		if hit {
			log.Debug("query cache hit", "entity", qb.entity.Name, "key", cacheKey)
			return &cached, nil
		}
	}

	var result *Result
	if plan.Page.Mode == pagination.ModeCursor {
		result, err = qb.runCursor(ctx, plan)
	} else {
		result, err = qb.runOffset(ctx, plan)
	}
	if err != nil {
		return nil, err
	}

	if cacheKey != "" {
		if err := qb.cache.Set(cacheKey, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Get compiles and executes the request without any pagination window.
// There is no internal size cap; callers bound result size externally.
func (qb *QueryBuilder) Get(ctx context.Context, req Request) ([]map[string]interface{}, error) {
	req.Page = pagination.Request{}.Normalize()
	plan, err := qb.compile(req, false)
	if err != nil {
		return nil, err
	}
	if len(plan.DroppedIncludes) > 0 {
		logging.FromContext(ctx).Warn("dropped invalid include roots",
			"entity", qb.entity.Name, "roots", strings.Join(plan.DroppedIncludes, ","))
	}
	return qb.fetch(ctx, plan.Query)
}

func (qb *QueryBuilder) runOffset(ctx context.Context, plan *Plan) (*Result, error) {
	total, err := qb.count(ctx, plan.Count)
	if err != nil {
		return nil, err
	}
	rows, err := qb.fetch(ctx, plan.Query)
	if err != nil {
		return nil, err
	}
	meta := pagination.NewOffsetMeta(plan.Page.Page, plan.Page.PerPage, total)
	return &Result{Data: rows, Meta: &meta}, nil
}

func (qb *QueryBuilder) runCursor(ctx context.Context, plan *Plan) (*Result, error) {
	rows, err := qb.fetch(ctx, plan.Query)
	if err != nil {
		return nil, err
	}

	hasMore := len(rows) > plan.Page.PerPage
	if hasMore {
		rows = rows[:plan.Page.PerPage]
	}
	if plan.Backward {
		// The backward scan fetched in inverted order.
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}

	meta := pagination.CursorMeta{}
	sortKey := pagination.SortKey(plan.Sorts)
	if len(rows) > 0 {
		first, last := rows[0], rows[len(rows)-1]
		if plan.Backward {
			// Arriving from a later page: rows after this window always
			// exist; rows before it only when the scan found an extra.
			next := qb.rowCursor(last, plan.Sorts, sortKey, pagination.CursorNext)
			meta.NextCursor = &next
			if hasMore {
				prev := qb.rowCursor(first, plan.Sorts, sortKey, pagination.CursorPrev)
				meta.PrevCursor = &prev
			}
		} else {
			if hasMore {
				next := qb.rowCursor(last, plan.Sorts, sortKey, pagination.CursorNext)
				meta.NextCursor = &next
			}
			if plan.Page.Cursor != "" {
				prev := qb.rowCursor(first, plan.Sorts, sortKey, pagination.CursorPrev)
				meta.PrevCursor = &prev
			}
		}
	}
	return &Result{Data: rows, Cursor: &meta}, nil
}

// rowCursor encodes a boundary row's sort-column values as a token.
func (qb *QueryBuilder) rowCursor(row map[string]interface{}, sorts []sorting.Sort, sortKey, direction string) string {
	values := make([]interface{}, len(sorts))
	for i, s := range sorts {
		values[i] = row[s.Field]
	}
	return pagination.EncodeCursor(qb.entity.Name, sortKey, direction, values...)
}

func (qb *QueryBuilder) cacheKey(req Request, plan *Plan) string {
	sorts := make([]string, len(plan.Sorts))
	for i, s := range plan.Sorts {
		sorts[i] = s.Field + ":" + strings.ToLower(string(s.Direction))
	}
	return querycache.BuildKey(querycache.KeySpec{
		Table:    qb.entity.Table,
		Scopes:   qb.scopeNames,
		Extra:    qb.extraKey(),
		Filters:  req.RawFilters,
		Sorts:    sorts,
		Fields:   plan.Fields,
		Includes: includeKeys(plan.Includes),
		Page:     plan.Page.Page,
		PerPage:  plan.Page.PerPage,
	})
}

// extraKey renders the builder's ad hoc filter group canonically.
// Builders layering different programmatic WHERE clauses over a shared
// cache must never collide on a key.
func (qb *QueryBuilder) extraKey() string {
	if qb.extra == nil {
		return ""
	}
	b := binder.New()
	clause := qb.extra.ToSQL(qb.entity.FilterAllow(), b)
	if clause == "" {
		return ""
	}
	return clause + fmt.Sprintf("%v", b.Args())
}

// includeKeys renders the include forest for cache keying: the dotted
// paths plus any per-relation overrides, which change the shaped
// response.
func includeKeys(includes []*relation.Include) []string {
	keys := relation.Flatten(includes)
	for _, inc := range includes {
		if len(inc.Fields) > 0 {
			keys = append(keys, inc.Relation+"{"+strings.Join(inc.Fields, ",")+"}")
		}
		if len(inc.Sorts) > 0 {
			keys = append(keys, inc.Relation+"<"+pagination.SortKey(inc.Sorts)+">")
		}
	}
	return keys
}

func (qb *QueryBuilder) count(ctx context.Context, q SQLQuery) (int, error) {
	rows, err := qb.executor.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	defer rows.Close()

	total := 0
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			return 0, fmt.Errorf("count scan: %w", err)
		}
	}
	return total, rows.Err()
}

func (qb *QueryBuilder) fetch(ctx context.Context, q SQLQuery) ([]map[string]interface{}, error) {
	rows, err := qb.executor.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// scanRows materializes the result set as column-keyed maps. Byte slices
// become strings so the rows JSON-serialize cleanly.
func scanRows(rows dbexec.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	out := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ConstraintClause is an independently numbered SQL fragment with its
// bind values, as produced by Relationship.ConstraintClause.
type ConstraintClause struct {
	SQL  string
	Args []interface{}
}

// MergeConstraintClauses renumbers and joins independently numbered
// clauses into one And fragment whose placeholder numbers match the
// combined argument list. Merging without renumbering would collide
// every clause's $1.
func MergeConstraintClauses(clauses ...ConstraintClause) (string, []interface{}) {
	parts := make([]string, 0, len(clauses))
	var args []interface{}
	for _, c := range clauses {
		parts = append(parts, sqlutil.RenumberPlaceholders(c.SQL, len(args)))
		args = append(args, c.Args...)
	}
	return strings.Join(parts, " AND "), args
}
