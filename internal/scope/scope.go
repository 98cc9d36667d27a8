// Package scope provides named, reusable filter-group factories.
// A Resolver is built once at startup and is immutable afterwards, so it
// can be shared across requests without locking.
package scope

import (
	"time"

	"restq/internal/filter"
)

// Factory produces a fresh filter group each time the scope is applied.
// Time-relative scopes evaluate their window at call time.
type Factory func() *filter.Group

// Resolver maps scope names to factories.
type Resolver struct {
	scopes map[string]Factory
}

// NewResolver builds a resolver over the given scope set. The map is
// copied; the resolver never mutates after construction.
func NewResolver(scopes map[string]Factory) *Resolver {
	copied := make(map[string]Factory, len(scopes))
	for name, factory := range scopes {
		copied[name] = factory
	}
	return &Resolver{scopes: copied}
}

// NewDefaultResolver builds a resolver preloaded with the built-in scopes.
// recentWindow controls how far back the "recent" scope reaches.
func NewDefaultResolver(recentWindow time.Duration) *Resolver {
	if recentWindow <= 0 {
		recentWindow = 7 * 24 * time.Hour
	}
	return NewResolver(map[string]Factory{
		"active":      Active,
		"recent":      Recent(recentWindow),
		"published":   Published,
		"archived":    Archived,
		"not_deleted": NotDeleted,
	})
}

// Names returns the registered scope names, for diagnostics.
func (r *Resolver) Names() []string {
	names := make([]string, 0, len(r.scopes))
	for name := range r.scopes {
		names = append(names, name)
	}
	return names
}

// Resolve combines the named scopes with AND in request order. Unknown
// names are ignored. Returns nil when nothing resolves, and the group
// unwrapped when exactly one scope resolves.
func (r *Resolver) Resolve(names ...string) *filter.Group {
	conditions := make([]filter.Condition, 0, len(names))
	for _, name := range names {
		factory, ok := r.scopes[name]
		if !ok {
			continue
		}
		if g := factory(); g != nil {
			conditions = append(conditions, g)
		}
	}
	switch len(conditions) {
	case 0:
		return nil
	case 1:
		if g, ok := conditions[0].(*filter.Group); ok {
			return g
		}
	}
	return filter.NewAnd(conditions...)
}

// Active matches rows flagged active.
func Active() *filter.Group {
	return filter.NewAnd(filter.New("active", filter.OpEq, true))
}

// Recent returns a factory matching rows created within the window,
// measured from the moment the scope is applied.
func Recent(window time.Duration) Factory {
	return func() *filter.Group {
		since := time.Now().Add(-window)
		return filter.NewAnd(filter.New("created_at", filter.OpGte, since))
	}
}

// Published matches rows with a non-null, past-dated publish timestamp.
func Published() *filter.Group {
	return filter.NewAnd(
		filter.Filter{Field: "published_at", Operator: filter.OpIsNotNull},
		filter.New("published_at", filter.OpLte, time.Now()),
	)
}

// Archived matches rows flagged archived.
func Archived() *filter.Group {
	return filter.NewAnd(filter.New("archived", filter.OpEq, true))
}

// NotDeleted matches rows that have not been soft-deleted.
func NotDeleted() *filter.Group {
	return filter.NewAnd(filter.Filter{Field: "deleted_at", Operator: filter.OpIsNull})
}

// OwnedBy matches rows owned by the given user id.
func OwnedBy(id interface{}) *filter.Group {
	return filter.NewAnd(filter.New("user_id", filter.OpEq, id))
}

// CreatedBetween matches rows created inside the inclusive range.
func CreatedBetween(from, to interface{}) *filter.Group {
	return filter.NewAnd(filter.NewMulti("created_at", filter.OpBetween, from, to))
}

// WithStatus matches rows whose status is one of the given values.
func WithStatus(statuses ...interface{}) *filter.Group {
	return filter.NewAnd(filter.NewMulti("status", filter.OpIn, statuses...))
}

// Builder fluently layers scope names plus one ad hoc group before
// resolving them into a single combined group.
type Builder struct {
	resolver *Resolver
	names    []string
	extra    *filter.Group
}

// NewBuilder starts a scoped filter composition against the resolver.
func NewBuilder(resolver *Resolver) *Builder {
	return &Builder{resolver: resolver}
}

// Scope layers one or more named scopes, preserving order.
func (b *Builder) Scope(names ...string) *Builder {
	b.names = append(b.names, names...)
	return b
}

// With attaches an ad hoc filter group applied after the named scopes.
func (b *Builder) With(g *filter.Group) *Builder {
	b.extra = g
	return b
}

// Build resolves everything into one optional combined group.
func (b *Builder) Build() *filter.Group {
	resolved := b.resolver.Resolve(b.names...)
	switch {
	case resolved == nil && b.extra == nil:
		return nil
	case resolved == nil:
		return b.extra
	case b.extra == nil:
		return resolved
	}
	return filter.NewAnd(resolved, b.extra)
}
