// Package entity describes the queryable surface of each resource: its
// table, the allow-listed fields per concern, the default sort, and the
// named relationships. Entities are built once at startup and shared
// read-only across requests.
package entity

import (
	"fmt"
	"sort"

	"restq/internal/filter"
	"restq/internal/relation"
	"restq/internal/sorting"
)

// Entity is one resource's allow-list provider.
type Entity struct {
	Name  string
	Table string

	Filterable []string
	Sortable   []string
	Selectable []string

	DefaultSort   *sorting.Sort
	Relationships map[string]relation.Relationship
}

// FilterAllow returns the filterable fields as an allow-list set.
func (e *Entity) FilterAllow() filter.AllowList {
	return filter.NewAllowList(e.Filterable...)
}

// Relationship looks up a named relationship.
func (e *Entity) Relationship(name string) (relation.Relationship, bool) {
	rel, ok := e.Relationships[name]
	return rel, ok
}

// RelationNames returns the allow-listed relation names, sorted.
func (e *Entity) RelationNames() []string {
	names := make([]string, 0, len(e.Relationships))
	for name := range e.Relationships {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry is a name-keyed entity set, immutable after construction.
type Registry struct {
	entities map[string]*Entity
}

// NewRegistry builds a registry from the given entities. Duplicate or
// incomplete definitions are rejected so misconfiguration surfaces at
// startup rather than per request.
func NewRegistry(entities ...*Entity) (*Registry, error) {
	byName := make(map[string]*Entity, len(entities))
	for _, e := range entities {
		if e.Name == "" || e.Table == "" {
			return nil, fmt.Errorf("entity %q: name and table are required", e.Name)
		}
		if _, exists := byName[e.Name]; exists {
			return nil, fmt.Errorf("entity %q: duplicate definition", e.Name)
		}
		byName[e.Name] = e
	}
	return &Registry{entities: byName}, nil
}

// Get looks up an entity by name.
func (r *Registry) Get(name string) (*Entity, bool) {
	e, ok := r.entities[name]
	return e, ok
}

// Names returns the registered entity names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
