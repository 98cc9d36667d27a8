package config

import (
	"fmt"

	"restq/internal/entity"
	"restq/internal/relation"
	"restq/internal/sorting"
)

var kindNames = map[string]relation.Kind{
	"has_one":          relation.HasOne,
	"has_many":         relation.HasMany,
	"belongs_to":       relation.BelongsTo,
	"belongs_to_many":  relation.BelongsToMany,
	"has_one_through":  relation.HasOneThrough,
	"has_many_through": relation.HasManyThrough,
	"morph_to":         relation.MorphTo,
	"morph_one":        relation.MorphOne,
	"morph_many":       relation.MorphMany,
	"morph_to_many":    relation.MorphToMany,
}

func parseKind(s string) (relation.Kind, error) {
	kind, ok := kindNames[s]
	if !ok {
		return "", fmt.Errorf("unknown relationship kind %q", s)
	}
	return kind, nil
}

// BuildRegistry converts the declarative entity section into a runtime
// registry. Key columns left empty are filled from naming conventions.
func (c *Config) BuildRegistry() (*entity.Registry, error) {
	entities := make([]*entity.Entity, 0, len(c.Entities))
	for _, ec := range c.Entities {
		e, err := buildEntity(ec)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entity.NewRegistry(entities...)
}

func buildEntity(ec EntityConfig) (*entity.Entity, error) {
	e := &entity.Entity{
		Name:       ec.Name,
		Table:      ec.Table,
		Filterable: ec.Filterable,
		Sortable:   ec.Sortable,
		Selectable: ec.Selectable,
	}

	if ec.DefaultSort != "" {
		sorts := sorting.FromString(ec.DefaultSort)
		if len(sorts) == 0 {
			return nil, fmt.Errorf("entity %s: invalid default sort %q", ec.Name, ec.DefaultSort)
		}
		e.DefaultSort = &sorts[0]
	}

	if len(ec.Relationships) > 0 {
		e.Relationships = make(map[string]relation.Relationship, len(ec.Relationships))
		for _, rc := range ec.Relationships {
			rel, err := buildRelationship(ec, rc)
			if err != nil {
				return nil, fmt.Errorf("entity %s: %w", ec.Name, err)
			}
			e.Relationships[rc.Name] = rel
		}
	}
	return e, nil
}

func buildRelationship(ec EntityConfig, rc RelationshipConfig) (relation.Relationship, error) {
	kind, err := parseKind(rc.Kind)
	if err != nil {
		return relation.Relationship{}, fmt.Errorf("relationship %s: %w", rc.Name, err)
	}

	rel := relation.Relationship{
		Kind:       kind,
		Name:       rc.Name,
		Table:      rc.Table,
		LocalKey:   rc.LocalKey,
		ForeignKey: rc.ForeignKey,
	}
	if rel.LocalKey == "" {
		rel.LocalKey = "id"
	}

	switch kind {
	case relation.HasOne, relation.HasMany:
		// Foreign key lives on the target, referencing the owner.
		if rel.ForeignKey == "" {
			rel.ForeignKey = relation.DefaultForeignKey(ec.Table)
		}

	case relation.BelongsTo:
		// Foreign key lives on the owner, referencing the target.
		if rel.ForeignKey == "" {
			rel.ForeignKey = relation.DefaultForeignKey(rc.Table)
		}

	case relation.BelongsToMany, relation.MorphToMany:
		if rel.ForeignKey == "" {
			rel.ForeignKey = "id"
		}
		pivot := &relation.PivotSpec{
			Table:      rc.PivotTable,
			LocalKey:   rc.PivotLocalKey,
			ForeignKey: rc.PivotForeignKey,
		}
		if pivot.Table == "" {
			pivot.Table = relation.DefaultPivotTable(ec.Table, rc.Table)
		}
		if pivot.LocalKey == "" {
			pivot.LocalKey = relation.DefaultForeignKey(ec.Table)
		}
		if pivot.ForeignKey == "" {
			pivot.ForeignKey = relation.DefaultForeignKey(rc.Table)
		}
		if kind == relation.MorphToMany {
			if rc.MorphTypeColumn == "" || rc.MorphTypeValue == "" {
				return rel, fmt.Errorf("relationship %s: morph_type_column and morph_type_value are required", rc.Name)
			}
			pivot.TypeColumn = rc.MorphTypeColumn
			rel.Morph = &relation.MorphSpec{
				TypeColumn: rc.MorphTypeColumn,
				TypeValue:  rc.MorphTypeValue,
			}
		}
		rel.Pivot = pivot

	case relation.HasOneThrough, relation.HasManyThrough:
		if rc.ThroughTable == "" {
			return rel, fmt.Errorf("relationship %s: through_table is required", rc.Name)
		}
		through := &relation.ThroughSpec{
			Table:     rc.ThroughTable,
			FirstKey:  rc.ThroughFirstKey,
			SecondKey: rc.ThroughSecondKey,
			LocalKey:  rc.ThroughLocalKey,
		}
		if through.FirstKey == "" {
			through.FirstKey = relation.DefaultForeignKey(ec.Table)
		}
		if through.SecondKey == "" {
			through.SecondKey = relation.DefaultForeignKey(rc.ThroughTable)
		}
		if through.LocalKey == "" {
			through.LocalKey = "id"
		}
		rel.Through = through

	case relation.MorphTo, relation.MorphOne, relation.MorphMany:
		if rc.MorphTypeColumn == "" || rc.MorphIDColumn == "" || rc.MorphTypeValue == "" {
			return rel, fmt.Errorf("relationship %s: morph_type_column, morph_id_column, and morph_type_value are required", rc.Name)
		}
		rel.Morph = &relation.MorphSpec{
			TypeColumn: rc.MorphTypeColumn,
			IDColumn:   rc.MorphIDColumn,
			TypeValue:  rc.MorphTypeValue,
		}
	}

	return rel, nil
}
