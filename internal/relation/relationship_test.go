package relation

import (
	"strings"
	"testing"

	"restq/internal/filter"
	"restq/internal/sqlutil"
)

func TestDefaultNaming(t *testing.T) {
	if got := DefaultForeignKey("users"); got != "user_id" {
		t.Fatalf("DefaultForeignKey = %q", got)
	}
	if got := DefaultPivotTable("tags", "posts"); got != "post_tag" {
		t.Fatalf("DefaultPivotTable = %q", got)
	}
	if got := DefaultPivotTable("posts", "tags"); got != "post_tag" {
		t.Fatalf("DefaultPivotTable order must not matter, got %q", got)
	}
}

func TestConstraintClauseHasMany(t *testing.T) {
	rel := Relationship{
		Kind:       HasMany,
		Name:       "posts",
		Table:      "posts",
		LocalKey:   "id",
		ForeignKey: "user_id",
	}
	sql, args, err := rel.ConstraintClause("users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `EXISTS (SELECT 1 FROM "posts" WHERE "posts"."user_id" = "users"."id")`
	if sql != want {
		t.Fatalf("sql = %q, want %q", sql, want)
	}
	if len(args) != 0 {
		t.Fatalf("args = %v", args)
	}
}

func TestConstraintClauseBelongsTo(t *testing.T) {
	rel := Relationship{
		Kind:       BelongsTo,
		Name:       "user",
		Table:      "users",
		LocalKey:   "id",
		ForeignKey: "user_id",
	}
	sql, _, err := rel.ConstraintClause("posts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `EXISTS (SELECT 1 FROM "users" WHERE "users"."id" = "posts"."user_id")`
	if sql != want {
		t.Fatalf("sql = %q, want %q", sql, want)
	}
}

func TestConstraintClauseBelongsToMany(t *testing.T) {
	rel := Relationship{
		Kind:       BelongsToMany,
		Name:       "tags",
		Table:      "tags",
		LocalKey:   "id",
		ForeignKey: "id",
		Pivot: &PivotSpec{
			Table:      "post_tag",
			LocalKey:   "post_id",
			ForeignKey: "tag_id",
		},
	}
	sql, _, err := rel.ConstraintClause("posts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `EXISTS (SELECT 1 FROM "post_tag" JOIN "tags" ON "post_tag"."tag_id" = "tags"."id" WHERE "post_tag"."post_id" = "posts"."id")`
	if sql != want {
		t.Fatalf("sql = %q, want %q", sql, want)
	}
}

func TestConstraintClauseThrough(t *testing.T) {
	rel := Relationship{
		Kind:     HasManyThrough,
		Name:     "comments",
		Table:    "comments",
		LocalKey: "id",
		Through: &ThroughSpec{
			Table:     "posts",
			FirstKey:  "user_id",
			SecondKey: "post_id",
			LocalKey:  "id",
		},
	}
	sql, _, err := rel.ConstraintClause("users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `EXISTS (SELECT 1 FROM "comments" JOIN "posts" ON "comments"."post_id" = "posts"."id" WHERE "posts"."user_id" = "users"."id")`
	if sql != want {
		t.Fatalf("sql = %q, want %q", sql, want)
	}
}

func TestConstraintClauseMorphMany(t *testing.T) {
	rel := Relationship{
		Kind:     MorphMany,
		Name:     "comments",
		Table:    "comments",
		LocalKey: "id",
		Morph: &MorphSpec{
			TypeColumn: "commentable_type",
			IDColumn:   "commentable_id",
			TypeValue:  "posts",
		},
	}
	sql, args, err := rel.ConstraintClause("posts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `EXISTS (SELECT 1 FROM "comments" WHERE "comments"."commentable_id" = "posts"."id" AND "comments"."commentable_type" = $1)`
	if sql != want {
		t.Fatalf("sql = %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != "posts" {
		t.Fatalf("args = %v", args)
	}
}

func TestConstraintClauseMorphTo(t *testing.T) {
	rel := Relationship{
		Kind:     MorphTo,
		Name:     "commentable",
		Table:    "posts",
		LocalKey: "id",
		Morph: &MorphSpec{
			TypeColumn: "commentable_type",
			IDColumn:   "commentable_id",
			TypeValue:  "posts",
		},
	}
	sql, args, err := rel.ConstraintClause("comments")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `EXISTS (SELECT 1 FROM "posts" WHERE "posts"."id" = "comments"."commentable_id" AND "comments"."commentable_type" = $1)`
	if sql != want {
		t.Fatalf("sql = %q, want %q", sql, want)
	}
	if len(args) != 1 {
		t.Fatalf("args = %v", args)
	}
}

func TestConstraintClauseMorphToMany(t *testing.T) {
	rel := Relationship{
		Kind:       MorphToMany,
		Name:       "tags",
		Table:      "tags",
		LocalKey:   "id",
		ForeignKey: "id",
		Pivot: &PivotSpec{
			Table:      "taggables",
			LocalKey:   "taggable_id",
			ForeignKey: "tag_id",
			TypeColumn: "taggable_type",
		},
		Morph: &MorphSpec{TypeValue: "posts"},
	}
	sql, args, err := rel.ConstraintClause("posts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sql, `"taggables"."taggable_type" = $1`) {
		t.Fatalf("sql = %q", sql)
	}
	if len(args) != 1 {
		t.Fatalf("args = %v", args)
	}
}

func TestConstraintClauseEmbeddedConstraints(t *testing.T) {
	rel := Relationship{
		Kind:       HasMany,
		Name:       "posts",
		Table:      "posts",
		LocalKey:   "id",
		ForeignKey: "user_id",
		Constraints: filter.NewAnd(
			filter.New("status", filter.OpEq, "published"),
			filter.New("views", filter.OpGte, 100),
		),
		ConstraintAllow: filter.NewAllowList("status", "views"),
	}
	sql, args, err := rel.ConstraintClause("users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `EXISTS (SELECT 1 FROM "posts" WHERE "posts"."user_id" = "users"."id" AND ("status" = $1 AND "views" >= $2))`
	if sql != want {
		t.Fatalf("sql = %q, want %q", sql, want)
	}
	if len(args) != 2 {
		t.Fatalf("args = %v", args)
	}
}

func TestConstraintClauseIndependentNumbering(t *testing.T) {
	// Two separately rendered clauses both number from $1; merging them
	// requires an explicit renumbering pass.
	rel := Relationship{
		Kind: MorphMany, Name: "comments", Table: "comments", LocalKey: "id",
		Morph: &MorphSpec{TypeColumn: "commentable_type", IDColumn: "commentable_id", TypeValue: "posts"},
	}
	first, _, err := rel.ConstraintClause("posts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _, err := rel.ConstraintClause("posts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(first, "$1") || !strings.Contains(second, "$1") {
		t.Fatalf("clauses must number independently: %q / %q", first, second)
	}
	renumbered := sqlutil.RenumberPlaceholders(second, 1)
	if !strings.Contains(renumbered, "$2") {
		t.Fatalf("renumbered clause = %q", renumbered)
	}
}

func TestConstraintClauseMissingSpecErrors(t *testing.T) {
	rel := Relationship{Kind: BelongsToMany, Name: "tags", Table: "tags", LocalKey: "id", ForeignKey: "id"}
	if _, _, err := rel.ConstraintClause("posts"); err == nil {
		t.Fatal("expected error for missing pivot spec")
	}
	rel = Relationship{Kind: Kind("sideways"), Name: "x", Table: "x"}
	if _, _, err := rel.ConstraintClause("posts"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
