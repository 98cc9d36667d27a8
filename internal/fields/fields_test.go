package fields

import (
	"reflect"
	"testing"
)

var allowed = []string{"id", "name", "status", "created_at"}

func TestSelectEmptyRequestReturnsFullAllowList(t *testing.T) {
	got := Select(nil, allowed)
	if !reflect.DeepEqual(got, allowed) {
		t.Fatalf("Select = %v, want %v", got, allowed)
	}
	// Must be a copy, not the allow-list itself.
	got[0] = "mutated"
	if allowed[0] != "id" {
		t.Fatal("Select must not alias the allow-list")
	}
}

func TestSelectIntersection(t *testing.T) {
	got := Select([]string{"status", "name", "password"}, allowed)
	want := []string{"name", "status"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Select = %v, want %v", got, want)
	}
}

func TestSelectEmptyIntersectionFallsBackToStar(t *testing.T) {
	got := Select([]string{"password", "secret"}, allowed)
	if !reflect.DeepEqual(got, []string{"*"}) {
		t.Fatalf("Select = %v, want [*]", got)
	}
}

func TestFromString(t *testing.T) {
	got := FromString(" id, name ,status ")
	want := []string{"id", "name", "status"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FromString = %v, want %v", got, want)
	}
	if FromString("") != nil {
		t.Fatal("empty expression must yield nil")
	}
}

func TestClause(t *testing.T) {
	if got := Clause([]string{"id", "name"}); got != `"id", "name"` {
		t.Fatalf("Clause = %q", got)
	}
	if got := Clause([]string{"*"}); got != "*" {
		t.Fatalf("Clause(*) = %q", got)
	}
	if got := Clause(nil); got != "*" {
		t.Fatalf("Clause(nil) = %q", got)
	}
}
