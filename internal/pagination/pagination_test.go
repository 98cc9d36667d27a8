package pagination

import (
	"testing"

	"restq/internal/sorting"
)

func TestNormalize(t *testing.T) {
	r := Request{}.Normalize()
	if r.Mode != ModeOffset || r.Page != 1 || r.PerPage != DefaultPerPage {
		t.Fatalf("Normalize zero value = %+v", r)
	}
	r = Request{Mode: ModeCursor, PerPage: 10_000}.Normalize()
	if r.Mode != ModeCursor || r.PerPage != MaxPerPage {
		t.Fatalf("Normalize = %+v", r)
	}
}

func TestLimitOffset(t *testing.T) {
	r := Request{Mode: ModeOffset, Page: 3, PerPage: 10}
	limit, offset := r.LimitOffset()
	if limit != 10 || offset != 20 {
		t.Fatalf("LimitOffset = %d, %d", limit, offset)
	}
}

func TestNewOffsetMetaEmptyResult(t *testing.T) {
	meta := NewOffsetMeta(1, 10, 0)
	if meta.LastPage != 1 {
		t.Fatalf("last_page = %d, want 1", meta.LastPage)
	}
	if meta.From != nil || meta.To != nil {
		t.Fatalf("from/to must be nil for empty results: %+v", meta)
	}
}

func TestNewOffsetMetaBounds(t *testing.T) {
	meta := NewOffsetMeta(3, 10, 23)
	if meta.LastPage != 3 {
		t.Fatalf("last_page = %d, want 3", meta.LastPage)
	}
	if meta.From == nil || *meta.From != 21 {
		t.Fatalf("from = %v, want 21", meta.From)
	}
	if meta.To == nil || *meta.To != 23 {
		t.Fatalf("to = %v, want 23", meta.To)
	}

	meta = NewOffsetMeta(1, 10, 23)
	if *meta.From != 1 || *meta.To != 10 {
		t.Fatalf("page 1 bounds = %v..%v", *meta.From, *meta.To)
	}

	// Past the last page: no bounds.
	meta = NewOffsetMeta(5, 10, 23)
	if meta.From != nil || meta.To != nil {
		t.Fatalf("past-end bounds = %+v", meta)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	sorts := []sorting.Sort{
		{Field: "created_at", Direction: sorting.Desc},
		{Field: "id", Direction: sorting.Asc},
	}
	key := SortKey(sorts)
	if key != "created_at:desc,id:asc" {
		t.Fatalf("SortKey = %q", key)
	}

	token := EncodeCursor("users", key, CursorNext, "2024-06-01T00:00:00Z", 42)
	if token == "" {
		t.Fatal("empty token")
	}
	entityName, sortKey, direction, values, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if entityName != "users" || sortKey != key {
		t.Fatalf("decoded %q %q", entityName, sortKey)
	}
	if direction != CursorNext {
		t.Fatalf("direction = %q", direction)
	}
	if len(values) != 2 || values[0] != "2024-06-01T00:00:00Z" || values[1] != "42" {
		t.Fatalf("values = %v", values)
	}
	if err := ValidateCursor("users", key, entityName, sortKey, len(sorts), len(values)); err != nil {
		t.Fatalf("ValidateCursor: %v", err)
	}
}

func TestCursorDirections(t *testing.T) {
	token := EncodeCursor("users", "id:asc", CursorPrev, 7)
	_, _, direction, values, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if direction != CursorPrev {
		t.Fatalf("direction = %q, want %q", direction, CursorPrev)
	}
	if len(values) != 1 || values[0] != "7" {
		t.Fatalf("values = %v", values)
	}

	// A missing direction reads as forward traversal.
	_, _, direction, _, err = DecodeCursor(EncodeCursor("users", "id:asc", "", 7))
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if direction != CursorNext {
		t.Fatalf("default direction = %q, want %q", direction, CursorNext)
	}

	if _, _, _, _, err := DecodeCursor(EncodeCursor("users", "id:asc", "sideways", 7)); err == nil {
		t.Fatal("expected unknown-direction error")
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	if _, _, _, _, err := DecodeCursor("!!not-base64!!"); err == nil {
		t.Fatal("expected base64 error")
	}
	if _, _, _, _, err := DecodeCursor("aGVsbG8="); err == nil {
		t.Fatal("expected JSON error")
	}
}

func TestValidateCursorMismatches(t *testing.T) {
	if err := ValidateCursor("users", "id:asc", "posts", "id:asc", 1, 1); err == nil {
		t.Fatal("expected entity mismatch")
	}
	if err := ValidateCursor("users", "id:asc", "users", "name:asc", 1, 1); err == nil {
		t.Fatal("expected sort mismatch")
	}
	if err := ValidateCursor("users", "id:asc", "users", "id:asc", 2, 1); err == nil {
		t.Fatal("expected value count mismatch")
	}
}
