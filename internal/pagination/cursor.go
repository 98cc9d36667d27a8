package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"restq/internal/sorting"
)

// Traversal direction carried inside a cursor token. A next token seeks
// past its boundary row in sort order; a prev token seeks before it, and
// the caller scans inverted.
const (
	CursorNext = "next"
	CursorPrev = "prev"
)

// cursorPayload is the JSON body of an opaque cursor token. Values are
// string-coerced for JSON safety (avoids float64 round-tripping of large
// integers).
type cursorPayload struct {
	Version   int      `json:"v"`
	Entity    string   `json:"e"`
	SortKey   string   `json:"k"`
	Direction string   `json:"d"`
	Values    []string `json:"vals"`
}

// SortKey derives the cursor identity from a sort list. A cursor is only
// valid against the exact sort it was produced under.
func SortKey(sorts []sorting.Sort) string {
	parts := make([]string, len(sorts))
	for i, s := range sorts {
		parts[i] = s.Field + ":" + strings.ToLower(string(s.Direction))
	}
	return strings.Join(parts, ",")
}

// EncodeCursor builds an opaque token from the entity name, sort
// identity, traversal direction, and the sort-column values of the
// boundary row.
func EncodeCursor(entityName, sortKey, direction string, values ...interface{}) string {
	stringValues := make([]string, 0, len(values))
	for _, v := range values {
		stringValues = append(stringValues, coerceToString(v))
	}
	payload := cursorPayload{
		Version:   1,
		Entity:    entityName,
		SortKey:   sortKey,
		Direction: direction,
		Values:    stringValues,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor parses an opaque token back into its components. Tokens
// without a direction read as next.
func DecodeCursor(raw string) (entityName, sortKey, direction string, values []string, err error) {
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", "", "", nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var payload cursorPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", "", "", nil, fmt.Errorf("invalid cursor format")
	}
	if payload.Version != 1 {
		return "", "", "", nil, fmt.Errorf("invalid cursor format")
	}
	if payload.Entity == "" || payload.SortKey == "" {
		return "", "", "", nil, fmt.Errorf("invalid cursor: missing entity or sort key")
	}
	switch payload.Direction {
	case "":
		payload.Direction = CursorNext
	case CursorNext, CursorPrev:
	default:
		return "", "", "", nil, fmt.Errorf("invalid cursor: unknown direction %q", payload.Direction)
	}
	return payload.Entity, payload.SortKey, payload.Direction, payload.Values, nil
}

// ValidateCursor confirms the token matches the query it is applied to.
func ValidateCursor(expectedEntity, expectedSortKey, actualEntity, actualSortKey string, sortCount, valueCount int) error {
	if actualEntity != expectedEntity {
		return fmt.Errorf("cursor entity mismatch: expected %s, got %s", expectedEntity, actualEntity)
	}
	if actualSortKey != expectedSortKey {
		return fmt.Errorf("cursor sort mismatch: expected %s, got %s", expectedSortKey, actualSortKey)
	}
	if valueCount != sortCount {
		return fmt.Errorf("cursor value count mismatch: expected %d, got %d", sortCount, valueCount)
	}
	return nil
}

func coerceToString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case []byte:
		return string(val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
