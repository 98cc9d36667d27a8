package querycache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// KeySpec is the query shape a cache key is derived from. Two requests
// with the same shape must produce the same key regardless of input
// ordering for the order-independent parts.
type KeySpec struct {
	Table string
	// Scopes and Extra capture WHERE contributions layered by the
	// caller itself, outside the request parameters. Scope order is
	// preserved: it determines clause placement.
	Scopes   []string
	Extra    string
	Filters  map[string]string
	Sorts    []string // ordered: sort order is semantically significant
	Fields   []string
	Includes []string
	Page     int
	PerPage  int
}

// BuildKey composes the canonical shape string and hashes it to a
// bounded-size token. Filter pairs, fields, and includes are sorted so
// map iteration and request ordering cannot perturb the key.
func BuildKey(spec KeySpec) string {
	filterPairs := make([]string, 0, len(spec.Filters))
	for k, v := range spec.Filters {
		filterPairs = append(filterPairs, k+"="+v)
	}
	sort.Strings(filterPairs)

	fieldList := append([]string(nil), spec.Fields...)
	sort.Strings(fieldList)
	includeList := append([]string(nil), spec.Includes...)
	sort.Strings(includeList)

	canonical := strings.Join([]string{
		spec.Table,
		strings.Join(spec.Scopes, ","),
		spec.Extra,
		strings.Join(filterPairs, "&"),
		strings.Join(spec.Sorts, ","),
		strings.Join(fieldList, ","),
		strings.Join(includeList, ","),
		fmt.Sprintf("%d:%d", spec.Page, spec.PerPage),
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:32]
}
