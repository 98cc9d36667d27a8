package relation

import (
	"strings"

	"restq/internal/filter"
	"restq/internal/sorting"
)

// Include is a request to eagerly resolve one relation, with optional
// nested children and per-relation overrides. A slice of root includes
// forms a forest.
type Include struct {
	Relation string
	Children []*Include

	// Per-relation overrides, all optional. Fields and Sorts shape the
	// related rows a loader fetches (and key the result cache); Filter
	// is folded into the relation's constraint clause at compile time.
	Fields []string
	Filter *filter.Group
	Sorts  []sorting.Sort
}

// ParseIncludes folds a dotted, comma-separated include expression
// ("a,b.c,b.c.d") into a forest. Shared prefixes merge into one node with
// accumulated children; blank segments drop the whole path. An empty
// expression yields an empty forest.
func ParseIncludes(expr string) []*Include {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	var roots []*Include
	index := make(map[string]*Include)

	for _, path := range strings.Split(expr, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		segments := strings.Split(path, ".")
		valid := true
		for _, seg := range segments {
			if strings.TrimSpace(seg) == "" {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}

		prefix := ""
		var parent *Include
		for _, seg := range segments {
			seg = strings.TrimSpace(seg)
			if prefix == "" {
				prefix = seg
			} else {
				prefix = prefix + "." + seg
			}
			node, ok := index[prefix]
			if !ok {
				node = &Include{Relation: seg}
				index[prefix] = node
				if parent == nil {
					roots = append(roots, node)
				} else {
					parent.Children = append(parent.Children, node)
				}
			}
			parent = node
		}
	}
	return roots
}

// FilterRoots keeps only includes whose root relation name appears in the
// allow-list. Nested names are intentionally not validated here; only the
// root gates inclusion. Dropped root names are returned so the caller can
// log them.
func FilterRoots(forest []*Include, allowed []string) (kept []*Include, dropped []string) {
	set := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		set[name] = struct{}{}
	}
	for _, inc := range forest {
		if _, ok := set[inc.Relation]; ok {
			kept = append(kept, inc)
			continue
		}
		dropped = append(dropped, inc.Relation)
	}
	return kept, dropped
}

// Flatten expands the forest back into dotted path strings, parents before
// children, siblings in insertion order.
func Flatten(forest []*Include) []string {
	var paths []string
	var walk func(prefix string, nodes []*Include)
	walk = func(prefix string, nodes []*Include) {
		for _, node := range nodes {
			path := node.Relation
			if prefix != "" {
				path = prefix + "." + node.Relation
			}
			paths = append(paths, path)
			walk(path, node.Children)
		}
	}
	walk("", forest)
	return paths
}

// Contains reports whether the dotted path exists in the forest, without
// materializing the full path list.
func Contains(forest []*Include, path string) bool {
	segments := strings.Split(path, ".")
	nodes := forest
	for i, seg := range segments {
		var match *Include
		for _, node := range nodes {
			if node.Relation == seg {
				match = node
				break
			}
		}
		if match == nil {
			return false
		}
		if i == len(segments)-1 {
			return true
		}
		nodes = match.Children
	}
	return false
}
