package builder

import (
	"net/url"
	"strconv"
	"strings"

	"restq/internal/fields"
	"restq/internal/filter"
	"restq/internal/pagination"
	"restq/internal/relation"
	"restq/internal/sorting"
)

// Request is a parsed, immutable query request. All values are already
// structured; allow-listing happens later, at compile time, against the
// target entity.
type Request struct {
	Filters *filter.Group
	// RawFilters keeps the normalized filter parameters (prefix
	// stripped) for cache key derivation.
	RawFilters map[string]string

	Sorts            []sorting.Sort
	SortsByResource  map[string][]sorting.Sort
	Fields           []string
	FieldsByResource map[string][]string
	Includes         []*relation.Include
	Page             pagination.Request
}

// FieldsFor returns the requested projection for a resource, falling
// back to the unscoped fields parameter.
func (r Request) FieldsFor(resource string) []string {
	if fs, ok := r.FieldsByResource[resource]; ok {
		return fs
	}
	return r.Fields
}

// SortsFor returns the per-relation sort override for a resource, if
// any. Unlike FieldsFor there is no fallback: an included relation
// without an override keeps its own default ordering.
func (r Request) SortsFor(resource string) []sorting.Sort {
	return r.SortsByResource[resource]
}

// ParseOptions overrides the pagination defaults applied during parsing.
// Zero values fall back to the package defaults (offset mode, 25/100).
type ParseOptions struct {
	DefaultMode    pagination.Mode
	DefaultPerPage int
	MaxPerPage     int
}

// ParseRequest parses a flat string-keyed parameter map, as delivered by
// an HTTP query string. Recognized keys: filter[...], sort,
// sort[resource], fields, fields[resource], include, page, per_page,
// pagination_type, cursor. Unrecognized keys are ignored. Repeated keys
// use the first value.
func ParseRequest(params url.Values) Request {
	return ParseRequestWith(params, ParseOptions{})
}

// ParseRequestWith is ParseRequest with explicit pagination defaults.
func ParseRequestWith(params url.Values, opts ParseOptions) Request {
	req := Request{
		RawFilters:       map[string]string{},
		SortsByResource:  map[string][]sorting.Sort{},
		FieldsByResource: map[string][]string{},
	}

	for key, values := range params {
		if len(values) == 0 {
			continue
		}
		value := values[0]

		switch {
		case strings.HasPrefix(key, "filter["):
			if inner, ok := stripFilterPrefix(key); ok {
				req.RawFilters[inner] = value
			}
		case key == "sort":
			req.Sorts = sorting.FromString(value)
		case strings.HasPrefix(key, "sort[") && strings.HasSuffix(key, "]"):
			resource := key[len("sort[") : len(key)-1]
			if resource != "" {
				req.SortsByResource[resource] = sorting.FromString(value)
			}
		case key == "fields":
			req.Fields = fields.FromString(value)
		case strings.HasPrefix(key, "fields[") && strings.HasSuffix(key, "]"):
			resource := key[len("fields[") : len(key)-1]
			if resource != "" {
				req.FieldsByResource[resource] = fields.FromString(value)
			}
		case key == "include":
			req.Includes = relation.ParseIncludes(value)
		case key == "page":
			req.Page.Page, _ = strconv.Atoi(value)
		case key == "per_page":
			req.Page.PerPage, _ = strconv.Atoi(value)
		case key == "pagination_type":
			req.Page.Mode = pagination.Mode(strings.ToLower(strings.TrimSpace(value)))
		case key == "cursor":
			req.Page.Cursor = value
		}
	}

	req.Filters = filter.ParseQuery(req.RawFilters)
	req.Page = normalizePage(req.Page, opts)
	return req
}

// stripFilterPrefix turns "filter[status]" into "status" and
// "filter[age][gte]" into "age[gte]" (likewise for indexed and/or
// blocks). The first bracket pair is unwrapped, the rest pass through.
func stripFilterPrefix(key string) (string, bool) {
	rest := strings.TrimPrefix(key, "filter[")
	i := strings.Index(rest, "]")
	if i <= 0 {
		return "", false
	}
	return rest[:i] + rest[i+1:], true
}

func normalizePage(p pagination.Request, opts ParseOptions) pagination.Request {
	if p.Mode == "" && opts.DefaultMode != "" {
		p.Mode = opts.DefaultMode
	}
	if p.PerPage < 1 && opts.DefaultPerPage > 0 {
		p.PerPage = opts.DefaultPerPage
	}
	p = p.Normalize()
	if opts.MaxPerPage > 0 && p.PerPage > opts.MaxPerPage {
		p.PerPage = opts.MaxPerPage
	}
	return p
}
