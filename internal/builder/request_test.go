package builder

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restq/internal/filter"
	"restq/internal/pagination"
	"restq/internal/sorting"
)

func TestParseRequestFilters(t *testing.T) {
	params := url.Values{
		"filter[status]":    {"active"},
		"filter[age][gte]":  {"18"},
		"filter[or][0][field]": {"role"},
		"filter[or][0][op]":    {"eq"},
		"filter[or][0][value]": {"admin"},
	}
	req := ParseRequest(params)

	assert.Equal(t, "active", req.RawFilters["status"])
	assert.Equal(t, "18", req.RawFilters["age[gte]"])
	assert.Equal(t, "admin", req.RawFilters["or[0][value]"])
	require.NotNil(t, req.Filters)
	assert.Equal(t, filter.And, req.Filters.Op)
}

func TestParseRequestSortFieldsInclude(t *testing.T) {
	req := ParseRequest(url.Values{
		"sort":           {"name,-created_at"},
		"sort[author]":   {"-joined_at"},
		"fields":         {"id,name"},
		"fields[author]": {"id,email"},
		"include":        {"user,org.positions,org.positions.level"},
	})

	require.Len(t, req.Sorts, 2)
	assert.Equal(t, sorting.Sort{Field: "name", Direction: sorting.Asc}, req.Sorts[0])
	assert.Equal(t, sorting.Sort{Field: "created_at", Direction: sorting.Desc}, req.Sorts[1])

	assert.Equal(t,
		[]sorting.Sort{{Field: "joined_at", Direction: sorting.Desc}},
		req.SortsFor("author"))
	assert.Empty(t, req.SortsFor("user"))

	assert.Equal(t, []string{"id", "name"}, req.Fields)
	assert.Equal(t, []string{"id", "email"}, req.FieldsByResource["author"])
	assert.Equal(t, []string{"id", "name"}, req.FieldsFor("posts"))
	assert.Equal(t, []string{"id", "email"}, req.FieldsFor("author"))

	require.Len(t, req.Includes, 2)
	assert.Equal(t, "user", req.Includes[0].Relation)
	assert.Equal(t, "org", req.Includes[1].Relation)
	require.Len(t, req.Includes[1].Children, 1)
	positions := req.Includes[1].Children[0]
	assert.Equal(t, "positions", positions.Relation)
	require.Len(t, positions.Children, 1)
	assert.Equal(t, "level", positions.Children[0].Relation)
}

func TestParseRequestPagination(t *testing.T) {
	req := ParseRequest(url.Values{
		"page":     {"3"},
		"per_page": {"10"},
	})
	assert.Equal(t, pagination.ModeOffset, req.Page.Mode)
	assert.Equal(t, 3, req.Page.Page)
	assert.Equal(t, 10, req.Page.PerPage)

	req = ParseRequest(url.Values{
		"pagination_type": {"cursor"},
		"cursor":          {"abc"},
	})
	assert.Equal(t, pagination.ModeCursor, req.Page.Mode)
	assert.Equal(t, "abc", req.Page.Cursor)
	assert.Equal(t, pagination.DefaultPerPage, req.Page.PerPage)
}

func TestParseRequestDefaults(t *testing.T) {
	req := ParseRequest(url.Values{})
	assert.Equal(t, pagination.ModeOffset, req.Page.Mode)
	assert.Equal(t, 1, req.Page.Page)
	assert.Nil(t, req.Filters)
	assert.Empty(t, req.Sorts)
	assert.Empty(t, req.Includes)

	withOpts := ParseRequestWith(url.Values{}, ParseOptions{
		DefaultMode:    pagination.ModeCursor,
		DefaultPerPage: 10,
		MaxPerPage:     20,
	})
	assert.Equal(t, pagination.ModeCursor, withOpts.Page.Mode)
	assert.Equal(t, 10, withOpts.Page.PerPage)

	clamped := ParseRequestWith(url.Values{"per_page": {"500"}}, ParseOptions{MaxPerPage: 20})
	assert.Equal(t, 20, clamped.Page.PerPage)
}

func TestParseRequestIgnoresUnknownKeys(t *testing.T) {
	req := ParseRequest(url.Values{
		"utm_source": {"mail"},
		"filter":     {"not-a-filter"},
	})
	assert.Empty(t, req.RawFilters)
	assert.Nil(t, req.Filters)
}
