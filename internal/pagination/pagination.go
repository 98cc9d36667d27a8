// Package pagination implements the two result-windowing strategies:
// offset (page/per_page with totals) and cursor (opaque seek tokens,
// no totals). The two are mutually exclusive per request.
package pagination

// Mode selects the windowing strategy.
type Mode string

const (
	ModeOffset Mode = "offset"
	ModeCursor Mode = "cursor"
)

const (
	// DefaultPerPage is the page size used when the request names none.
	DefaultPerPage = 25
	// MaxPerPage caps the requested page size.
	MaxPerPage = 100
)

// Request is the parsed pagination input.
type Request struct {
	Mode    Mode
	Page    int    // 1-based, offset mode only
	PerPage int
	Cursor  string // opaque token, cursor mode only
}

// Normalize clamps the request into valid bounds.
func (r Request) Normalize() Request {
	if r.Mode != ModeCursor {
		r.Mode = ModeOffset
	}
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PerPage < 1 {
		r.PerPage = DefaultPerPage
	}
	if r.PerPage > MaxPerPage {
		r.PerPage = MaxPerPage
	}
	return r
}

// LimitOffset returns the LIMIT/OFFSET pair for offset mode.
func (r Request) LimitOffset() (limit, offset int) {
	return r.PerPage, (r.Page - 1) * r.PerPage
}

// OffsetMeta is the envelope metadata for offset pagination.
// From and To are nil when the page is empty.
type OffsetMeta struct {
	CurrentPage int  `json:"current_page"`
	PerPage     int  `json:"per_page"`
	Total       int  `json:"total"`
	LastPage    int  `json:"last_page"`
	From        *int `json:"from"`
	To          *int `json:"to"`
}

// NewOffsetMeta computes the page bounds for a total row count.
// last_page is at least 1 even for an empty result set.
func NewOffsetMeta(page, perPage, total int) OffsetMeta {
	meta := OffsetMeta{
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    1,
	}
	if total > 0 {
		meta.LastPage = (total + perPage - 1) / perPage
		from := (page-1)*perPage + 1
		if from <= total {
			to := from + perPage - 1
			if to > total {
				to = total
			}
			meta.From = &from
			meta.To = &to
		}
	}
	return meta
}

// CursorMeta is the envelope metadata for cursor pagination. Totals are
// deliberately omitted: they are unstable and expensive for cursor
// consumers.
type CursorMeta struct {
	NextCursor *string `json:"next_cursor"`
	PrevCursor *string `json:"prev_cursor"`
}
