package pagination

const (
	// DefaultPageSize is used when a caller does not provide one.
	DefaultPageSize = 20
	// MaxPageSize caps how many rows a single page can return.
	MaxPageSize = 100
)

// Params holds page-based pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// Normalize clamps page and page size into their valid ranges.
func (p Params) Normalize() Params {
	page := p.Page
	if page < 1 {
		page = 1
	}
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Params{Page: page, PageSize: size}
}

// Offset is the number of rows to skip for the (normalized) page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Meta describes where a page sits in the full result set.
type Meta struct {
	Total           int64 `json:"total"`
	Page            int   `json:"page"`
	PageSize        int   `json:"page_size"`
	TotalPages      int   `json:"total_pages"`
	HasNextPage     bool  `json:"has_next_page"`
	HasPreviousPage bool  `json:"has_previous_page"`
}

// NewMeta computes page metadata for total rows.
func NewMeta(p Params, total int64) Meta {
	n := p.Normalize()
	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(n.PageSize) - 1) / int64(n.PageSize))
	}
	return Meta{
		Total:           total,
		Page:            n.Page,
		PageSize:        n.PageSize,
		TotalPages:      totalPages,
		HasNextPage:     n.Page < totalPages,
		HasPreviousPage: n.Page > 1,
	}
}
