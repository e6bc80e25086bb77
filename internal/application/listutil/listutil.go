package listutil

import (
	"net/url"
	"strconv"
)

// PageParams carries pagination parameters parsed from a request.
type PageParams struct {
	Page    int // 1-indexed
	PerPage int
}

// PageInfo carries pagination metadata for rendering and JSON responses.
type PageInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// DefaultPerPage is used when the caller does not configure a page size.
const DefaultPerPage = 25

// PerPageOptions are the page sizes a client may request with per_page.
var PerPageOptions = []int{10, 25, 50, 100}

// ParsePageParams extracts page and per_page from URL query values.
// A per_page outside PerPageOptions falls back to fallbackPerPage.
// PRE: fallbackPerPage >= 1
// POST: Page >= 1, PerPage >= 1
func ParsePageParams(q url.Values, fallbackPerPage int) PageParams {
	if fallbackPerPage < 1 {
		fallbackPerPage = DefaultPerPage
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if !isPerPageOption(perPage) {
		perPage = fallbackPerPage
	}
	return PageParams{Page: page, PerPage: perPage}
}

// PageCount returns ceil(total / perPage). It is 0 when total is 0.
func PageCount(total, perPage int) int {
	if total <= 0 || perPage < 1 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// NewPageInfo computes pagination metadata for a list view.
// PRE: total >= 0
// POST: TotalPages = PageCount(total, perPage); Page is clamped into [1, max(TotalPages, 1)]
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := PageCount(total, perPage)
	last := totalPages
	if last < 1 {
		last = 1
	}
	if page > last {
		page = last
	}
	if page < 1 {
		page = 1
	}
	return PageInfo{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Offset returns the zero-based index of the first item on the page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// StartRow returns the 1-indexed first row number on the current page.
// POST: Returns 0 if Total is 0, otherwise Offset+1
func (p PageInfo) StartRow() int {
	if p.Total == 0 {
		return 0
	}
	return p.Offset() + 1
}

// EndRow returns the 1-indexed last row number on the current page.
func (p PageInfo) EndRow() int {
	end := p.Offset() + p.PerPage
	if end > p.Total {
		end = p.Total
	}
	return end
}

// HasPrev reports whether a previous page exists.
func (p PageInfo) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a following page exists.
func (p PageInfo) HasNext() bool { return p.Page < p.TotalPages }

// PrevPage returns the previous page number, or 1.
func (p PageInfo) PrevPage() int {
	if p.Page > 1 {
		return p.Page - 1
	}
	return 1
}

// NextPage returns the next page number, or the current page on the last one.
func (p PageInfo) NextPage() int {
	if p.HasNext() {
		return p.Page + 1
	}
	return p.Page
}

// PageNumbers returns at most 5 page numbers centred on the current page.
// POST: empty when TotalPages is 0
func (p PageInfo) PageNumbers() []int {
	const maxButtons = 5
	if p.TotalPages == 0 {
		return []int{}
	}
	start := p.Page - maxButtons/2
	if start < 1 {
		start = 1
	}
	end := start + maxButtons - 1
	if end > p.TotalPages {
		end = p.TotalPages
		start = end - maxButtons + 1
		if start < 1 {
			start = 1
		}
	}
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

// ShowPagination reports whether pagination controls should be displayed.
func (p PageInfo) ShowPagination() bool {
	return p.TotalPages > 1
}

func isPerPageOption(n int) bool {
	for _, opt := range PerPageOptions {
		if n == opt {
			return true
		}
	}
	return false
}
