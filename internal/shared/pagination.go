package shared

import (
	"net/url"
	"strconv"
)

const (
	defaultPerPage = 25
	maxPerPage     = 200
)

// Page is a requested window over a listing.
type Page struct {
	Number  int
	PerPage int
}

// PageFromQuery reads page and per_page query params with sane bounds.
func PageFromQuery(q url.Values) Page {
	p := Page{Number: 1, PerPage: defaultPerPage}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		p.Number = n
	}
	if n, err := strconv.Atoi(q.Get("per_page")); err == nil && n > 0 {
		p.PerPage = min(n, maxPerPage)
	}
	return p
}

// Offset is the number of rows to skip.
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.PerPage
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata.
func NewPagination(p Page, total int) Pagination {
	perPage := p.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	pages := (total + perPage - 1) / perPage
	return Pagination{Page: max(p.Number, 1), PerPage: perPage, Total: total, TotalPages: pages}
}

// HasNext reports whether another page follows.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// HasPrev reports whether a page precedes.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// PrevPage is the previous page number.
func (p Pagination) PrevPage() int { return max(p.Page-1, 1) }

// NextPage is the next page number.
func (p Pagination) NextPage() int { return p.Page + 1 }
