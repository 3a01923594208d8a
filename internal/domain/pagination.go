package domain

import "math"

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps Offset within int for any accepted limit.
	MaxPage = math.MaxInt32 / MaxLimit
)

// Page is a normalized page request.
type Page struct {
	Number int
	Limit  int
}

// NewPage clamps raw page/limit values to usable ones.
func NewPage(number, limit int) Page {
	if number < 1 {
		number = DefaultPage
	}
	if number > MaxPage {
		number = MaxPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Number: number, Limit: limit}
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// PageMeta describes a page of results.
type PageMeta struct {
	TotalItems   int64 `json:"totalItems"`
	TotalPages   int   `json:"totalPages"`
	CurrentPage  int   `json:"currentPage"`
	ItemsPerPage int   `json:"itemsPerPage"`
}

func NewPageMeta(p Page, total int64) PageMeta {
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return PageMeta{
		TotalItems:   total,
		TotalPages:   pages,
		CurrentPage:  p.Number,
		ItemsPerPage: p.Limit,
	}
}

// Paginated is a page of items plus its metadata.
type Paginated[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}
