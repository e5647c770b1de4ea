package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// New returns params for page and perPage, clamping both into range.
func New(page, perPage int) Params {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Params{Page: page, PerPage: perPage, Offset: (page - 1) * perPage}
}

// FromRequest reads page and per_page (or page_size) with the default page size.
func FromRequest(r *http.Request) Params {
	return FromRequestWithDefault(r, DefaultPerPage)
}

// FromRequestWithDefault is FromRequest with a resource-specific default size.
// Invalid values fall back to defaults; sizes above MaxPerPage are capped.
func FromRequestWithDefault(r *http.Request, defaultPerPage int) Params {
	q := r.URL.Query()

	page := 1
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		page = v
	}

	perPage := defaultPerPage
	raw := q.Get("per_page")
	if raw == "" {
		raw = q.Get("page_size")
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		perPage = v
	}
	return New(page, perPage)
}

// TotalPages returns the page count for total items.
func (p Params) TotalPages(total int) int {
	if p.PerPage <= 0 {
		return 0
	}
	return (total + p.PerPage - 1) / p.PerPage
}
