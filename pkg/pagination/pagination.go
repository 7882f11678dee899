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
}

// Offset is the number of rows to skip for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Limit is the number of rows in a page.
func (p Params) Limit() int {
	return p.PerPage
}

// FromRequest reads ?page and ?per_page. Invalid values fall back to
// defaults and per_page is capped at MaxPerPage.
func FromRequest(r *http.Request) Params {
	p := Params{Page: 1, PerPage: DefaultPerPage}
	q := r.URL.Query()

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 {
		p.PerPage = min(v, MaxPerPage)
	}
	return p
}
