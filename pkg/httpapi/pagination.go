package httpapi

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// PageOpts carries offset pagination and sorting options.
type PageOpts struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string // "asc" or "desc"
}

// Clamp normalizes page and limit into their allowed ranges and
// lower-cases the sort order.
func (p PageOpts) Clamp() PageOpts {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	p.SortOrder = strings.ToLower(p.SortOrder)
	if p.SortOrder != "asc" {
		p.SortOrder = "desc"
	}
	return p
}

// Offset returns the row offset for the clamped options.
func (p PageOpts) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageOptsFromRequest parses page, limit, sortBy and sortOrder query params.
func PageOptsFromRequest(r *http.Request) PageOpts {
	q := r.URL.Query()
	opts := PageOpts{
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		opts.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = v
	}
	return opts.Clamp()
}
