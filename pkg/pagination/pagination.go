package pagination

import (
	"math"
	"net/http"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxPage keeps (page-1)*MaxPageSize within int.
	MaxPage = math.MaxInt / MaxPageSize
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// DefaultParams returns the first page at the default size.
func DefaultParams() Params {
	return Params{Page: 1, PageSize: DefaultPageSize}
}

// Clamp forces page into [1, MaxPage] and pageSize into [1, MaxPageSize].
func Clamp(page, pageSize int) Params {
	return Params{
		Page:     min(max(page, 1), MaxPage),
		PageSize: min(max(pageSize, 1), MaxPageSize),
	}
}

// Offset is the number of rows preceding the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// FromRequest reads page and page_size. Values that do not parse fall back to
// the defaults; parsed values are clamped.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	d := DefaultParams()
	return Clamp(intOr(q.Get("page"), d.Page), intOr(q.Get("page_size"), d.PageSize))
}

func intOr(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
