package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultPerPage = 12
	MaxPerPage     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams returns the first page with the default page size.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: DefaultPerPage}
}

// FromRequest reads page and per_page from the query string. Values that
// are not positive integers, or a per_page above MaxPerPage, keep the default.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	p := DefaultParams()
	p.Page = positiveInt(q.Get("page"), p.Page, 0)
	p.PerPage = positiveInt(q.Get("per_page"), p.PerPage, MaxPerPage)
	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

func positiveInt(raw string, fallback, limit int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 || (limit > 0 && v > limit) {
		return fallback
	}
	return v
}

// Result wraps a paginated response.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult creates a paginated result for one page of data.
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	if params.PerPage <= 0 {
		params.PerPage = DefaultPerPage
	}
	totalPages := totalCount / params.PerPage
	if totalCount%params.PerPage > 0 {
		totalPages++
	}
	if data == nil {
		data = []T{}
	}

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}

// Paginate cuts the requested page out of an in-memory list.
func Paginate[T any](all []T, params Params) Result[T] {
	start := params.Offset
	if start > len(all) {
		start = len(all)
	}
	end := start + params.PerPage
	if end > len(all) {
		end = len(all)
	}

	page := make([]T, end-start)
	copy(page, all[start:end])
	return NewResult(page, len(all), params)
}
