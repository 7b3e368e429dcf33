package models

import "math"

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxOffset bounds every list window so offsets stay exact integers in
	// each store.
	MaxOffset = math.MaxInt32
)

// Filter narrows FindMany. The zero value selects active resources only;
// soft-deleted rows are included only when IncludeDeleted is set explicitly.
type Filter struct {
	IncludeDeleted bool
}

// PageRequest is an offset/limit window over resources ordered by ascending ID.
type PageRequest struct {
	Offset int
	Limit  int
}

// NewPageRequest builds a window from a 1-based page number using the
// default limits.
func NewPageRequest(page, limit int) PageRequest {
	return PageRequest{Limit: limit}.Normalize(DefaultLimit, MaxLimit).At(page)
}

// At moves the window to the start of the 1-based page. Pages below 1 map to
// the first page; pages past MaxOffset saturate at it.
func (p PageRequest) At(page int) PageRequest {
	p.Offset = 0
	if page <= 1 {
		return p
	}
	if !p.PageInRange(page) {
		p.Offset = MaxOffset
		return p
	}
	p.Offset = (page - 1) * p.Limit
	return p
}

// PageInRange reports whether the 1-based page starts at or before MaxOffset
// for the window's limit.
func (p PageRequest) PageInRange(page int) bool {
	if page <= 1 || p.Limit <= 0 {
		return true
	}
	return page-1 <= MaxOffset/p.Limit
}

// Normalize clamps the window: a non-positive limit becomes def, a limit above
// max becomes max, a negative offset becomes zero and an offset above
// MaxOffset becomes MaxOffset.
func (p PageRequest) Normalize(def, max int) PageRequest {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if max > 0 && p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Offset > MaxOffset {
		p.Offset = MaxOffset
	}
	return p
}

// Page returns the 1-based page number the window starts on.
func (p PageRequest) Page() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

// Page is the list response: the window's items plus totals for the filter.
type Page[T any] struct {
	Data      []T `json:"data"`
	Count     int `json:"count"`
	Total     int `json:"total"`
	Page      int `json:"page"`
	PageCount int `json:"pageCount"`
}

// NewPage assembles a Page for items fetched with req out of total matches.
func NewPage[T any](items []T, total int, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	pageCount := 0
	if req.Limit > 0 {
		pageCount = (total + req.Limit - 1) / req.Limit
	}
	return Page[T]{
		Data:      items,
		Count:     len(items),
		Total:     total,
		Page:      req.Page(),
		PageCount: pageCount,
	}
}
