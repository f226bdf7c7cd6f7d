package util

import "strconv"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Meta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return (page - 1) * size, size
}

// Paginate cuts one page out of an already ordered result.
func Paginate[T any](items []T, page, size int) ([]T, Meta) {
	offset, limit := Calculate(page, size)
	if page < 1 {
		page = 1
	}
	total := int64(len(items))
	meta := Meta{
		Page:       page,
		Size:       limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
		HasPrev:    page > 1,
		HasNext:    int64(offset+limit) < total,
	}
	if offset >= len(items) {
		return []T{}, meta
	}
	end := min(offset+limit, len(items))
	return items[offset:end], meta
}
