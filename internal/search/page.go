package search

import "github.com/bcnelson/app-catalog/internal/domain"

// DefaultPageSize is the number of applications shown per page.
const DefaultPageSize = 10

// Page is one slice of a result list.
type Page struct {
	Items      []*domain.Application `json:"items"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	Total      int                   `json:"total"`
	TotalPages int                   `json:"totalPages"`
}

// Paginate returns the requested 1-based page of apps.
// Non-positive sizes fall back to DefaultPageSize and the page is clamped into range.
func Paginate(apps []*domain.Application, page, pageSize int) *Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(apps)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	items := apps[start:end]
	if items == nil {
		items = []*domain.Application{}
	}

	return &Page{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}
