package business

import (
	"github.com/Agurato/marquee/internal/model"
)

// Paginater cuts listings into pages of a fixed size
type Paginater[T any] struct {
	itemsPerPage int
}

// NewPaginater instantiates a new Paginater
func NewPaginater[T any](itemsPerPage int) *Paginater[T] {
	return &Paginater[T]{
		itemsPerPage: max(1, itemsPerPage),
	}
}

// GetPagination returns the items of currentPage and the pagination around it.
// currentPage is clamped to the existing pages, an empty listing has one empty page.
func (p *Paginater[T]) GetPagination(currentPage int, items []T) ([]T, model.Pagination) {
	pageMax := max(1, (len(items)+p.itemsPerPage-1)/p.itemsPerPage)
	currentPage = min(max(1, currentPage), pageMax)

	start := min((currentPage-1)*p.itemsPerPage, len(items))
	end := min(start+p.itemsPerPage, len(items))

	return items[start:end], model.Pagination{
		Page:       currentPage,
		PerPage:    p.itemsPerPage,
		TotalPages: pageMax,
		TotalItems: len(items),
	}
}
