// Package pagination slices an in-memory result set into fixed-size pages.
//
// The cursor is owned by the Paginator and survives SetItems, so a poll that
// replaces the list does not move the operator off the page being read. Only
// Reset (a new monitoring session) or the caller returns it to page 1.
package pagination

import (
	"fmt"
	"sync"
)

// DefaultPageSize is the number of rows per page.
const DefaultPageSize = 10

// Page is the derived display state of one page.
type Page[T any] struct {
	Items        []T
	Number       int
	TotalPages   int
	Total        int
	Start        int // index of Items[0] in the full set
	Indicator    string
	PrevDisabled bool
	NextDisabled bool
}

// Paginator holds a full list and a 1-based page cursor.
type Paginator[T any] struct {
	mu       sync.RWMutex
	items    []T
	page     int
	pageSize int
}

// New returns a paginator on page 1. pageSize <= 0 uses DefaultPageSize.
func New[T any](pageSize int) *Paginator[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Paginator[T]{page: 1, pageSize: pageSize}
}

// SetItems replaces the full list. The cursor is left unchanged.
func (p *Paginator[T]) SetItems(items []T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = items
}

// Items returns the full list.
func (p *Paginator[T]) Items() []T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.items
}

// Len returns the size of the full list.
func (p *Paginator[T]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}

// Page returns the current cursor.
func (p *Paginator[T]) Page() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.page
}

// Change moves the cursor by delta. It does not clamp; the disabled flags of
// Render are the only guard.
func (p *Paginator[T]) Change(delta int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.page += delta
	return p.page
}

// Reset returns the cursor to page 1.
func (p *Paginator[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.page = 1
}

// Render derives the current page. Out-of-range cursors yield an empty page.
func (p *Paginator[T]) Render() Page[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()

	total := len(p.items)
	start := (p.page - 1) * p.pageSize
	end := start + p.pageSize

	pages := (total + p.pageSize - 1) / p.pageSize
	if pages == 0 {
		pages = 1
	}

	var items []T
	if start >= 0 && start < total {
		items = p.items[start:min(end, total)]
	}

	return Page[T]{
		Items:        items,
		Number:       p.page,
		TotalPages:   pages,
		Total:        total,
		Start:        start,
		Indicator:    fmt.Sprintf("Page %d of %d", p.page, pages),
		PrevDisabled: p.page == 1,
		NextDisabled: end >= total,
	}
}
