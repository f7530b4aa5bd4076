// Package pagination slices an in-memory collection into fixed-size pages
// for the table views.  The whole collection is always fetched up front.
package pagination

import "strconv"

// PageSize is the number of rows on every table page.
const PageSize = 10

// Page is one window over a collection together with the data needed to
// render the page buttons.
type Page[T any] struct {
	Rows    []T
	Number  int   // current page, 1-based
	Total   int   // number of pages
	Count   int   // number of items in the whole collection
	Numbers []int // 1..Total, one button each
}

// HasPrev reports whether the previous button is enabled.
func (p Page[T]) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether the next button is enabled.
func (p Page[T]) HasNext() bool { return p.Number < p.Total }

// Prev returns the previous page number.
func (p Page[T]) Prev() int { return p.Number - 1 }

// Next returns the next page number.
func (p Page[T]) Next() int { return p.Number + 1 }

// Empty reports whether there is nothing to show.
func (p Page[T]) Empty() bool { return len(p.Rows) == 0 }

// Paginate returns page number `page` of items using pages of `size` rows.
// Out-of-range page numbers are clamped to the first or last page.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size < 1 {
		size = PageSize
	}
	total := (len(items) + size - 1) / size
	if page > total {
		page = total
	}
	if page < 1 {
		page = 1
	}
	p := Page[T]{Number: page, Total: total, Count: len(items)}
	if total == 0 {
		p.Rows = []T{}
		return p
	}
	start := (page - 1) * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	p.Rows = items[start:end]
	p.Numbers = make([]int, total)
	for i := range p.Numbers {
		p.Numbers[i] = i + 1
	}
	return p
}

// ParsePage reads a page number from a query value, defaulting to 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
