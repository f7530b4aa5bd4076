package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginateButtonsAndRows(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 11, 20, 25, 99, 100, 101} {
		items := seq(n)
		pages := (n + PageSize - 1) / PageSize
		first := Paginate(items, 1, PageSize)
		assert.Len(t, first.Numbers, pages, "n=%d", n)
		assert.Equal(t, pages, first.Total, "n=%d", n)

		for p := 1; p <= pages; p++ {
			page := Paginate(items, p, PageSize)
			lo := (p - 1) * PageSize
			hi := p * PageSize
			if hi > n {
				hi = n
			}
			assert.Equal(t, items[lo:hi], page.Rows, "n=%d p=%d", n, p)
		}
	}
}

func TestPaginatePrevNext(t *testing.T) {
	items := seq(25)

	p1 := Paginate(items, 1, PageSize)
	assert.False(t, p1.HasPrev())
	assert.True(t, p1.HasNext())

	p2 := Paginate(items, 2, PageSize)
	assert.True(t, p2.HasPrev())
	assert.True(t, p2.HasNext())
	assert.Equal(t, 1, p2.Prev())
	assert.Equal(t, 3, p2.Next())

	p3 := Paginate(items, 3, PageSize)
	assert.True(t, p3.HasPrev())
	assert.False(t, p3.HasNext())
	assert.Equal(t, []int{20, 21, 22, 23, 24}, p3.Rows)
}

func TestPaginateClamps(t *testing.T) {
	items := seq(15)
	assert.Equal(t, 2, Paginate(items, 7, PageSize).Number)
	assert.Equal(t, 1, Paginate(items, -3, PageSize).Number)

	empty := Paginate([]int{}, 4, PageSize)
	assert.True(t, empty.Empty())
	assert.Equal(t, 0, empty.Total)
	assert.False(t, empty.HasNext())
	assert.False(t, empty.HasPrev())
}

func TestParsePage(t *testing.T) {
	assert.Equal(t, 1, ParsePage(""))
	assert.Equal(t, 1, ParsePage("abc"))
	assert.Equal(t, 1, ParsePage("0"))
	assert.Equal(t, 4, ParsePage("4"))
}
