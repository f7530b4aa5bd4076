package view

import (
	"net/url"
	"strconv"

	"github.com/iliyamo/clinic-portal/internal/pagination"
)

// PagerLink is one pagination button.
type PagerLink struct {
	Label    string
	URL      string
	Active   bool
	Disabled bool
}

// Pager is the rendered button row under a table: previous, one button per
// page, next.  Buttons is empty when the collection is.
type Pager struct {
	Prev    PagerLink
	Buttons []PagerLink
	Next    PagerLink
}

// NewPager builds the buttons for p.  Links keep every query parameter of
// base and replace "page".
func NewPager[T any](p pagination.Page[T], base *url.URL) Pager {
	link := func(n int) string {
		u := *base
		q := u.Query()
		q.Set("page", strconv.Itoa(n))
		u.RawQuery = q.Encode()
		return u.RequestURI()
	}
	pg := Pager{
		Prev: PagerLink{Label: "Previous", Disabled: !p.HasPrev()},
		Next: PagerLink{Label: "Next", Disabled: !p.HasNext()},
	}
	if p.HasPrev() {
		pg.Prev.URL = link(p.Prev())
	}
	if p.HasNext() {
		pg.Next.URL = link(p.Next())
	}
	for _, n := range p.Numbers {
		pg.Buttons = append(pg.Buttons, PagerLink{
			Label:  strconv.Itoa(n),
			URL:    link(n),
			Active: n == p.Number,
		})
	}
	return pg
}
