// Package handler holds the portal's page handlers.  Each handler renders a
// full HTML page or redirects; none of them returns JSON.
package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-portal/internal/authz"
	"github.com/iliyamo/clinic-portal/internal/clinicapi"
	"github.com/iliyamo/clinic-portal/internal/middleware"
	"github.com/iliyamo/clinic-portal/internal/pagination"
	"github.com/iliyamo/clinic-portal/internal/session"
	"github.com/iliyamo/clinic-portal/internal/view"
)

// apiTimeout bounds the API calls made while serving one page.
const apiTimeout = 15 * time.Second

// base carries what every handler needs to build a page.
type base struct {
	Log *zap.Logger
}

func newBase(log *zap.Logger) base {
	if log == nil {
		log = zap.NewNop()
	}
	return base{Log: log}
}

// page builds the common page data: the navigation shell from the resolved
// identity and the pending flash message.
func (b base) page(c echo.Context, title string, data any) view.Page {
	p := view.Page{Title: title, Data: data}
	if s := session.FromContext(c); s != nil {
		p.Flash = s.TakeFlash()
	}
	if id, ok := middleware.IdentityFrom(c); ok {
		p.Shell = view.NewShell(id.Summary, c.Request().URL.Path)
	}
	return p
}

func (b base) render(c echo.Context, name string, p view.Page) error {
	return c.Render(http.StatusOK, name, p)
}

// flashRedirect stores msg for the next page and redirects to target.
func flashRedirect(c echo.Context, msg, target string) error {
	if s := session.FromContext(c); s != nil && msg != "" {
		s.SetFlash(msg)
	}
	return c.Redirect(http.StatusFound, target)
}

func creds(c echo.Context) clinicapi.Credentials {
	s := session.FromContext(c)
	if s == nil {
		return nil
	}
	return authz.Credentials(s)
}

func apiContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), apiTimeout)
}

// table is the data of every paginated table page.
type table[T any] struct {
	Rows   []T
	Pager  view.Pager
	Failed bool
}

func newTable[T any](c echo.Context, res clinicapi.Result[[]T]) table[T] {
	p := pagination.Paginate(res.Data, pagination.ParsePage(c.QueryParam("page")), pagination.PageSize)
	return table[T]{Rows: p.Rows, Pager: view.NewPager(p, c.Request().URL), Failed: res.Failed()}
}

// localURL returns raw if it is a path on this site, fallback otherwise.
func localURL(raw, fallback string) string {
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(raw, "//") {
		return fallback
	}
	return u.RequestURI()
}

// referer returns the path of the page the request came from, when it is
// on this site.
func referer(c echo.Context, fallback string) string {
	ref := c.Request().Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != c.Request().Host) {
		return fallback
	}
	return localURL(u.RequestURI(), fallback)
}
