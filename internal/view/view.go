// Package view renders the portal's HTML pages.  Every page is one
// template file parsed together with the shared layout and partials.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-portal/internal/authz"
)

//go:embed templates/*.html
var templateFS embed.FS

var shared = []string{"templates/layout.html", "templates/partials.html"}

// Page is the data every template receives.
type Page struct {
	Title string
	Shell *Shell // nil on pages shown before login
	Flash string
	Modal *Modal
	Data  any
}

// Modal is the one-shot dialog shown over a page.  With a CloseURL the
// dismiss button navigates there; without one it just closes the dialog.
type Modal struct {
	Message  string
	CloseURL string
	Label    string
}

// Alert builds a single-button modal.
func Alert(msg string) *Modal { return &Modal{Message: msg} }

// NavItem is one entry of the side bar.
type NavItem struct {
	Path  string
	Label string
}

// Shell is the navigation side bar: who is logged in and where they may go.
type Shell struct {
	Summary authz.Summary
	Active  string
	Items   []NavItem
}

var navItems = []NavItem{
	{Path: "/main", Label: "หน้าหลัก"},
	{Path: "/patient", Label: "เฉพาะผู้ป่วย"},
	{Path: "/doctor", Label: "เฉพาะแพทย์"},
}

// NewShell builds the side bar for a request to requestPath.  All entries
// are listed; permission is checked when one is followed.
func NewShell(sum authz.Summary, requestPath string) *Shell {
	return &Shell{Summary: sum, Active: topLevel(requestPath), Items: navItems}
}

func topLevel(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = "/" + strings.TrimLeft(p, "/")
	if i := strings.Index(p[1:], "/"); i >= 0 {
		p = p[:i+1]
	}
	if p == "/" {
		return "/main"
	}
	return p
}

// Renderer implements echo.Renderer.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page template.
func New() (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, f := range files {
		name := path.Base(f)
		if name == "layout.html" || name == "partials.html" {
			continue
		}
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, append(shared, f)...)
		if err != nil {
			return nil, fmt.Errorf("view: parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes the layout of the named page.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("view: no page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

var funcs = template.FuncMap{
	"thaiDate": ThaiDate,
	"orDash": func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "-"
		}
		return s
	},
}
