package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pages = []string{"home", "metrics", "forecast"}

// renderer holds one template set per page; each page defines "content".
type renderer struct {
	sets map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{sets: make(map[string]*template.Template, len(pages))}
	for _, p := range pages {
		t, err := template.New(p).ParseFS(templateFS, "templates/layout.html", "templates/"+p+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", p, err)
		}
		r.sets[p] = t
	}
	return r, nil
}

// render executes into a buffer first so a template error never leaves a
// half-written page.
func (r *renderer) render(c echo.Context, code int, page string, data interface{}) error {
	t, ok := r.sets[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	return c.HTMLBlob(code, buf.Bytes())
}

func staticHandler() echo.HandlerFunc {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return echo.WrapHandler(http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
}
