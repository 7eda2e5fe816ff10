// Package view renders the server-side pages of the tutor front end.
package view

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/gema-tutor-web/internal/dto"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

const layoutFile = "templates/layout.html"

// ErrUnknownTemplate is returned when rendering a page that was never loaded.
var ErrUnknownTemplate = errors.New("unknown template")

// Page is the binding passed to every template.
type Page struct {
	Title  string
	Active string
	Theme  string
	// Flash is an inline validation or refusal message.
	Flash  string
	Notice string
	Data   interface{}
}

// Engine implements fiber.Views over the embedded templates.
type Engine struct {
	mu     sync.RWMutex
	policy *bluemonday.Policy
	pages  map[string]*template.Template
}

// New creates an engine. Call Load before rendering; Fiber does this on startup.
func New() *Engine {
	return &Engine{policy: newPolicy()}
}

// Load parses every page template together with the shared layout.
func (e *Engine) Load() error {
	entries, err := fs.Glob(templateFiles, "templates/*.html")
	if err != nil {
		return err
	}

	pages := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		if entry == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(entry), ".html")
		tmpl, err := template.New(name).Funcs(e.funcs()).ParseFS(templateFiles, layoutFile, entry)
		if err != nil {
			return fmt.Errorf("parse %s: %w", entry, err)
		}
		pages[name] = tmpl
	}

	e.mu.Lock()
	e.pages = pages
	e.mu.Unlock()
	return nil
}

// Render executes the named page inside the layout. The layout argument is
// accepted for fiber.Views compatibility; every page shares one layout.
func (e *Engine) Render(w io.Writer, name string, binding interface{}, _ ...string) error {
	e.mu.RLock()
	tmpl, ok := e.pages[name]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	return tmpl.ExecuteTemplate(w, "layout", binding)
}

// Static exposes stylesheets and scripts.
func Static() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

func (e *Engine) funcs() template.FuncMap {
	return template.FuncMap{
		"rich": e.Rich,
		"join": strings.Join,
		"inc": func(n int) int {
			return n + 1
		},
		"kb": func(size int64) string {
			if size <= 0 {
				return "unknown size"
			}
			return fmt.Sprintf("%.1f KB", float64(size)/1024)
		},
		"when": func(ts dto.Timestamp) string {
			if ts.IsZero() {
				return ""
			}
			return ts.Local().Format("Jan 2, 15:04")
		},
	}
}
