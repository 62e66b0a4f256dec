// Package web renders the server-side feed and post pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates holds the parsed HTML templates.
type Templates struct {
	templates *template.Template
}

// NewTemplates parses the embedded templates. now anchors relative timestamps; nil means time.Now.
func NewTemplates(now func() time.Time) (*Templates, error) {
	if now == nil {
		now = time.Now
	}
	funcs := template.FuncMap{
		"since": func(t time.Time) string {
			return humanize.RelTime(t, now(), "ago", "from now")
		},
		"rfc3339": func(t time.Time) string {
			return t.UTC().Format(time.RFC3339)
		},
	}
	tmpl, err := template.New("chirp").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Templates{templates: tmpl}, nil
}

// Render executes the named template with status. The page is buffered so a
// failing template never leaves a half-written response.
func (t *Templates) Render(w http.ResponseWriter, status int, name string, data interface{}) error {
	tmpl := t.templates.Lookup(name)
	if tmpl == nil {
		return fmt.Errorf("template %q not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute template %q: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
