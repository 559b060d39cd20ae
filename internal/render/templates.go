// Package render loads the embedded HTML templates and renders card pages.
// Templates are embedded at compile time via go:embed.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path"

	"github.com/yuin/goldmark"

	"github.com/atinyakov/cardkeeper/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// UploadsPath is the URL prefix uploaded assets are served under.
const UploadsPath = "/static/uploads"

// Page template names.
const (
	PageIndex   = "index.html"
	PageCreate  = "create_card.html"
	PageView    = "view_card.html"
	PagePreview = "preview.html"
	PageSnap    = "download.html"
)

// PageData holds all data passed to templates for rendering.
type PageData struct {
	Title string
	Card  *models.Card
	// CardURL is the shareable link of Card, shown on the view page.
	CardURL string
}

// TemplateEngine loads and renders embedded HTML templates.
type TemplateEngine struct {
	templates  map[string]*template.Template
	standalone map[string]*template.Template
}

// templateFuncs returns the FuncMap shared by all templates. assetBase is
// prepended to uploaded filenames; an empty base yields bare filenames.
func templateFuncs(assetBase string) template.FuncMap {
	return template.FuncMap{
		"markdown": markdownToHTML,
		"raw":      func(s string) template.HTML { return template.HTML(s) },
		"css":      func(s string) template.CSS { return template.CSS(s) },
		"asset": func(card *models.Card, name string) string {
			if name == "" {
				return ""
			}
			if assetBase == "" {
				return name
			}
			return path.Join(assetBase, card.AssetPath(name))
		},
	}
}

// markdownToHTML converts a markdown string to HTML using goldmark.
// Raw HTML in the input is omitted.
func markdownToHTML(input string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(input), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(input))
	}
	return template.HTML(buf.String())
}

// NewTemplateEngine parses all embedded templates and returns a ready-to-use engine.
// Each page template is parsed together with the layout so that the layout wraps every page.
func NewTemplateEngine() (*TemplateEngine, error) {
	engine := &TemplateEngine{
		templates:  make(map[string]*template.Template),
		standalone: make(map[string]*template.Template),
	}

	funcs := templateFuncs(UploadsPath)
	for _, page := range []string{PageIndex, PageCreate, PageView, PagePreview} {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(
			templateFS,
			"templates/layout.html",
			"templates/card.html",
			"templates/"+page,
		)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		engine.templates[page] = t
	}

	// The download page ships inside the zip package next to the assets,
	// so it references images by bare filename.
	t, err := template.New(PageSnap).Funcs(templateFuncs("")).ParseFS(
		templateFS,
		"templates/card.html",
		"templates/"+PageSnap,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing standalone template %s: %w", PageSnap, err)
	}
	engine.standalone[PageSnap] = t

	return engine, nil
}

// Render executes the named template with the given data and writes the result
// to w. It sets the Content-Type header to text/html.
func (e *TemplateEngine) Render(w http.ResponseWriter, name string, data any) error {
	// Render into a buffer so a failing template never leaves a partial page.
	var buf bytes.Buffer
	if err := e.RenderTo(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

// RenderTo executes the named template with the given data and writes the
// result to an arbitrary io.Writer.
func (e *TemplateEngine) RenderTo(w io.Writer, name string, data any) error {
	t, ok := e.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	return t.ExecuteTemplate(w, "layout.html", data)
}

// RenderSnapshot writes the standalone download page for card.
func (e *TemplateEngine) RenderSnapshot(w io.Writer, card *models.Card) error {
	t, ok := e.standalone[PageSnap]
	if !ok {
		return fmt.Errorf("standalone template %q not found", PageSnap)
	}

	return t.Execute(w, PageData{Title: card.FullName(), Card: card})
}
