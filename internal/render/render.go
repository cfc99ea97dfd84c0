// Package render serves the HTML pages from templates embedded in the binary.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Shared files are parsed into every page.
var sharedFiles = []string{"layout.html", "partials.html"}

// Page is the data every template receives.
type Page struct {
	Title     string
	CSRFField template.HTML
	CSRFToken string
	Flashes   []auth.FlashMessage
	Identity  auth.Identity
	SignedIn  bool
	Data      any
}

// TemplateCache holds the parsed pages, each paired with the shared layout.
type TemplateCache struct {
	cache map[string]*template.Template
	mu    sync.RWMutex
	funcs template.FuncMap
	files fs.FS
}

func NewTemplateCache() *TemplateCache {
	return &TemplateCache{
		cache: make(map[string]*template.Template),
		funcs: template.FuncMap{
			"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
			"datetime": func(t time.Time) string {
				return t.UTC().Format("2006-01-02 15:04:05")
			},
		},
		files: templateFS,
	}
}

// Static serves the embedded stylesheet, scripts and images.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

func (tc *TemplateCache) AddFunc(name string, fn any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.funcs[name] = fn
}

// Load parses every page in the embedded templates directory.
func (tc *TemplateCache) Load() error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	files, err := fs.Glob(tc.files, "templates/*.html")
	if err != nil {
		return err
	}
	for _, file := range files {
		name := path.Base(file)
		if slices.Contains(sharedFiles, name) {
			continue
		}
		patterns := []string{file}
		for _, shared := range sharedFiles {
			patterns = append(patterns, "templates/"+shared)
		}
		tmpl, err := template.New(name).Funcs(tc.funcs).ParseFS(tc.files, patterns...)
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("Failed to parse template")
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		tc.cache[name] = tmpl
		log.Debug().Str("name", name).Msg("Cached template")
	}
	return nil
}

func (tc *TemplateCache) Get(name string) *template.Template {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.cache[name]
}

// Render executes the named page into a buffer before writing status.
func (tc *TemplateCache) Render(w http.ResponseWriter, status int, name string, page Page) error {
	tmpl := tc.Get(name)
	if tmpl == nil {
		return fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
