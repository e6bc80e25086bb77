package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"caretrack/internal/adapters/http/middleware"
	"caretrack/internal/domain/program"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFiles embed.FS

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in program descriptions is dropped, not rendered.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// pageData is the value every page template executes against.
type pageData struct {
	Title   string
	Session *middleware.Session
	CSRF    template.HTML
	Flash   string
	Data    any
}

// IsAdmin reports whether the signed-in user may change programs.
func (p pageData) IsAdmin() bool {
	return p.Session != nil && p.Session.IsAdmin()
}

var templateFuncs = template.FuncMap{
	"markdown": func(md string) template.HTML {
		var buf bytes.Buffer
		if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
			return template.HTML(template.HTMLEscapeString(md))
		}
		return template.HTML(buf.String())
	},
	"number":     formatNumber,
	"chart":      newChart,
	"fieldTypes": func() []program.FieldType { return program.ValidTypes },
	"inputType":  inputType,
	"periodForm": newPeriodForm,
	"add":        func(a, b int) int { return a + b },
	"sub":        func(a, b int) int { return a - b },
}

// parsePages parses every page template together with the shared layout.
// Files starting with an underscore are partials available to every page.
func parsePages() (map[string]*template.Template, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	shared := []string{"templates/layout.html"}
	for _, path := range names {
		if strings.HasPrefix(strings.TrimPrefix(path, "templates/"), "_") {
			shared = append(shared, path)
		}
	}

	pages := make(map[string]*template.Template, len(names))
	for _, path := range names {
		name := strings.TrimPrefix(path, "templates/")
		if name == "layout.html" || strings.HasPrefix(name, "_") {
			continue
		}
		patterns := append(append([]string{}, shared...), path)
		tpl, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, patterns...)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tpl
	}
	return pages, nil
}

func staticFS() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// renderTemplate executes a page into a buffer so a failing template never
// leaves a half-written response.
func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	tpl, ok := s.pages[name]
	if !ok {
		s.internalError(w, r, fmt.Errorf("unknown template %q", name))
		return
	}
	pd := pageData{
		Title: title,
		CSRF:  csrf.TemplateField(r),
		Flash: r.URL.Query().Get("flash"),
		Data:  data,
	}
	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
		pd.Session = &sess
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, pd); err != nil {
		slog.Error("template_render_failed", "template", name, "error", err)
		http.Error(w, "Render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.renderTemplate(w, r, status, "error.html", http.StatusText(status), map[string]any{
		"Status":  status,
		"Message": message,
	})
}

// periodForm feeds the shared period selector.
type periodForm struct {
	Periods              []string
	Selected, Start, End string
}

func newPeriodForm(periods []string, selected, start, end string) periodForm {
	return periodForm{Periods: periods, Selected: selected, Start: start, End: end}
}

// formatNumber shows at most two decimals and drops trailing zeros.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "" || s == "-0" {
		return "0"
	}
	return s
}

func inputType(t program.FieldType) string {
	switch t {
	case program.TypeNumber:
		return "number"
	case program.TypeDate:
		return "date"
	default:
		return "text"
	}
}
