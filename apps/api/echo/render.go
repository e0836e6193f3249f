package echoapi

import (
	"bytes"
	"html/template"
	"io"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/fortytworoma/monitor/core"
)

// mdRenderer converts announcement markdown to HTML. Raw HTML in the input is
// escaped (WithUnsafe is not set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

type renderer struct {
	templates *template.Template
}

var _ echo.Renderer = (*renderer)(nil) // interface compliance check

func newRenderer(conf *core.Config) *renderer {
	funcs := template.FuncMap{
		"markdown": renderMarkdown,
		"datetime": func(t time.Time) string { return t.Local().Format("Mon 02 Jan 15:04") },
		"clock":    func(t time.Time) string { return t.Local().Format("15:04") },
	}
	glob := filepath.Join(conf.WorkDir, "web", "templates", "*.gohtml")
	return &renderer{
		templates: template.Must(template.New("").Funcs(funcs).ParseGlob(glob)),
	}
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
