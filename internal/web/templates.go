package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"mspro-labs/phone-advisor/internal/models"
)

var pageNames = []string{"home", "search", "find", "phone", "compare", "chat", "error"}

// Raw HTML in model output is escaped, not rendered.
var md = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// renderMarkdown converts model output to HTML.
func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

var funcMap = template.FuncMap{
	"markdown": renderMarkdown,
	"inr":      models.FormatINR,
	"pct":      func(f float32) float32 { return f * 100 },
	"join":     strings.Join,
	"inc":      func(i int) int { return i + 1 },
	"has": func(list []string, s string) bool {
		for _, v := range list {
			if v == s {
				return true
			}
		}
		return false
	},
}

type pageTemplate struct {
	*template.Template
}

// parsePages builds one template per page: the shared base plus the page
// file, parsed separately so each page's blocks stay its own.
func parsePages(fsys fs.FS) (map[string]*pageTemplate, error) {
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(fsys, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base template: %w", err)
	}
	pages := make(map[string]*pageTemplate, len(pageNames))
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if t, err = t.ParseFS(fsys, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = &pageTemplate{t}
	}
	return pages, nil
}

// render executes a page into a buffer first so template errors can still
// produce a clean 500.
func (s *Server) render(c *gin.Context, status int, page string, data gin.H) {
	t, ok := s.pages[page]
	if !ok {
		c.String(http.StatusInternalServerError, "unknown page %q", page)
		return
	}
	if data == nil {
		data = gin.H{}
	}
	data["Page"] = page
	data["AIEnabled"] = s.deps.Generator != nil
	data["AIStatus"] = s.aiStatus()
	data["SearchEnabled"] = s.deps.Embedder != nil

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base.html", data); err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Template error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) renderError(c *gin.Context, status int, msg string) {
	s.render(c, status, "error", gin.H{"Title": "Error", "Message": msg})
}
