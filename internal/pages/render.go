package pages

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Renderer converts custom page bodies from markdown. Raw HTML in bodies is
// not passed through.
type Renderer struct {
	md goldmark.Markdown
}

func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
	}
}

type bodyMatter struct {
	Title   string `yaml:"title"`
	Summary string `yaml:"summary"`
}

// Render fills BodyHTML, and Summary when the body starts with a front
// matter block. Targets other than custom pages are returned unchanged.
func (r *Renderer) Render(t RenderTarget) (RenderTarget, error) {
	if t.Renderer != RendererCustom {
		return t, nil
	}

	body := []byte(t.Body)
	var meta bodyMatter
	if rest, err := frontmatter.Parse(bytes.NewReader(body), &meta); err == nil {
		body = rest
		if meta.Title != "" {
			t.Title = meta.Title
		}
		t.Summary = meta.Summary
	}
	if t.Title == "" {
		t.Title = cases.Title(language.English).String(strings.ReplaceAll(t.PageID, "-", " "))
	}

	var buf bytes.Buffer
	if err := r.md.Convert(body, &buf); err != nil {
		return t, fmt.Errorf("render page %s: %w", t.PageID, err)
	}
	t.BodyHTML = buf.String()
	return t, nil
}
