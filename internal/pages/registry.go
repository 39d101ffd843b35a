// Package pages resolves page identifiers to render targets and builds the
// navigation menu from the page list.
package pages

import (
	"sort"
	"strings"
	"unicode"

	"github.com/robwestplumbing/sitecms/internal/content"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Renderer names.
const (
	RendererHome      = "home"
	RendererServices  = "services"
	RendererCommunity = "community"
	RendererAbout     = "about"
	RendererDashboard = "dashboard"
	RendererCustom    = "custom"
)

// dedicated maps identifiers that always win over custom pages.
var dedicated = map[string]string{
	"home":      RendererHome,
	"services":  RendererServices,
	"community": RendererCommunity,
	"about":     RendererAbout,
	"dashboard": RendererDashboard,
	"staff":     RendererDashboard,
}

// IsReserved reports whether id can never be used by a custom page.
func IsReserved(id string) bool {
	_, ok := dedicated[id]
	return ok
}

// RenderTarget tells the UI which renderer to use and, for custom pages,
// what to put in it.
type RenderTarget struct {
	Renderer string           `json:"renderer"`
	PageID   string           `json:"pageId"`
	Title    string           `json:"title,omitempty"`
	Body     string           `json:"body,omitempty"`
	BodyHTML string           `json:"bodyHtml,omitempty"`
	Summary  string           `json:"summary,omitempty"`
	Image    content.ImageRef `json:"image,omitempty"`
	Enabled  bool             `json:"enabled"`
}

// Resolve maps a requested identifier to a render target. Dedicated
// identifiers come first, then enabled custom pages; everything else falls
// back to home. Disabled fixed pages still resolve: enabled only controls
// menu visibility.
func Resolve(requestedID string, pageList []content.PageDescriptor) RenderTarget {
	id := strings.ToLower(strings.TrimSpace(requestedID))

	if renderer, ok := dedicated[id]; ok {
		t := RenderTarget{Renderer: renderer, PageID: id, Enabled: true}
		for _, p := range pageList {
			if p.ID == id {
				t.Title = p.Label
				t.Enabled = p.Enabled
				break
			}
		}
		return t
	}

	for _, p := range pageList {
		if p.ID != id || p.Kind != content.PageCustom {
			continue
		}
		if !p.Enabled {
			break
		}
		title := p.Title
		if title == "" {
			title = p.Label
		}
		return RenderTarget{
			Renderer: RendererCustom,
			PageID:   p.ID,
			Title:    title,
			Body:     p.Body,
			Image:    p.Image,
			Enabled:  true,
		}
	}

	return Resolve(RendererHome, pageList)
}

// MenuItem is one navigation entry.
type MenuItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Menu returns the enabled pages ordered by their order field. Pages with the
// same order keep their list position.
func Menu(pageList []content.PageDescriptor) []MenuItem {
	enabled := make([]content.PageDescriptor, 0, len(pageList))
	for _, p := range pageList {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool { return enabled[i].Order < enabled[j].Order })

	items := make([]MenuItem, len(enabled))
	for i, p := range enabled {
		items[i] = MenuItem{ID: p.ID, Label: p.Label}
	}
	return items
}

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify turns a page label into a URL-safe identifier: accents are
// stripped, letters lowercased and every run of other characters becomes a
// single hyphen.
func Slugify(label string) string {
	folded, _, err := transform.String(stripMarks, label)
	if err != nil {
		folded = label
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// NextOrder is one past the highest order in the list.
func NextOrder(pageList []content.PageDescriptor) int {
	next := 0
	for _, p := range pageList {
		if p.Order >= next {
			next = p.Order + 1
		}
	}
	return next
}
