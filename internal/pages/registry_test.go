package pages

import (
	"testing"

	"github.com/robwestplumbing/sitecms/internal/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePages() []content.PageDescriptor {
	pageList := content.Defaults().Pages
	return append(pageList,
		content.PageDescriptor{ID: "faq", Label: "FAQ", Kind: content.PageCustom, Enabled: true, Order: 4, Title: "Questions", Body: "# Ask"},
		content.PageDescriptor{ID: "old", Label: "Old", Kind: content.PageCustom, Enabled: false, Order: 5},
	)
}

func TestResolve(t *testing.T) {
	pageList := samplePages()

	tests := []struct {
		id       string
		renderer string
		pageID   string
	}{
		{"home", RendererHome, "home"},
		{"services", RendererServices, "services"},
		{"ABOUT", RendererAbout, "about"},
		{"staff", RendererDashboard, "staff"},
		{"dashboard", RendererDashboard, "dashboard"},
		{"faq", RendererCustom, "faq"},
		{"old", RendererHome, "home"},
		{"missing", RendererHome, "home"},
		{"", RendererHome, "home"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := Resolve(tt.id, pageList)
			assert.Equal(t, tt.renderer, got.Renderer)
			assert.Equal(t, tt.pageID, got.PageID)
		})
	}

	faq := Resolve("faq", pageList)
	assert.Equal(t, "Questions", faq.Title)
	assert.Equal(t, "# Ask", faq.Body)
}

func TestResolveCustomPageCannotShadowFixed(t *testing.T) {
	pageList := []content.PageDescriptor{{ID: "staff", Label: "Staff", Kind: content.PageCustom, Enabled: true}}
	assert.Equal(t, RendererDashboard, Resolve("staff", pageList).Renderer)
}

func TestDisabledFixedPageHiddenButReachable(t *testing.T) {
	pageList := content.Defaults().Pages
	i, ok := (&content.SiteContent{Pages: pageList}).Page("services")
	require.True(t, ok)
	pageList[i].Enabled = false

	for _, item := range Menu(pageList) {
		assert.NotEqual(t, "services", item.ID)
	}
	got := Resolve("services", pageList)
	assert.Equal(t, RendererServices, got.Renderer)
	assert.False(t, got.Enabled)
}

func TestMenuOrder(t *testing.T) {
	pageList := []content.PageDescriptor{
		{ID: "c", Label: "C", Enabled: true, Order: 2},
		{ID: "a", Label: "A", Enabled: true, Order: 0},
		{ID: "x", Label: "X", Enabled: false, Order: 1},
		{ID: "b", Label: "B", Enabled: true, Order: 2},
	}
	assert.Equal(t, []MenuItem{{"a", "A"}, {"c", "C"}, {"b", "B"}}, Menu(pageList))
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"FAQ":                "faq",
		"Water Heaters":      "water-heaters",
		"  Drain & Sewer!! ": "drain-sewer",
		"Café Plumbing":      "cafe-plumbing",
		"24/7 Emergency":     "24-7-emergency",
		"***":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestNextOrder(t *testing.T) {
	assert.Equal(t, 4, NextOrder(content.Defaults().Pages))
	assert.Equal(t, 0, NextOrder(nil))
}

func TestIsReserved(t *testing.T) {
	assert.True(t, IsReserved("staff"))
	assert.True(t, IsReserved("home"))
	assert.False(t, IsReserved("faq"))
}
