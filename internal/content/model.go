// Package content defines the site content document, its canonical defaults
// and the field-level helpers the synchronizer uses to diff, rebase and
// partition it.
package content

import "strings"

// Stable document locations.
const (
	ContentPath       = "site/content"
	LogoPath          = "site/logo"
	GalleryCollection = "gallery"
	ReviewsCollection = "reviews"
)

// Top-level keys of the content document.
const (
	SectionGlobal    = "global"
	SectionHome      = "home"
	SectionServices  = "services"
	SectionCommunity = "community"
	SectionAbout     = "about"
	KeyPages         = "pages"
	KeyMeta          = "meta"
)

// Sections lists every top-level section in document order.
var Sections = []string{SectionGlobal, SectionHome, SectionServices, SectionCommunity, SectionAbout}

// ImageSections are the sections that carry an images gallery.
var ImageSections = []string{SectionHome, SectionServices, SectionCommunity, SectionAbout}

// FixedPageIDs always exist in the page list and cannot be deleted.
var FixedPageIDs = []string{"home", "services", "community", "about"}

// IsFixedPage reports whether id is one of FixedPageIDs.
func IsFixedPage(id string) bool {
	for _, f := range FixedPageIDs {
		if f == id {
			return true
		}
	}
	return false
}

// ImageRef is either an external URL or an inline data URL.
type ImageRef string

const inlineJPEGPrefix = "data:image/jpeg;base64,"

// InlineJPEG wraps base64 JPEG data as a data URL.
func InlineJPEG(b64 string) ImageRef {
	return ImageRef(inlineJPEGPrefix + b64)
}

func (r ImageRef) IsInline() bool {
	return strings.HasPrefix(string(r), "data:")
}

func (r ImageRef) IsEmpty() bool {
	return r == ""
}

type PageKind string

const (
	PageFixed  PageKind = "fixed"
	PageCustom PageKind = "custom"
)

type PageDescriptor struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Kind    PageKind `json:"type"`
	Enabled bool     `json:"enabled"`
	Order   int      `json:"order"`
	Title   string   `json:"title"`
	Body    string   `json:"content"`
	Image   ImageRef `json:"image"`
}

type SocialLinks struct {
	Facebook  string `json:"facebook"`
	Instagram string `json:"instagram"`
	Youtube   string `json:"youtube"`
}

type GlobalSettings struct {
	Logo    ImageRef    `json:"logo"`
	Phone   string      `json:"phone"`
	Address string      `json:"address"`
	Hours   string      `json:"hours"`
	License string      `json:"license"`
	Email   string      `json:"email"`
	Tagline string      `json:"tagline"`
	Social  SocialLinks `json:"social"`
}

type HomeSection struct {
	HeroTitle     string     `json:"heroTitle"`
	HeroSubtitle  string     `json:"heroSubtitle"`
	HeroImage     ImageRef   `json:"heroImage"`
	PromoText     string     `json:"promoText"`
	PromoLinkText string     `json:"promoLinkText"`
	PromoLinkURL  string     `json:"promoLinkUrl"`
	Images        []ImageRef `json:"images"`
}

type Section struct {
	Title       string     `json:"title"`
	Subtitle    string     `json:"subtitle"`
	Description string     `json:"description"`
	Image       ImageRef   `json:"image"`
	Images      []ImageRef `json:"images"`
}

type TeamMember struct {
	Name  string   `json:"name"`
	Role  string   `json:"role"`
	Bio   string   `json:"bio"`
	Image ImageRef `json:"image"`
}

// NewTeamMember is the placeholder inserted by "add member".
func NewTeamMember() TeamMember {
	return TeamMember{Name: "New Member", Role: "Role", Bio: "Bio..."}
}

type AboutSection struct {
	Section
	Team []TeamMember `json:"team"`
}

// SiteContent is the singleton content document after defaults are applied.
type SiteContent struct {
	Pages     []PageDescriptor `json:"pages"`
	Global    GlobalSettings   `json:"global"`
	Home      HomeSection      `json:"home"`
	Services  Section          `json:"services"`
	Community Section          `json:"community"`
	About     AboutSection     `json:"about"`
}

// Clone returns a copy that shares no slices with c.
func (c SiteContent) Clone() SiteContent {
	out := c
	out.Pages = append([]PageDescriptor{}, c.Pages...)
	out.Home.Images = append([]ImageRef{}, c.Home.Images...)
	out.Services.Images = append([]ImageRef{}, c.Services.Images...)
	out.Community.Images = append([]ImageRef{}, c.Community.Images...)
	out.About.Images = append([]ImageRef{}, c.About.Images...)
	out.About.Team = append([]TeamMember{}, c.About.Team...)
	return out
}

// SectionImages returns a pointer to the images slice of an image section.
func (c *SiteContent) SectionImages(section string) (*[]ImageRef, bool) {
	switch section {
	case SectionHome:
		return &c.Home.Images, true
	case SectionServices:
		return &c.Services.Images, true
	case SectionCommunity:
		return &c.Community.Images, true
	case SectionAbout:
		return &c.About.Images, true
	}
	return nil, false
}

// Page finds a page by id.
func (c *SiteContent) Page(id string) (int, bool) {
	for i, p := range c.Pages {
		if p.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (c *SiteContent) normalize() {
	if c.Pages == nil {
		c.Pages = []PageDescriptor{}
	}
	for _, section := range ImageSections {
		images, _ := c.SectionImages(section)
		if *images == nil {
			*images = []ImageRef{}
		}
	}
	if c.About.Team == nil {
		c.About.Team = []TeamMember{}
	}
}
