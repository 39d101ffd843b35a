package dto

import (
	"github.com/robwestplumbing/sitecms/internal/content"
	"github.com/robwestplumbing/sitecms/internal/contentsync"
	"github.com/robwestplumbing/sitecms/internal/pages"
)

// ContentResponse is the live site content as visitors see it.
type ContentResponse struct {
	Loaded  bool                  `json:"loaded"`
	Content content.SiteContent   `json:"content"`
	Gallery []content.GalleryItem `json:"gallery"`
}

type NavigationResponse struct {
	Items []pages.MenuItem `json:"items"`
}

// EditorSessionResponse is an editor's working copy and its save state.
type EditorSessionResponse struct {
	Status contentsync.Status  `json:"status"`
	Draft  content.SiteContent `json:"draft"`
}

type SectionFieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

type TeamMemberRequest struct {
	Name *string `json:"name"`
	Role *string `json:"role"`
	Bio  *string `json:"bio"`
}

type TeamMemberCreatedResponse struct {
	Index int `json:"index"`
}

type CreatePageRequest struct {
	Label string `json:"label"`
}

type UpdatePageRequest struct {
	Label *string `json:"label"`
	Title *string `json:"title"`
	Body  *string `json:"body"`
	Order *int    `json:"order"`
}

type TogglePageResponse struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

type GalleryResponse struct {
	Items []content.GalleryItem `json:"items"`
}

type AnnotateGalleryRequest struct {
	Description string `json:"description"`
	Folder      string `json:"folder"`
}

type SubmitReviewRequest struct {
	Name   string `json:"name"`
	Rating *int   `json:"rating"`
	Text   string `json:"text"`
}

type ReviewsResponse struct {
	Reviews []content.Review `json:"reviews"`
	Average float64          `json:"average"`
}

type AssistantRequest struct {
	Message string `json:"message"`
}

type AssistantResponse struct {
	Reply string `json:"reply"`
}
