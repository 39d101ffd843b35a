package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/robwestplumbing/sitecms/internal/contentsync"
	"github.com/robwestplumbing/sitecms/internal/dto"
	"github.com/robwestplumbing/sitecms/internal/pages"
)

// ContentHandler serves the live site to visitors.
type ContentHandler struct {
	ctx      context.Context
	manager  *contentsync.Manager
	renderer *pages.Renderer
}

// NewContentHandler serves from manager's public synchronizer. Streams end
// when ctx is done.
func NewContentHandler(ctx context.Context, manager *contentsync.Manager, renderer *pages.Renderer) *ContentHandler {
	return &ContentHandler{ctx: ctx, manager: manager, renderer: renderer}
}

func (h *ContentHandler) public() (*contentsync.Synchronizer, error) {
	s := h.manager.Public()
	if s == nil {
		return nil, contentsync.ErrNotLoaded
	}
	return s, nil
}

func (h *ContentHandler) snapshot(s *contentsync.Synchronizer) dto.ContentResponse {
	return dto.ContentResponse{
		Loaded:  s.Loaded(),
		Content: s.Live(),
		Gallery: s.Gallery(),
	}
}

func (h *ContentHandler) GetContent(c *fiber.Ctx) error {
	s, err := h.public()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.snapshot(s))
}

// Stream pushes the live content after every change.
func (h *ContentHandler) Stream(c *fiber.Ctx) error {
	s, err := h.public()
	if err != nil {
		return respondError(c, err)
	}
	changes, cancel := s.Subscribe()
	return startSSE(h.ctx, c, sseStream{
		event:    "content",
		changes:  changes,
		cancel:   cancel,
		snapshot: func() any { return h.snapshot(s) },
	})
}

func (h *ContentHandler) Navigation(c *fiber.Ctx) error {
	s, err := h.public()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NavigationResponse{Items: pages.Menu(s.Live().Pages)})
}

// Page resolves an identifier to what should be rendered for it. Unknown or
// disabled custom pages resolve to the home page.
func (h *ContentHandler) Page(c *fiber.Ctx) error {
	s, err := h.public()
	if err != nil {
		return respondError(c, err)
	}
	target, err := h.renderer.Render(pages.Resolve(c.Params("id"), s.Live().Pages))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(target)
}
