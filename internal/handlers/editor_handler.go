package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/robwestplumbing/sitecms/internal/content"
	"github.com/robwestplumbing/sitecms/internal/contentsync"
	"github.com/robwestplumbing/sitecms/internal/dto"
	"github.com/robwestplumbing/sitecms/internal/imaging"
	"github.com/robwestplumbing/sitecms/internal/middleware"
)

// ImageSettings are the normalizer options for ordinary images and for the
// logo.
type ImageSettings struct {
	Image imaging.Options
	Logo  imaging.Options
}

// EditorHandler exposes an editor's session: the working copy, its edits and
// the save.
type EditorHandler struct {
	ctx        context.Context
	manager    *contentsync.Manager
	normalizer *imaging.Normalizer
	images     ImageSettings
}

func NewEditorHandler(ctx context.Context, manager *contentsync.Manager, normalizer *imaging.Normalizer, images ImageSettings) *EditorHandler {
	return &EditorHandler{ctx: ctx, manager: manager, normalizer: normalizer, images: images}
}

func editorID(c *fiber.Ctx) (string, error) {
	id, err := middleware.GetUserID(c)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// session runs fn against the caller's open session and replies with the
// session state on success.
func (h *EditorHandler) session(c *fiber.Ctx, fn func(s *contentsync.Synchronizer) error) error {
	editor, err := editorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	s, err := h.manager.Session(editor)
	if err != nil {
		return respondError(c, err)
	}
	if err := fn(s); err != nil {
		return respondError(c, err)
	}
	return c.JSON(sessionResponse(s))
}

func sessionResponse(s *contentsync.Synchronizer) dto.EditorSessionResponse {
	return dto.EditorSessionResponse{Status: s.State(), Draft: s.Draft()}
}

// normalizeUpload reads the multipart "file" field through the normalizer.
func (h *EditorHandler) normalizeUpload(c *fiber.Ctx, opts imaging.Options) (content.ImageRef, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", &content.ValidationError{Field: "file", Message: "an image file is required"}
	}
	f, err := fh.Open()
	if err != nil {
		return "", &content.ValidationError{Field: "file", Message: "could not read upload"}
	}
	defer f.Close()
	return h.normalizer.Normalize(c.UserContext(), f, opts)
}

func indexParam(c *fiber.Ctx) (int, error) {
	idx, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return 0, &content.ValidationError{Field: "index", Message: "index must be a number"}
	}
	return idx, nil
}

// OpenSession starts or resumes the caller's editing session.
func (h *EditorHandler) OpenSession(c *fiber.Ctx) error {
	editor, err := editorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	s, err := h.manager.Open(editor)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sessionResponse(s))
}

func (h *EditorHandler) GetSession(c *fiber.Ctx) error {
	return h.session(c, func(*contentsync.Synchronizer) error { return nil })
}

// CloseSession ends the session and drops unsaved changes.
func (h *EditorHandler) CloseSession(c *fiber.Ctx) error {
	editor, err := editorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	if err := h.manager.CloseSession(editor); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StreamSession pushes the session state and draft after every change.
func (h *EditorHandler) StreamSession(c *fiber.Ctx) error {
	editor, err := editorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	s, err := h.manager.Session(editor)
	if err != nil {
		return respondError(c, err)
	}
	changes, cancel := s.Subscribe()
	return startSSE(h.ctx, c, sseStream{
		event:    "session",
		changes:  changes,
		cancel:   cancel,
		snapshot: func() any { return sessionResponse(s) },
		alive: func() bool {
			current, err := h.manager.Session(editor)
			return err == nil && current == s
		},
	})
}

func (h *EditorHandler) UpdateSection(c *fiber.Ctx) error {
	var req dto.SectionFieldsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return h.session(c, func(s *contentsync.Synchronizer) error {
		return s.SetSectionFields(c.Params("section"), req.Fields)
	})
}

// SetSectionImage replaces a single image field of a section. The optional
// form value "field" names it; the section's header image is the default.
func (h *EditorHandler) SetSectionImage(c *fiber.Ctx) error {
	return h.session(c, func(s *contentsync.Synchronizer) error {
		ref, err := h.normalizeUpload(c, h.images.Image)
		if err != nil {
			return err
		}
		return s.SetSectionImage(c.Params("section"), c.FormValue("field"), ref)
	})
}

func (h *EditorHandler) AddSectionImage(c *fiber.Ctx) error {
	return h.session(c, func(s *contentsync.Synchronizer) error {
		ref, err := h.normalizeUpload(c, h.images.Image)
		if err != nil {
			return err
		}
		return s.AddSectionImage(c.Params("section"), ref)
	})
}

func (h *EditorHandler) RemoveSectionImage(c *fiber.Ctx) error {
	idx, err := indexParam(c)
	if err != nil {
		return respondError(c, err)
	}
	return h.session(c, func(s *contentsync.Synchronizer) error {
		return s.RemoveSectionImage(c.Params("section"), idx)
	})
}

func (h *EditorHandler) SetLogo(c *fiber.Ctx) error {
	return h.session(c, func(s *contentsync.Synchronizer) error {
		ref, err := h.normalizeUpload(c, h.images.Logo)
		if err != nil {
			return err
		}
		return s.SetLogo(ref)
	})
}

func (h *EditorHandler) AddTeamMember(c *fiber.Ctx) error {
	editor, err := editorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	s, err := h.manager.Session(editor)
	if err != nil {
		return respondError(c, err)
	}
	idx, err := s.AddTeamMember()
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TeamMemberCreatedResponse{Index: idx})
}

func (h *EditorHandler) UpdateTeamMember(c *fiber.Ctx) error {
	idx, err := indexParam(c)
	if err != nil {
		return respondError(c, err)
	}
	var req dto.TeamMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return h.session(c, func(s *contentsync.Synchronizer) error {
		return s.UpdateTeamMember(idx, contentsync.TeamMemberPatch{
			Name: req.Name,
			Role: req.Role,
			Bio:  req.Bio,
		})
	})
}

func (h *EditorHandler) SetTeamMemberImage(c *fiber.Ctx) error {
	idx, err := indexParam(c)
	if err != nil {
		return respondError(c, err)
	}
	return h.session(c, func(s *contentsync.Synchronizer) error {
		ref, err := h.normalizeUpload(c, h.images.Image)
		if err != nil {
			return err
		}
		return s.UpdateTeamMember(idx, contentsync.TeamMemberPatch{Image: &ref})
	})
}

// RemoveTeamMember deletes a member and saves at once. It needs ?confirm=true.
func (h *EditorHandler) RemoveTeamMember(c *fiber.Ctx) error {
	idx, err := indexParam(c)
	if err != nil {
		return respondError(c, err)
	}
	return h.session(c, func(s *contentsync.Synchronizer) error {
		return s.RemoveTeamMember(c.UserContext(), idx, c.QueryBool("confirm"))
	})
}

func (h *EditorHandler) AddPage(c *fiber.Ctx) error {
	var req dto.CreatePageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	editor, err := editorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	s, err := h.manager.Session(editor)
	if err != nil {
		return respondError(c, err)
	}
	page, err := s.AddCustomPage(req.Label)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(page)
}

// UpdatePage changes the label or order of any page, and the title and body
// of custom pages. A rejected request leaves the draft unchanged.
func (h *EditorHandler) UpdatePage(c *fiber.Ctx) error {
	var req dto.UpdatePageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return h.session(c, func(s *contentsync.Synchronizer) error {
		return s.UpdatePage(c.Params("id"), contentsync.PagePatch{
			Label: req.Label,
			Order: req.Order,
			Title: req.Title,
			Body:  req.Body,
		})
	})
}

func (h *EditorHandler) SetPageImage(c *fiber.Ctx) error {
	return h.session(c, func(s *contentsync.Synchronizer) error {
		ref, err := h.normalizeUpload(c, h.images.Image)
		if err != nil {
			return err
		}
		return s.UpdateCustomPage(c.Params("id"), contentsync.PagePatch{Image: &ref})
	})
}

// TogglePage flips a page's visibility and saves at once.
func (h *EditorHandler) TogglePage(c *fiber.Ctx) error {
	editor, err := editorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	s, err := h.manager.Session(editor)
	if err != nil {
		return respondError(c, err)
	}
	id := c.Params("id")
	enabled, err := s.TogglePageVisibility(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.TogglePageResponse{ID: id, Enabled: enabled})
}

// DeletePage removes a custom page and saves at once. It needs ?confirm=true.
func (h *EditorHandler) DeletePage(c *fiber.Ctx) error {
	return h.session(c, func(s *contentsync.Synchronizer) error {
		return s.DeleteCustomPage(c.UserContext(), c.Params("id"), c.QueryBool("confirm"))
	})
}

func (h *EditorHandler) Save(c *fiber.Ctx) error {
	return h.session(c, func(s *contentsync.Synchronizer) error {
		return s.Save(c.UserContext())
	})
}

func (h *EditorHandler) Discard(c *fiber.Ctx) error {
	return h.session(c, func(s *contentsync.Synchronizer) error {
		return s.Discard()
	})
}
