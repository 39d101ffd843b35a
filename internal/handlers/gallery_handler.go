package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/robwestplumbing/sitecms/internal/content"
	"github.com/robwestplumbing/sitecms/internal/dto"
	"github.com/robwestplumbing/sitecms/internal/services"
)

type GalleryHandler struct {
	galleryService *services.GalleryService
}

func NewGalleryHandler(galleryService *services.GalleryService) *GalleryHandler {
	return &GalleryHandler{galleryService: galleryService}
}

func (h *GalleryHandler) List(c *fiber.Ctx) error {
	items, err := h.galleryService.List(c.UserContext(), c.Query("folder"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.GalleryResponse{Items: items})
}

// Upload takes a multipart "file" plus optional "description" and "folder".
func (h *GalleryHandler) Upload(c *fiber.Ctx) error {
	editor, err := editorID(c)
	if err != nil {
		return respondError(c, services.ErrEditorRequired)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return respondError(c, &content.ValidationError{Field: "file", Message: "an image file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return respondError(c, &content.ValidationError{Field: "file", Message: "could not read upload"})
	}
	defer f.Close()

	item, err := h.galleryService.Upload(c.UserContext(), editor, f, c.FormValue("description"), c.FormValue("folder"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *GalleryHandler) Annotate(c *fiber.Ctx) error {
	var req dto.AnnotateGalleryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	item, err := h.galleryService.Annotate(c.UserContext(), c.Params("id"), req.Description, req.Folder)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

func (h *GalleryHandler) Delete(c *fiber.Ctx) error {
	if err := h.galleryService.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
