package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/robwestplumbing/sitecms/internal/services"
)

type RevisionHandler struct {
	revisionService *services.RevisionService
}

func NewRevisionHandler(revisionService *services.RevisionService) *RevisionHandler {
	return &RevisionHandler{revisionService: revisionService}
}

func (h *RevisionHandler) List(c *fiber.Ctx) error {
	revs, err := h.revisionService.List(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"revisions": revs})
}
