package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/robwestplumbing/sitecms/internal/dto"
	"github.com/robwestplumbing/sitecms/internal/services"
)

const maxAssistantMessage = 2000

type AssistantHandler struct {
	assistant services.Assistant
}

func NewAssistantHandler(assistant services.Assistant) *AssistantHandler {
	return &AssistantHandler{assistant: assistant}
}

func (h *AssistantHandler) Send(c *fiber.Ctx) error {
	var req dto.AssistantRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return badRequest(c, "Message is required")
	}
	if len(msg) > maxAssistantMessage {
		return badRequest(c, "Message is too long")
	}

	reply, err := h.assistant.SendUserMessage(c.UserContext(), msg)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.AssistantResponse{Reply: reply})
}
