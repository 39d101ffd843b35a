package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/robwestplumbing/sitecms/internal/content"
	"github.com/robwestplumbing/sitecms/internal/contentsync"
	"github.com/robwestplumbing/sitecms/internal/docstore"
	"github.com/robwestplumbing/sitecms/internal/dto"
	"github.com/robwestplumbing/sitecms/internal/imaging"
	"github.com/robwestplumbing/sitecms/internal/services"
)

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}

// respondError maps domain errors to status codes. Anything unrecognised is
// logged and reported as a 500 without details.
func respondError(c *fiber.Ctx, err error) error {
	var verr *content.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: verr.Message, Field: verr.Field,
		})
	}

	var derr *imaging.DecodeError
	if errors.As(err, &derr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: true, Message: derr.Error(),
		})
	}

	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(status).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.Status(status).JSON(dto.ErrorResponse{
		Error: true, Message: err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, contentsync.ErrReadOnly),
		docstore.IsKind(err, docstore.KindPermission):
		return fiber.StatusForbidden
	case errors.Is(err, contentsync.ErrNotLoaded),
		errors.Is(err, services.ErrAssistantUnavailable),
		docstore.IsKind(err, docstore.KindUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, contentsync.ErrSaveInProgress),
		errors.Is(err, contentsync.ErrFixedPage),
		docstore.IsKind(err, docstore.KindConflict):
		return fiber.StatusConflict
	case errors.Is(err, contentsync.ErrConfirmationRequired):
		return fiber.StatusPreconditionRequired
	case errors.Is(err, contentsync.ErrIndexOutOfRange),
		errors.Is(err, contentsync.ErrPageNotFound),
		errors.Is(err, contentsync.ErrUnknownSection),
		errors.Is(err, contentsync.ErrSessionNotFound),
		errors.Is(err, services.ErrGalleryItemNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, imaging.ErrTooLarge),
		docstore.IsKind(err, docstore.KindSizeLimit):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrEditorRequired):
		return fiber.StatusUnauthorized
	case docstore.IsKind(err, docstore.KindInvalid):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
