package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/robwestplumbing/sitecms/internal/contentsync"
	"github.com/robwestplumbing/sitecms/internal/database"
	"github.com/robwestplumbing/sitecms/internal/dto"
)

type HealthHandler struct {
	manager *contentsync.Manager
	ping    func() error
}

func NewHealthHandler(manager *contentsync.Manager) *HealthHandler {
	return &HealthHandler{manager: manager, ping: database.Ping}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := h.ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	contentStatus := "loading"
	if s := h.manager.Public(); s != nil {
		st := s.State()
		switch {
		case st.ReadError != "":
			contentStatus = "unhealthy: " + st.ReadError
		case st.Load == contentsync.LoadLive:
			contentStatus = "ok"
		}
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Content:   contentStatus,
	})
}
