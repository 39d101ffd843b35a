package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/robwestplumbing/sitecms/internal/config"
	"github.com/robwestplumbing/sitecms/internal/handlers"
	"github.com/robwestplumbing/sitecms/internal/metrics"
	"github.com/robwestplumbing/sitecms/internal/middleware"
	"gorm.io/gorm"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Health    *handlers.HealthHandler
	Auth      *handlers.AuthHandler
	Content   *handlers.ContentHandler
	Editor    *handlers.EditorHandler
	Gallery   *handlers.GalleryHandler
	Reviews   *handlers.ReviewHandler
	Assistant *handlers.AssistantHandler
	Revisions *handlers.RevisionHandler
}

func perIP(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
}

func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB, h Handlers) {
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api")

	api.Get("/health", h.Health.Check)

	// Public reads. Streams are long-lived and skip the limiter.
	api.Get("/content/stream", h.Content.Stream)
	api.Get("/reviews/stream", h.Reviews.Stream)

	reads := perIP(120)
	api.Get("/content", reads, h.Content.GetContent)
	api.Get("/navigation", reads, h.Content.Navigation)
	api.Get("/pages/:id", reads, h.Content.Page)
	api.Get("/gallery", reads, h.Gallery.List)
	api.Get("/reviews", reads, h.Reviews.List)

	// Anonymous writes
	api.Post("/reviews", perIP(5), h.Reviews.Submit)
	api.Post("/assistant/messages", perIP(10), h.Assistant.Send)

	auth := api.Group("/auth", perIP(10))
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/logout", h.Auth.Logout)

	editor := api.Group("/editor", middleware.JWTProtected(cfg), middleware.EditorRequired(db, cfg))

	editor.Post("/session", h.Editor.OpenSession)
	editor.Get("/session", h.Editor.GetSession)
	editor.Delete("/session", h.Editor.CloseSession)
	editor.Get("/session/stream", h.Editor.StreamSession)
	editor.Post("/session/save", h.Editor.Save)
	editor.Post("/session/discard", h.Editor.Discard)

	editor.Patch("/session/sections/:section", h.Editor.UpdateSection)
	editor.Put("/session/sections/:section/image", h.Editor.SetSectionImage)
	editor.Post("/session/sections/:section/images", h.Editor.AddSectionImage)
	editor.Delete("/session/sections/:section/images/:index", h.Editor.RemoveSectionImage)
	editor.Put("/session/logo", h.Editor.SetLogo)

	editor.Post("/session/team", h.Editor.AddTeamMember)
	editor.Patch("/session/team/:index", h.Editor.UpdateTeamMember)
	editor.Put("/session/team/:index/image", h.Editor.SetTeamMemberImage)
	editor.Delete("/session/team/:index", h.Editor.RemoveTeamMember)

	editor.Post("/session/pages", h.Editor.AddPage)
	editor.Patch("/session/pages/:id", h.Editor.UpdatePage)
	editor.Put("/session/pages/:id/image", h.Editor.SetPageImage)
	editor.Post("/session/pages/:id/toggle", h.Editor.TogglePage)
	editor.Delete("/session/pages/:id", h.Editor.DeletePage)

	editor.Post("/gallery", h.Gallery.Upload)
	editor.Patch("/gallery/:id", h.Gallery.Annotate)
	editor.Delete("/gallery/:id", h.Gallery.Delete)

	editor.Post("/editors", h.Auth.CreateEditor)
	editor.Get("/revisions", h.Revisions.List)
}
