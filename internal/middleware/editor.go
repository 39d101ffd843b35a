package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/robwestplumbing/sitecms/internal/config"
	"github.com/robwestplumbing/sitecms/internal/dto"
	"github.com/robwestplumbing/sitecms/internal/models"
	"gorm.io/gorm"
)

// EditorRequired lets a request through when the signed-in user is on the
// configured editor lists or holds an editing role in the database. It must
// run after JWTProtected.
func EditorRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	editorEmails := cfg.EditorEmailList()
	editorUserIDs := cfg.EditorUserIDList()

	return func(c *fiber.Ctx) error {
		claims, ok := Claims(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		email, _ := claims["email"].(string)
		sub, _ := claims["sub"].(string)

		if contains(editorEmails, strings.ToLower(email)) || contains(editorUserIDs, sub) {
			return c.Next()
		}

		if db != nil && sub != "" {
			if userID, err := uuid.Parse(sub); err == nil {
				var user models.User
				if err := db.First(&user, "id = ?", userID).Error; err == nil && user.CanEdit() {
					return c.Next()
				}
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Editor access required",
		})
	}
}

func contains(list []string, val string) bool {
	if val == "" {
		return false
	}
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
