package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "SITE_CONTENT", cfg.NATSBucket)
	assert.Equal(t, 1000, cfg.ImageMaxDimension)
	assert.Equal(t, 600, cfg.LogoMaxDimension)
	assert.Equal(t, 716800, cfg.ImageMaxBytes)
	assert.Equal(t, 3*time.Second, cfg.SaveNoticeTTL)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IMAGE_MAX_DIMENSION", "1200")
	t.Setenv("SAVE_NOTICE_TTL", "5s")
	t.Setenv("IMAGE_WORKERS", "-1")
	t.Setenv("JWT_ACCESS_EXPIRY", "soon")
	t.Setenv("EDITOR_EMAILS", " Rob@Example.com, ,ann@example.com ")

	cfg := Load()
	assert.Equal(t, 1200, cfg.ImageMaxDimension)
	assert.Equal(t, 5*time.Second, cfg.SaveNoticeTTL)
	assert.Equal(t, 2, cfg.ImageWorkers)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, []string{"rob@example.com", "ann@example.com"}, cfg.EditorEmailList())
	assert.Empty(t, cfg.EditorUserIDList())
}
