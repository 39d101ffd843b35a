package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Editors
	EditorEmails            string
	EditorUserIDs           string
	BootstrapEditorEmail    string
	BootstrapEditorPassword string

	// Document store
	NATSURL    string
	NATSBucket string

	// Refresh sessions
	RedisURL string

	// Site content
	SiteDefaultsPath  string
	SaveNoticeTTL     time.Duration
	EditorSessionIdle time.Duration

	// Images
	ImageMaxDimension int
	LogoMaxDimension  int
	ImageQuality      int
	ImageMaxBytes     int
	ImageWorkers      int

	// Assistant
	GeminiAPIKey string
	GeminiAPIURL string
	GeminiModel  string
	AITimeout    time.Duration

	// Error tracking
	SentryDSN string
	AppEnv    string

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "sitecms"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		EditorEmails:            getEnv("EDITOR_EMAILS", ""),
		EditorUserIDs:           getEnv("EDITOR_USER_IDS", ""),
		BootstrapEditorEmail:    getEnv("BOOTSTRAP_EDITOR_EMAIL", ""),
		BootstrapEditorPassword: getEnv("BOOTSTRAP_EDITOR_PASSWORD", ""),

		NATSURL:    getEnv("NATS_URL", ""),
		NATSBucket: getEnv("NATS_BUCKET", "SITE_CONTENT"),

		RedisURL: getEnv("REDIS_URL", ""),

		SiteDefaultsPath:  getEnv("SITE_DEFAULTS_PATH", ""),
		SaveNoticeTTL:     parseDuration(getEnv("SAVE_NOTICE_TTL", "3s"), 3*time.Second),
		EditorSessionIdle: parseDuration(getEnv("EDITOR_SESSION_IDLE", "30m"), 30*time.Minute),

		ImageMaxDimension: parseInt(getEnv("IMAGE_MAX_DIMENSION", "1000"), 1000),
		LogoMaxDimension:  parseInt(getEnv("LOGO_MAX_DIMENSION", "600"), 600),
		ImageQuality:      parseInt(getEnv("IMAGE_QUALITY", "70"), 70),
		ImageMaxBytes:     parseInt(getEnv("IMAGE_MAX_BYTES", "716800"), 716800),
		ImageWorkers:      parseInt(getEnv("IMAGE_WORKERS", "2"), 2),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiAPIURL: getEnv("GEMINI_API_URL", "https://generativelanguage.googleapis.com/v1beta/models"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		AITimeout:    parseDuration(getEnv("AI_TIMEOUT", "60s"), 60*time.Second),

		SentryDSN: getEnv("SENTRY_DSN", ""),
		AppEnv:    getEnv("APP_ENV", "development"),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// EditorEmailList splits EDITOR_EMAILS into lower-cased addresses.
func (c *Config) EditorEmailList() []string {
	return splitList(strings.ToLower(c.EditorEmails))
}

func (c *Config) EditorUserIDList() []string {
	return splitList(c.EditorUserIDs)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
