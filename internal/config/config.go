package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultStrapiURL is used when no CMS URL is configured
const DefaultStrapiURL = "https://best-desire-8443ae2768.strapiapp.com"

// Config holds application configuration
type Config struct {
	ServerPort string
	AppEnv     string
	AppBaseURL string

	// CMS
	StrapiURL      string
	StrapiAPIToken string
	CMSTimeout     time.Duration

	// Admin and webhook secrets
	AdminRepairKey     string
	ZeffyWebhookSecret string
	ConfirmTokens      []string

	// Local database
	DatabaseType string
	DatabasePath string
	DatabaseURL  string
	// DatabaseMaxConns caps the pool; 0 uses the database package default
	DatabaseMaxConns int
	MigrationsPath   string

	SessionDuration time.Duration
	SessionSecret   string

	// Optional content cache
	RedisURL string
	CacheTTL time.Duration

	// Email
	EmailProvider string
	AWSRegion     string
	FromEmail     string
	FromName      string
	ResendAPIKey  string
	EmailDebug    bool
}

// Load reads configuration from environment variables with sensible defaults.
// Values from .env.local and .env are loaded first when those files exist;
// variables already present in the environment win.
func Load() *Config {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			if err := godotenv.Load(file); err != nil {
				log.Printf("Warning: failed to load %s: %v", file, err)
			}
		}
	}

	appEnv := getEnv("APP_ENV", "development")

	return &Config{
		ServerPort:         getEnv("PORT", "8080"),
		AppEnv:             appEnv,
		AppBaseURL:         getEnv("APP_BASE_URL", "http://localhost:3000"),
		StrapiURL:          resolveStrapiURL(appEnv),
		StrapiAPIToken:     os.Getenv("STRAPI_API_TOKEN"),
		CMSTimeout:         getDuration("CMS_TIMEOUT", 8*time.Second),
		AdminRepairKey:     os.Getenv("ADMIN_REPAIR_KEY"),
		ZeffyWebhookSecret: os.Getenv("ZEFFY_WEBHOOK_SECRET"),
		ConfirmTokens:      splitList(getEnv("CONFIRM_TOKENS", "SPONSOR_CONFIRM_2024,ZEFFY_VERIFY_TOKEN,MySecureToken2025")),
		DatabaseType:       getEnv("DB_TYPE", "sqlite"),
		DatabasePath:       getEnv("DB_PATH", "./loveinaction.db"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DatabaseMaxConns:   getInt("DB_MAX_OPEN_CONNS", 0),
		MigrationsPath:     getEnv("MIGRATIONS_PATH", "./migrations"),
		SessionDuration:    getDuration("SESSION_DURATION", 7*24*time.Hour),
		SessionSecret:      getEnv("SESSION_SECRET", "change-me-in-production"),
		RedisURL:           os.Getenv("REDIS_URL"),
		CacheTTL:           getDuration("CACHE_TTL", 60*time.Second),
		EmailProvider:      getEnv("EMAIL_PROVIDER", "ses"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		FromEmail:          os.Getenv("SES_FROM_EMAIL"),
		FromName:           getEnv("EMAIL_FROM_NAME", "Love In Action"),
		ResendAPIKey:       os.Getenv("RESEND_API_KEY"),
		EmailDebug:         getBool("EMAIL_DEBUG", false),
	}
}

// IsProduction reports whether the service runs with APP_ENV=production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// resolveStrapiURL picks the explicit CMS URL, then the per-environment one
func resolveStrapiURL(appEnv string) string {
	if url := os.Getenv("NEXT_PUBLIC_STRAPI_URL"); url != "" {
		return strings.TrimSuffix(url, "/")
	}
	key := "NEXT_PUBLIC_STRAPI_DEV_URL"
	if strings.EqualFold(appEnv, "production") {
		key = "NEXT_PUBLIC_STRAPI_PROD_URL"
	}
	if url := os.Getenv(key); url != "" {
		return strings.TrimSuffix(url, "/")
	}
	return DefaultStrapiURL
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid duration for %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			return n
		}
		log.Printf("Warning: invalid integer for %s=%q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
