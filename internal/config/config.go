// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port         string
	Env          string // "development" or "production"
	GeminiAPIKey string
	GeminiModel  string
	ProjectID    string
	// UseMemoryStore keeps all expenses in process memory instead of
	// Firestore. Default in development.
	UseMemoryStore bool
	// SkipAuth disables Firebase token verification and injects a fixed
	// local user. Refused outside development.
	SkipAuth       bool
	AllowedOrigins []string
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("ENV", "development"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		ProjectID:    os.Getenv("GOOGLE_CLOUD_PROJECT"),
	}

	cfg.UseMemoryStore = getBool("USE_MEMORY_STORE", cfg.Env == "development")
	cfg.SkipAuth = getBool("SKIP_AUTH", false)

	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.SkipAuth && cfg.Env != "development" {
		return nil, fmt.Errorf("SKIP_AUTH is only allowed in development")
	}
	if !cfg.UseMemoryStore && cfg.ProjectID == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT is required when Firestore is enabled")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}
