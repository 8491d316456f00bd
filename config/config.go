// Package config provides configuration for the server.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the server configuration.
type Config struct {
	// Server settings
	Host     string
	HTTPPort int

	// Routes
	AgentRoute     string
	AuthorizeRoute string

	// Platform credentials
	WebhookSecret string
	APIKey        string
	AgentID       string

	// Signature verification
	SignatureTolerance time.Duration

	// Database
	DatabaseURL string

	// Policy
	PolicyFile string

	// Tunnel
	CloudflaredBin string

	// Agent selection
	DefaultAgent string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		Host:               getEnv("HOST", "0.0.0.0"),
		HTTPPort:           getEnvInt("PORT", 8000),
		AgentRoute:         normalizeRoute(getEnv("AGENT_ROUTE", "/api/agent")),
		AuthorizeRoute:     normalizeRoute(getEnv("AUTHORIZE_ROUTE", "/api/authorize")),
		WebhookSecret:      getEnv("LAYERCODE_WEBHOOK_SECRET", ""),
		APIKey:             getEnv("LAYERCODE_API_KEY", ""),
		AgentID:            getEnv("LAYERCODE_AGENT_ID", ""),
		SignatureTolerance: time.Duration(getEnvInt("SIGNATURE_TOLERANCE_SECONDS", 300)) * time.Second,
		DatabaseURL:        getEnv("DATABASE_URL", "file:voxkit.db?cache=shared&mode=rwc"),
		PolicyFile:         getEnv("POLICY_FILE", ""),
		CloudflaredBin:     getEnv("CLOUDFLARED_BIN", "cloudflared"),
		DefaultAgent:       getEnv("DEFAULT_AGENT", "starter"),
	}
	return cfg
}

// normalizeRoute ensures route paths start with a slash and carry no
// trailing slash.
func normalizeRoute(route string) string {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	route = strings.TrimRight(route, "/")
	if route == "" {
		return "/"
	}
	return route
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
