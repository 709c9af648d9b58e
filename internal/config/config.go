// Package config provides configuration loading and validation for the
// pipeline server.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// ServerConfig holds the settings the HTTP server and its subsystems
// need. Loaded from environment variables (godotenv populates them
// from .env in the entrypoint).
type ServerConfig struct {
	// Port the HTTP server listens on.
	Port int
	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string
	// DefaultStatusName is the pipeline stage assigned to imported
	// startups.
	DefaultStatusName string
	// FallbackDescription fills the description of imported startups
	// whose spreadsheet had none.
	FallbackDescription string

	// SMTP settings for workflow emails. Empty host disables sending;
	// send_email actions then fail and log.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// EmailTestMode redirects every workflow email to TestRecipient.
	EmailTestMode bool
	TestRecipient string

	// Gemini settings for pitch deck extraction. Empty key disables the
	// endpoint.
	GeminiAPIKey string
	GeminiModel  string
}

// NewServerConfig creates a server configuration from environment
// variables. DATABASE_URL is required; everything else has a default.
func NewServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{
		Port:                8080,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		DefaultStatusName:   envOr("DEFAULT_STATUS_NAME", "Registered"),
		FallbackDescription: envOr("IMPORT_FALLBACK_DESCRIPTION", "Imported from spreadsheet"),
		SMTPHost:            os.Getenv("SMTP_HOST"),
		SMTPPort:            587,
		SMTPUsername:        os.Getenv("SMTP_USERNAME"),
		SMTPPassword:        os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:            os.Getenv("SMTP_FROM"),
		TestRecipient:       os.Getenv("EMAIL_TEST_RECIPIENT"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         os.Getenv("GEMINI_MODEL"),
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %v", err)
		}
		cfg.Port = port
	}
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT: %v", err)
		}
		cfg.SMTPPort = port
	}
	if testStr := os.Getenv("EMAIL_TEST_MODE"); testStr != "" {
		testMode, err := strconv.ParseBool(testStr)
		if err != nil {
			return nil, fmt.Errorf("invalid EMAIL_TEST_MODE: %v", err)
		}
		cfg.EmailTestMode = testMode
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize validates the configuration.
func (c *ServerConfig) normalize() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required but not set")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.SMTPHost != "" && (c.SMTPPort < 1 || c.SMTPPort > 65535) {
		return fmt.Errorf("SMTP_PORT out of range: %d", c.SMTPPort)
	}
	if c.EmailTestMode && c.TestRecipient == "" {
		return fmt.Errorf("EMAIL_TEST_RECIPIENT is required when EMAIL_TEST_MODE is on")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
