package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration. It is loaded once at startup and
// passed by reference into the server and handlers; nothing reads the
// environment after Load returns.
type Config struct {
	DBURL      string
	SecretKey  string
	ServerPort string
	UploadDir  string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort: getEnvOrDefault("SERVER_PORT", "8080"),
		UploadDir:  getEnvOrDefault("UPLOAD_DIR", "uploads/photos"),
		SMTPHost:   os.Getenv("SMTP_HOST"),
		SMTPUser:   os.Getenv("SMTP_USER"),
		SMTPPass:   os.Getenv("SMTP_PASS"),
	}

	if cfg.DBURL = os.Getenv("DB_URL"); cfg.DBURL == "" {
		return nil, fmt.Errorf("DB_URL environment variable is required")
	}
	if cfg.SecretKey = os.Getenv("SECRET_KEY"); cfg.SecretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY environment variable is required")
	}

	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT: %v", err)
		}
		cfg.SMTPPort = port
	}

	return cfg, nil
}

// MailEnabled reports whether outbound mail is configured. Signup mail is
// skipped entirely when it is not.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPPort != 0
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
