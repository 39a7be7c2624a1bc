// Package config loads and validates the environment-driven application
// configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Token     TokenConfig
	Database  DatabaseConfig
	Upload    UploadConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	PublicDir    string
	UploadsDir   string
	LogFile      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type TokenConfig struct {
	// Secret signs session tokens. When empty the token manager falls
	// back to its insecure built-in default; deployments must set it.
	Secret string
	TTL    time.Duration
}

type DatabaseConfig struct {
	// Path of the SQLite database file. Created on first run.
	Path string
}

type UploadConfig struct {
	// MaxFileSize is the icon upload byte ceiling.
	MaxFileSize int64
}

type RateLimitConfig struct {
	Capacity     int64
	RefillRate   int64
	RefillPeriod time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", 3000),
			PublicDir:    getEnv("PUBLIC_DIR", "./public"),
			UploadsDir:   getEnv("UPLOADS_DIR", "./uploads"),
			LogFile:      getEnv("LOG_FILE", "./log/server.log"),
			ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 30*time.Second),
		},
		Token: TokenConfig{
			Secret: getEnv("TOKEN_SECRET", ""),
			TTL:    getEnvAsDuration("TOKEN_TTL", 24*time.Hour),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/contacts.db"),
		},
		Upload: UploadConfig{
			MaxFileSize: getEnvAsInt64("MAX_UPLOAD_SIZE", 200_000), // ~200KB
		},
		RateLimit: RateLimitConfig{
			Capacity:     getEnvAsInt64("RATE_LIMIT_CAPACITY", 200),
			RefillRate:   getEnvAsInt64("RATE_LIMIT_REFILL", 10),
			RefillPeriod: getEnvAsDuration("RATE_LIMIT_PERIOD", time.Second),
		},
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid server port: %d (must be 1-65535)", c.Server.Port))
	}
	if c.Server.UploadsDir == "" {
		errs = append(errs, "uploads directory (UPLOADS_DIR) is required")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database path (DATABASE_PATH) is required")
	}
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, fmt.Sprintf("invalid max upload size: %d (must be > 0)", c.Upload.MaxFileSize))
	}
	if c.Token.TTL <= 0 {
		errs = append(errs, "token TTL must be > 0")
	}
	if c.RateLimit.Capacity <= 0 {
		errs = append(errs, "rate limit capacity must be > 0")
	}
	if c.RateLimit.RefillRate <= 0 {
		errs = append(errs, "rate limit refill rate must be > 0")
	}
	if c.RateLimit.RefillPeriod <= 0 {
		errs = append(errs, "rate limit refill period must be > 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", joinErrors(errs))
	}
	return nil
}

func joinErrors(errs []string) string {
	result := ""
	for i, err := range errs {
		if i > 0 {
			result += "\n  - "
		}
		result += err
	}
	return result
}

func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// PrintSummary logs a summary of the loaded configuration. The token
// secret is reported only as set/unset.
func (c *Config) PrintSummary() {
	secretState := "set"
	if c.Token.Secret == "" {
		secretState = "UNSET (insecure built-in default in use)"
	}
	fmt.Println("Configuration Summary:")
	fmt.Printf("  Server: %s\n", c.ServerAddress())
	fmt.Printf("  Database: %s\n", c.Database.Path)
	fmt.Printf("  Uploads: %s (max %.1f KB per file)\n", c.Server.UploadsDir, float64(c.Upload.MaxFileSize)/1024)
	fmt.Printf("  Token secret: %s, TTL: %s\n", secretState, c.Token.TTL)
	fmt.Printf("  Rate limit: %d requests/%s (capacity: %d)\n",
		c.RateLimit.RefillRate, c.RateLimit.RefillPeriod, c.RateLimit.Capacity)
}

// Helpers to read environment variables with defaults.

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return val
	}
	return defaultVal
}
