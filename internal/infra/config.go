package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	DataDir          string
	EngineBin        string
	EngineTimeout    time.Duration
	WorkerPoll       time.Duration
	Concurrency      int
	RetentionMaxAge  time.Duration
	MassTablePath    string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DataDir:          getEnv("DATA_DIR", filepath.Join(os.TempDir(), "mdserver")),
		EngineBin:        getEnv("LAMMPS_BIN", "lmp"),
		EngineTimeout:    time.Second * time.Duration(getEnvInt("ENGINE_TIMEOUT_SECONDS", 600)),
		WorkerPoll:       time.Second * time.Duration(getEnvInt("WORKER_POLL_SECONDS", 2)),
		Concurrency:      getEnvInt("WORKER_CONCURRENCY", 2),
		RetentionMaxAge:  time.Hour * time.Duration(getEnvInt("RETENTION_HOURS", 24)),
		MassTablePath:    os.Getenv("MASS_TABLE_PATH"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.EngineTimeout <= 0 {
		return nil, fmt.Errorf("ENGINE_TIMEOUT_SECONDS must be positive")
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	return cfg, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
