// Package config loads client configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values.
type Config struct {
	// Remote API
	APIURL     string
	APITimeout time.Duration

	// Persisted session
	SessionFile string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Local web UI
	UIPort string

	// Simulation
	SimulationPacing time.Duration
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment take precedence.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIURL:     strings.TrimSuffix(getEnv("COMPERE_API_URL", "http://localhost:8000"), "/"),
		APITimeout: getDuration("COMPERE_API_TIMEOUT", 10*time.Second),

		SessionFile: getEnv("COMPERE_SESSION_FILE", defaultSessionFile()),

		LogFile:  getEnv("COMPERE_LOG_FILE", "/tmp/compere.log"),
		LogLevel: parseLogLevel(getEnv("COMPERE_LOG_LEVEL", "INFO")),

		UIPort: getEnv("COMPERE_UI_PORT", "8090"),

		SimulationPacing: getDuration("COMPERE_SIMULATION_PACING", 100*time.Millisecond),
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "compere", "session.yaml")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
