package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	InboxDir  string
	OutputDir string

	MatcherBaseURL      string
	MatcherAPIKey       string
	MatcherTimeoutMs    int
	MatcherRateLimitRPS int
	MatchStrategy       string

	ApproveThreshold float64
	MatchThreshold   float64
	DefaultCurrency  string
	UnknownSupplier  string

	ListenerIntervalSec int
	ListenerMaxBatches  int
	ListenerAutoExport  bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		InboxDir:  getEnv("INBOX_DIR", filepath.Join(cwd, "data", "inbox")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		MatcherBaseURL:      getEnv("MATCHER_BASE_URL", "http://localhost:8090/api/v1"),
		MatcherAPIKey:       getEnv("MATCHER_API_KEY", ""),
		MatcherTimeoutMs:    getEnvInt("MATCHER_TIMEOUT_MS", 20000),
		MatcherRateLimitRPS: getEnvInt("MATCHER_RATE_LIMIT_RPS", 2),
		MatchStrategy:       getEnv("MATCH_STRATEGY", "semantic"),

		ApproveThreshold: getEnvFloat("MATCH_APPROVE_THRESHOLD", 0.85),
		MatchThreshold:   getEnvFloat("MATCH_MIN_THRESHOLD", 0.50),
		DefaultCurrency:  getEnv("DEFAULT_CURRENCY", "USD"),
		UnknownSupplier:  getEnv("UNKNOWN_SUPPLIER_NAME", "Unknown Supplier"),

		ListenerIntervalSec: getEnvInt("LISTENER_INTERVAL_SEC", 30),
		ListenerMaxBatches:  getEnvInt("LISTENER_MAX_BATCHES", 4),
		ListenerAutoExport:  getEnvBool("LISTENER_AUTO_EXPORT", true),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
