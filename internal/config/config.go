// Package config loads runtime configuration from the environment. A local
// .env file is honored for development; production relies on real
// environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/recurrence"
)

// Config holds everything the binaries need to wire up.
type Config struct {
	// Logging
	LogLevel string

	// GCP
	ProjectID string
	Dataset   string
	Bucket    string

	// Worker
	WorkerCount int
	QueueSize   int

	// API
	Port string

	// Scoring
	AllowlistPath string
	Weights       recurrence.Weights
}

// Load reads configuration from the environment, loading a .env file first
// when one exists.
func Load() *Config {
	// Missing .env is the normal production case, not an error.
	_ = godotenv.Load()

	return &Config{
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		ProjectID:     getEnv("GCP_PROJECT_ID", ""),
		Dataset:       getEnv("BQ_DATASET", "recurscan"),
		Bucket:        getEnv("GCS_BUCKET", ""),
		WorkerCount:   getEnvAsInt("WORKER_COUNT", 5),
		QueueSize:     getEnvAsInt("QUEUE_SIZE", 100),
		Port:          getEnv("PORT", "8080"),
		AllowlistPath: getEnv("VENDOR_ALLOWLIST_PATH", ""),
		Weights: recurrence.Weights{
			CycleCloseness:    getEnvAsFloat("WEIGHT_CYCLE_CLOSENESS", recurrence.DefaultWeights().CycleCloseness),
			IntervalStability: getEnvAsFloat("WEIGHT_INTERVAL_STABILITY", recurrence.DefaultWeights().IntervalStability),
			AmountStability:   getEnvAsFloat("WEIGHT_AMOUNT_STABILITY", recurrence.DefaultWeights().AmountStability),
		},
	}
}

// LoadAllowlist reads the known-recurring vendor substrings from the JSON
// file configured via VENDOR_ALLOWLIST_PATH. An unset path yields an empty
// allowlist: scoring then relies purely on interval and amount statistics.
func (c *Config) LoadAllowlist() ([]string, error) {
	if c.AllowlistPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(c.AllowlistPath)
	if err != nil {
		return nil, fmt.Errorf("config: reading allowlist %s: %w", c.AllowlistPath, err)
	}

	var vendors []string
	if err := json.Unmarshal(data, &vendors); err != nil {
		return nil, fmt.Errorf("config: parsing allowlist %s: %w", c.AllowlistPath, err)
	}
	return vendors, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return fallback
	}
	return value
}
