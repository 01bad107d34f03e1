// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server and logbookctl.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string for the fleet archive. Required.
	DatabaseURL string

	// LogLevel is one of debug, info, warn, error. Defaults to "info".
	LogLevel string

	// CORSOrigins defaults to the Vite dev server.
	CORSOrigins []string

	// RedisAddr enables the Redis trip store and cross-instance feed.
	// Empty keeps the live trip in memory and the feed local.
	RedisAddr     string
	RedisPassword string

	// DeviceID keys the live trip in Redis. Defaults to "default".
	DeviceID string

	Gemini Gemini

	// AITimeout bounds each speech or text generation call.
	AITimeout time.Duration

	// FixTimeout bounds the one-shot location lookup used by stops.
	FixTimeout time.Duration

	// MaxBodyBytes caps request bodies; photo uploads are the largest.
	MaxBodyBytes int64
}

// Gemini configures the generative AI collaborator. An empty APIKey leaves
// the AI features on their fallback texts.
type Gemini struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	SpeechModel string
	Voice       string
	MaxRetries  uint64
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set and any
// values that cannot be parsed.
func Load() (Config, error) {
	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		CORSOrigins:   splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DeviceID:      getEnv("DEVICE_ID", "default"),
		Gemini: Gemini{
			APIKey:      os.Getenv("GEMINI_API_KEY"),
			BaseURL:     os.Getenv("GEMINI_BASE_URL"),
			TextModel:   os.Getenv("GEMINI_TEXT_MODEL"),
			SpeechModel: os.Getenv("GEMINI_SPEECH_MODEL"),
			Voice:       os.Getenv("GEMINI_VOICE"),
		},
	}

	var missing, invalid []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	var err error
	if cfg.AITimeout, err = getDuration("AI_TIMEOUT", 20*time.Second); err != nil {
		invalid = append(invalid, err.Error())
	}
	if cfg.FixTimeout, err = getDuration("FIX_TIMEOUT", 10*time.Second); err != nil {
		invalid = append(invalid, err.Error())
	}
	if cfg.MaxBodyBytes, err = getInt("MAX_BODY_BYTES", 8<<20); err != nil {
		invalid = append(invalid, err.Error())
	}
	retries, err := getInt("GEMINI_MAX_RETRIES", 2)
	if err != nil {
		invalid = append(invalid, err.Error())
	}
	cfg.Gemini.MaxRetries = uint64(retries)

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, "; "))
	}
	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration parses key with time.ParseDuration. Zero and negative values are rejected.
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s=%q is not a positive duration", key, v)
	}
	return d, nil
}

// getInt parses key as a non-negative integer.
func getInt(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s=%q is not a non-negative integer", key, v)
	}
	return n, nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
