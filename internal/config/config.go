/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int

	DBBackend DatabaseBackend
	DBDSN     string

	// CORS origin for the chat frontend. "*" allows any origin.
	FrontendOrigin string

	// Groq (OpenAI-compatible) collaborator configuration.
	GroqAPIKey  string
	GroqBaseURL string
	GroqModel   string
	LLMTimeout  time.Duration

	// Spotify enrichment (optional; disabled when credentials are absent).
	SpotifyClientID     string
	SpotifyClientSecret string

	// Redis cache for enrichment lookups (optional).
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheEnabled  bool

	// Dialogue tuning.
	MaxFollowups int

	// Engine RNG seed for the bucket fallback. 0 seeds from wall clock.
	EngineSeed int64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("MOODIFY_ENV", "development"),
		HTTPBind:    getEnv("MOODIFY_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("MOODIFY_HTTP_PORT", 8080),

		DBBackend: DatabaseBackend(getEnv("MOODIFY_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:     getEnv("MOODIFY_DB_DSN", "moodify.db"),

		FrontendOrigin: getEnv("MOODIFY_FRONTEND_ORIGIN", "*"),

		GroqAPIKey:  getEnv("GROQ_API_KEY", ""),
		GroqBaseURL: getEnv("MOODIFY_GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModel:   getEnv("MOODIFY_GROQ_MODEL", "llama-3.3-70b-versatile"),
		LLMTimeout:  time.Duration(getEnvInt("MOODIFY_LLM_TIMEOUT_SECONDS", 8)) * time.Second,

		SpotifyClientID:     getEnv("SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret: getEnv("SPOTIFY_CLIENT_SECRET", ""),

		RedisAddr:     getEnv("MOODIFY_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("MOODIFY_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("MOODIFY_REDIS_DB", 0),
		CacheEnabled:  getEnvBool("MOODIFY_CACHE_ENABLED", false),

		MaxFollowups: getEnvInt("MOODIFY_MAX_FOLLOWUPS", 4),

		EngineSeed: int64(getEnvInt("MOODIFY_ENGINE_SEED", 0)),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("MOODIFY_DB_DSN must be provided")
	}

	if cfg.MaxFollowups < 1 {
		return nil, fmt.Errorf("MOODIFY_MAX_FOLLOWUPS must be at least 1")
	}

	if cfg.LLMTimeout <= 0 {
		return nil, fmt.Errorf("MOODIFY_LLM_TIMEOUT_SECONDS must be positive")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}
