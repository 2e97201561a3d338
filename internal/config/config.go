package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	// Remote tabular store
	SpreadsheetID     string
	CredentialsFile   string
	CredentialsJSON   string
	RequestsSheetName string
	StoreTimeout      time.Duration

	CacheTTL          time.Duration
	CacheForceRefresh time.Duration

	DocumentDir string

	// First admin, created only when the users table is empty.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

func Load() *Config {
	cfg := &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=romaneio port=5432 sslmode=disable"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		SpreadsheetID:     getEnv("SPREADSHEET_ID", ""),
		CredentialsFile:   getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		CredentialsJSON:   getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		RequestsSheetName: getEnv("REQUESTS_SHEET_NAME", "Requests"),
		StoreTimeout:      getDuration("STORE_TIMEOUT", 30*time.Second),

		CacheTTL:          getDuration("CACHE_TTL", 30*time.Second),
		CacheForceRefresh: getDuration("CACHE_FORCE_REFRESH", 15*time.Second),

		DocumentDir: getEnv("DOCUMENT_DIR", "./separation-documents"),

		BootstrapAdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is not set. It is mandatory in every environment.")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET must be at least 32 characters long.")
	}
	if cfg.SpreadsheetID == "" {
		log.Fatal("[FATAL] SPREADSHEET_ID is not set. The system has no tabular store without it.")
	}
	if cfg.CredentialsFile == "" && cfg.CredentialsJSON == "" {
		log.Fatal("[FATAL] Neither GOOGLE_CREDENTIALS_FILE nor GOOGLE_CREDENTIALS_JSON is set.")
	}
	if cfg.CacheForceRefresh > cfg.CacheTTL {
		log.Println("[WARN] CACHE_FORCE_REFRESH is longer than CACHE_TTL, force refresh will never trigger.")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS is the development default, set your own domain in production.")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Plain numbers mean seconds, matching older deployments.
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	log.Printf("[WARN] %s=%q could not be parsed, using default %s", key, v, def)
	return def
}
