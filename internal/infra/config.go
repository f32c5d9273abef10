package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	BackendBaseURL     string
	BackendProjectID   string
	ProviderBaseURL    string
	StorageBaseURL     string
	StoragePath        string
	CORSAllowedOrigins []string
	InitialCredits     int64
	CredentialTTL      time.Duration
	PollInterval       time.Duration
	TransportRetry     time.Duration
	MaxPollDuration    time.Duration
	UploadMaxBytes     int64
	UploadsPerMinute   int
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. DATABASE_URL is optional: without it the service
// runs with the in-memory ledger and no history resync.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		BackendBaseURL:     getEnv("BACKEND_BASE_URL", "https://jobs.internal.example.com"),
		BackendProjectID:   getEnv("BACKEND_PROJECT_ID", "studio-default"),
		ProviderBaseURL:    getEnv("PROVIDER_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		StorageBaseURL:     getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		CORSAllowedOrigins: splitEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		InitialCredits:     int64(getEnvInt("INITIAL_CREDITS", 100)),
		CredentialTTL:      time.Minute * time.Duration(getEnvInt("CREDENTIAL_TTL_MINUTES", 10)),
		PollInterval:       time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 5)),
		TransportRetry:     time.Second * time.Duration(getEnvInt("TRANSPORT_RETRY_SECONDS", 10)),
		MaxPollDuration:    time.Minute * time.Duration(getEnvInt("MAX_POLL_MINUTES", 15)),
		UploadMaxBytes:     int64(getEnvInt("UPLOAD_MAX_BYTES", 10<<20)),
		UploadsPerMinute:   getEnvInt("UPLOADS_PER_MINUTE", 30),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}
	return cfg, nil
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

func splitEnv(key, fallback string) []string {
	raw := getEnv(key, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
