package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("POLL_INTERVAL_SECONDS", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q", cfg.Port)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL should default to empty, got %q", cfg.DatabaseURL)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("PollInterval mismatch: got %v", cfg.PollInterval)
	}
	if cfg.TransportRetry != 10*time.Second {
		t.Fatalf("TransportRetry mismatch: got %v", cfg.TransportRetry)
	}
	if cfg.MaxPollDuration != 15*time.Minute {
		t.Fatalf("MaxPollDuration mismatch: got %v", cfg.MaxPollDuration)
	}
	if cfg.InitialCredits != 100 {
		t.Fatalf("InitialCredits mismatch: got %d", cfg.InitialCredits)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("CORSAllowedOrigins mismatch: %#v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "1919")
	t.Setenv("POLL_INTERVAL_SECONDS", "2")
	t.Setenv("TRANSPORT_RETRY_SECONDS", "7")
	t.Setenv("MAX_POLL_MINUTES", "3")
	t.Setenv("INITIAL_CREDITS", "250")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://studio.example.com, https://admin.example.com ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "1919" {
		t.Fatalf("Port mismatch: got %q", cfg.Port)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("PollInterval mismatch: got %v", cfg.PollInterval)
	}
	if cfg.TransportRetry != 7*time.Second {
		t.Fatalf("TransportRetry mismatch: got %v", cfg.TransportRetry)
	}
	if cfg.MaxPollDuration != 3*time.Minute {
		t.Fatalf("MaxPollDuration mismatch: got %v", cfg.MaxPollDuration)
	}
	if cfg.InitialCredits != 250 {
		t.Fatalf("InitialCredits mismatch: got %d", cfg.InitialCredits)
	}
	want := []string{"https://studio.example.com", "https://admin.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("CORSAllowedOrigins mismatch: %#v", cfg.CORSAllowedOrigins)
	}
	for i, origin := range want {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
}

func TestLoadConfigIgnoresMalformedInt(t *testing.T) {
	t.Setenv("POLL_INTERVAL_SECONDS", "not-a-number")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("malformed int should fall back to default, got %v", cfg.PollInterval)
	}
}
