package direct

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:      srv.URL,
		Logger:       zerolog.Nop(),
		PollInterval: time.Millisecond,
		MaxPolls:     5,
	})
}

func TestGenerateImmediateResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "personal-key" {
			t.Fatalf("expected personal key header, got %q", r.Header.Get("X-Api-Key"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"url": "https://cdn.example.com/out.png"})
	})

	url, err := client.Generate(context.Background(), Request{
		Prompt: "a quiet harbor",
		Model:  "gemini-2.5-flash-image",
		APIKey: "personal-key",
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if url != "https://cdn.example.com/out.png" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestGenerateViaOperationPolling(t *testing.T) {
	polls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			_ = json.NewEncoder(w).Encode(map[string]any{"operation": "op-1"})
		case r.URL.Path == "/v1/operations/op-1":
			polls++
			if polls < 3 {
				_ = json.NewEncoder(w).Encode(map[string]any{"done": false})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"done":   true,
				"result": map[string]any{"url": "https://cdn.example.com/op.png"},
			})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	url, err := client.Generate(context.Background(), Request{Prompt: "a comet", APIKey: "k"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if url != "https://cdn.example.com/op.png" {
		t.Fatalf("unexpected url %q", url)
	}
	if polls != 3 {
		t.Fatalf("expected 3 operation polls, got %d", polls)
	}
}

func TestGenerateEmptyResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			_ = json.NewEncoder(w).Encode(map[string]any{"operation": "op-1"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"done": true})
		}
	})

	_, err := client.Generate(context.Background(), Request{Prompt: "x", APIKey: "k"})
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
}

func TestGenerateEntityNotFoundClassification(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Requested entity was not found."},
		})
	})

	_, err := client.Generate(context.Background(), Request{Prompt: "x", APIKey: "stale"})
	if !errors.Is(err, domain.ErrProviderEntityNotFound) {
		t.Fatalf("expected ErrProviderEntityNotFound, got %v", err)
	}
}

func TestGenerateOperationError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			_ = json.NewEncoder(w).Encode(map[string]any{"operation": "op-1"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "quota exhausted"},
			})
		}
	})

	_, err := client.Generate(context.Background(), Request{Prompt: "x", APIKey: "k"})
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
}

func TestGenerateRespectsContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			_ = json.NewEncoder(w).Encode(map[string]any{"operation": "op-1"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"done": false})
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Generate(ctx, Request{Prompt: "x", APIKey: "k"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
