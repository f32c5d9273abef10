package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"studio/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Options{
		BaseURL:   srv.URL,
		ProjectID: "proj-1",
		Logger:    zerolog.Nop(),
	})
	return client, srv
}

func TestSubmitAccepted(t *testing.T) {
	var captured map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/jobs" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"jobId": "job-7"},
		})
	})

	jobID, err := client.Submit(context.Background(), JobRequest{
		Type:   JobTypeImageToImage,
		Prompt: "a red bicycle",
		Images: []string{"https://cdn.example.com/ref.png"},
		Config: JobConfig{Width: 1024, Height: 768, AspectRatio: "4:3", Seed: 7},
		Engine: EngineSelector{Provider: "gemini", Model: "gemini-2.5-flash-image"},
		Mode:   "generate",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if jobID != "job-7" {
		t.Fatalf("expected job-7, got %q", jobID)
	}

	if captured["type"] != "image_to_image" {
		t.Fatalf("expected image_to_image, got %v", captured["type"])
	}
	enginePayload, _ := captured["enginePayload"].(map[string]any)
	if enginePayload["privacy"] != "PRIVATE" {
		t.Fatalf("expected PRIVATE privacy, got %v", enginePayload["privacy"])
	}
	if enginePayload["projectId"] != "proj-1" {
		t.Fatalf("expected project id proj-1, got %v", enginePayload["projectId"])
	}
}

func TestSubmitRejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "prompt violates content policy",
		})
	})

	_, err := client.Submit(context.Background(), JobRequest{Type: JobTypeTextToImage, Prompt: "x"})
	if !errors.Is(err, domain.ErrSubmissionRejected) {
		t.Fatalf("expected ErrSubmissionRejected, got %v", err)
	}
}

func TestSubmitTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClient(Options{BaseURL: srv.URL, Logger: zerolog.Nop()})
	srv.Close()

	_, err := client.Submit(context.Background(), JobRequest{Type: JobTypeTextToImage, Prompt: "x"})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if errors.Is(err, domain.ErrSubmissionRejected) {
		t.Fatal("transport errors must not classify as rejection")
	}
}

func TestStatusMapping(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/jobs/job-7" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "done",
			"result": map[string]any{"images": []string{"https://cdn.example.com/out.png"}},
		})
	})

	status, err := client.Status(context.Background(), "job-7")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !status.Terminal() || status.Failed() {
		t.Fatalf("done with output should be terminal success: %+v", status)
	}
	if len(status.Images) != 1 {
		t.Fatalf("expected one image, got %v", status.Images)
	}
}

func TestStatusPendingAndUnrecognized(t *testing.T) {
	for _, raw := range []string{"queued", "rendering", "weird_new_state"} {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": raw})
		})
		status, err := client.Status(context.Background(), "job-1")
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if status.Terminal() {
			t.Fatalf("%q should be treated as pending", raw)
		}
	}
}

func TestStatusDoneWithoutOutputIsNotTerminal(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "done"})
	})
	status, err := client.Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.Terminal() {
		t.Fatal("done with no images must keep polling")
	}
}

func TestStatusJobFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "failed",
			"error":  map[string]any{"message": "render crashed"},
		})
	})
	status, err := client.Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("job failure must not be a transport error: %v", err)
	}
	if !status.Failed() {
		t.Fatalf("expected failure classification: %+v", status)
	}
	if status.Message != "render crashed" {
		t.Fatalf("expected error message, got %q", status.Message)
	}
}

func TestStatusServerErrorIsTransport(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if _, err := client.Status(context.Background(), "job-1"); err == nil {
		t.Fatal("5xx should surface as a transport error")
	}
}

func TestAuthorizationHeaderFromCredentials(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "queued"})
	}))
	defer srv.Close()

	client := NewClient(Options{
		BaseURL: srv.URL,
		Logger:  zerolog.Nop(),
		Credentials: func(ctx context.Context) (string, error) {
			return "svc-token", nil
		},
	})
	if _, err := client.Status(context.Background(), "job-1"); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if gotAuth != "Bearer svc-token" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
}
