// Package backend talks to the metered generation backend: it posts jobs and
// queries their status. Backend-level refusals are reported as
// domain.ErrSubmissionRejected so callers can tell them apart from transport
// errors.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
)

// Job types accepted by the backend.
const (
	JobTypeTextToImage  = "text_to_image"
	JobTypeImageToImage = "image_to_image"
)

// Terminal status values reported by the status endpoint. Anything else is
// treated as still pending.
const (
	StatusDone   = "done"
	StatusError  = "error"
	StatusFailed = "failed"
)

// Options configures the backend client.
type Options struct {
	BaseURL    string
	ProjectID  string
	HTTPClient *http.Client
	Logger     zerolog.Logger
	// Credentials supplies the service token attached to each request. The
	// token comes from the credential pool, so rotation happens without
	// restarting the service.
	Credentials func(ctx context.Context) (string, error)
}

type Client struct {
	baseURL     string
	projectID   string
	httpClient  *http.Client
	logger      zerolog.Logger
	credentials func(ctx context.Context) (string, error)
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:     opts.BaseURL,
		projectID:   opts.ProjectID,
		httpClient:  httpClient,
		logger:      opts.Logger,
		credentials: opts.Credentials,
	}
}

func (c *Client) authorize(ctx context.Context, req *http.Request) {
	if c.credentials == nil {
		return
	}
	token, err := c.credentials(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("backend: credential lookup failed")
		return
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// JobConfig mirrors the config block of the submission payload.
type JobConfig struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	AspectRatio string `json:"aspectRatio"`
	Seed        int    `json:"seed"`
	Style       string `json:"style,omitempty"`
}

// EngineSelector names the provider and model the backend should route to.
type EngineSelector struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// JobRequest is one generation job submission.
type JobRequest struct {
	Type   string
	Prompt string
	Images []string
	Config JobConfig
	Engine EngineSelector
	Mode   string
}

type submissionPayload struct {
	Type          string         `json:"type"`
	Input         payloadInput   `json:"input"`
	Config        JobConfig      `json:"config"`
	Engine        EngineSelector `json:"engine"`
	EnginePayload payloadEngine  `json:"enginePayload"`
}

type payloadInput struct {
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
}

type payloadEngine struct {
	Prompt    string `json:"prompt"`
	Privacy   string `json:"privacy"`
	ProjectID string `json:"projectId"`
	Mode      string `json:"mode"`
}

type submissionResponse struct {
	Success bool `json:"success"`
	Data    struct {
		JobID string `json:"jobId"`
	} `json:"data"`
	Message string `json:"message,omitempty"`
}

// Submit posts a job and returns the backend-assigned job id. A response with
// success=false wraps domain.ErrSubmissionRejected; any other failure is a
// transport error.
func (c *Client) Submit(ctx context.Context, req JobRequest) (string, error) {
	payload := submissionPayload{
		Type:   req.Type,
		Input:  payloadInput{Prompt: req.Prompt, Images: req.Images},
		Config: req.Config,
		Engine: req.Engine,
		EnginePayload: payloadEngine{
			Prompt:    req.Prompt,
			Privacy:   "PRIVATE",
			ProjectID: c.projectID,
			Mode:      req.Mode,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("backend: encode submission: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("backend: build submission request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("backend: submit job: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("backend: read submission response: %w", err)
	}

	var decoded submissionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("backend: decode submission response (status %d): %w", resp.StatusCode, err)
	}
	if !decoded.Success || decoded.Data.JobID == "" {
		msg := decoded.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("backend: %s: %w", msg, domain.ErrSubmissionRejected)
	}
	c.logger.Debug().Str("job_id", decoded.Data.JobID).Str("type", req.Type).Msg("backend: job accepted")
	return decoded.Data.JobID, nil
}

// JobStatus is one status snapshot of a backend job.
type JobStatus struct {
	Status  string
	Images  []string
	Message string
}

// Terminal reports whether the snapshot ends polling.
func (s JobStatus) Terminal() bool {
	switch s.Status {
	case StatusError, StatusFailed:
		return true
	case StatusDone:
		return len(s.Images) > 0
	default:
		return false
	}
}

// Failed reports an explicit job-level failure.
func (s JobStatus) Failed() bool {
	return s.Status == StatusError || s.Status == StatusFailed
}

type statusResponse struct {
	Status string `json:"status"`
	Result *struct {
		Images []string `json:"images"`
	} `json:"result,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Status queries the job once. Errors returned here are transport errors;
// job-level failure arrives as a JobStatus with an error/failed status.
func (c *Client) Status(ctx context.Context, jobID string) (JobStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/jobs/"+jobID, nil)
	if err != nil {
		return JobStatus{}, fmt.Errorf("backend: build status request: %w", err)
	}
	c.authorize(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return JobStatus{}, fmt.Errorf("backend: query job %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return JobStatus{}, fmt.Errorf("backend: query job %s: status %d", jobID, resp.StatusCode)
	}

	var decoded statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return JobStatus{}, fmt.Errorf("backend: decode status response: %w", err)
	}

	status := JobStatus{Status: decoded.Status}
	if decoded.Result != nil {
		status.Images = decoded.Result.Images
	}
	if decoded.Error != nil {
		status.Message = decoded.Error.Message
	}
	return status, nil
}
