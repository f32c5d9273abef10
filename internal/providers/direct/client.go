// Package direct invokes the generation provider with the user's personal
// API key, bypassing the metered backend. The call is synchronous from the
// caller's perspective; internally it drives the provider's long-running
// operation to completion.
package direct

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
)

const entityNotFoundSignature = "requested entity was not found"

// Options configures the direct client.
type Options struct {
	BaseURL      string
	HTTPClient   *http.Client
	Logger       zerolog.Logger
	PollInterval time.Duration
	MaxPolls     int
}

type Client struct {
	baseURL      string
	httpClient   *http.Client
	logger       zerolog.Logger
	pollInterval time.Duration
	maxPolls     int
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	maxPolls := opts.MaxPolls
	if maxPolls <= 0 {
		maxPolls = 150
	}
	return &Client{
		baseURL:      opts.BaseURL,
		httpClient:   httpClient,
		logger:       opts.Logger,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
	}
}

// Request carries one personal-key generation call.
type Request struct {
	Prompt      string
	Images      []string
	Model       string
	AspectRatio string
	Quality     string
	APIKey      string
}

type generatePayload struct {
	Prompt      string   `json:"prompt"`
	Images      []string `json:"images,omitempty"`
	Model       string   `json:"model"`
	AspectRatio string   `json:"aspectRatio,omitempty"`
	Quality     string   `json:"quality,omitempty"`
}

type generateResponse struct {
	Operation string `json:"operation,omitempty"`
	URL       string `json:"url,omitempty"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type operationResponse struct {
	Done   bool `json:"done"`
	Result *struct {
		URL string `json:"url"`
	} `json:"result,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate runs one generation and returns the produced asset URL. An empty
// result is an error; the provider's "entity not found" rejection is wrapped
// as domain.ErrProviderEntityNotFound so callers can prompt for
// re-authentication.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(generatePayload{
		Prompt:      req.Prompt,
		Images:      req.Images,
		Model:       req.Model,
		AspectRatio: req.AspectRatio,
		Quality:     req.Quality,
	})
	if err != nil {
		return "", fmt.Errorf("direct: encode request: %w", err)
	}

	decoded, err := c.post(ctx, "/v1/generate", req.APIKey, body)
	if err != nil {
		return "", err
	}
	if decoded.Error != nil {
		return "", classify(decoded.Error.Message)
	}
	if decoded.URL != "" {
		return decoded.URL, nil
	}
	if decoded.Operation == "" {
		return "", fmt.Errorf("direct: empty result: %w", domain.ErrProviderFailure)
	}
	return c.waitOperation(ctx, decoded.Operation, req.APIKey)
}

func (c *Client) waitOperation(ctx context.Context, operation, apiKey string) (string, error) {
	for attempt := 0; attempt < c.maxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}

		op, err := c.getOperation(ctx, operation, apiKey)
		if err != nil {
			return "", err
		}
		if op.Error != nil {
			return "", classify(op.Error.Message)
		}
		if !op.Done {
			c.logger.Debug().Str("operation", operation).Int("attempt", attempt+1).Msg("direct: operation pending")
			continue
		}
		if op.Result == nil || op.Result.URL == "" {
			return "", fmt.Errorf("direct: empty result: %w", domain.ErrProviderFailure)
		}
		return op.Result.URL, nil
	}
	return "", fmt.Errorf("direct: operation %s did not finish: %w", operation, domain.ErrProviderFailure)
}

func (c *Client) post(ctx context.Context, path, apiKey string, body []byte) (*generateResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("direct: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("direct: call provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("direct: read response: %w", err)
	}
	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("direct: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 && decoded.Error == nil {
		return nil, fmt.Errorf("direct: provider returned status %d: %w", resp.StatusCode, domain.ErrProviderFailure)
	}
	return &decoded, nil
}

func (c *Client) getOperation(ctx context.Context, operation, apiKey string) (*operationResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/operations/"+operation, nil)
	if err != nil {
		return nil, fmt.Errorf("direct: build operation request: %w", err)
	}
	httpReq.Header.Set("X-Api-Key", apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("direct: query operation: %w", err)
	}
	defer resp.Body.Close()

	var decoded operationResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("direct: decode operation response: %w", err)
	}
	return &decoded, nil
}

func classify(message string) error {
	if strings.Contains(strings.ToLower(message), entityNotFoundSignature) {
		return fmt.Errorf("direct: %s: %w", message, domain.ErrProviderEntityNotFound)
	}
	return fmt.Errorf("direct: %s: %w", message, domain.ErrProviderFailure)
}
