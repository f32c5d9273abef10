package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"studio/internal/domain"
	"studio/internal/orchestrator"
)

type generateRequest struct {
	Prompt       string             `json:"prompt"`
	Quantity     int                `json:"quantity"`
	BatchPrompts []string           `json:"batch_prompts,omitempty"`
	Channel      string             `json:"channel"`
	Model        string             `json:"model"`
	AspectRatio  string             `json:"aspect_ratio"`
	Resolution   string             `json:"resolution"`
	Seed         int                `json:"seed,omitempty"`
	Style        string             `json:"style,omitempty"`
	References   []domain.Reference `json:"references,omitempty"`
	APIKey       string             `json:"api_key,omitempty"`
}

func (r generateRequest) params() orchestrator.GenerateParams {
	channel := domain.PaymentChannelCredits
	if r.Channel == string(domain.PaymentChannelKey) {
		channel = domain.PaymentChannelKey
	}
	return orchestrator.GenerateParams{
		Prompt:       r.Prompt,
		Quantity:     r.Quantity,
		BatchPrompts: r.BatchPrompts,
		Channel:      channel,
		Model:        r.Model,
		AspectRatio:  r.AspectRatio,
		Resolution:   r.Resolution,
		Seed:         r.Seed,
		Style:        r.Style,
		References:   r.References,
		APIKey:       r.APIKey,
	}
}

// Generate creates one or more tasks from a single generate action. The
// response carries processing placeholders; results arrive via the task
// endpoints as each job completes.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	ids, err := a.Orchestrator.Generate(r.Context(), req.params())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyPrompt):
			a.error(w, http.StatusBadRequest, "empty_prompt", "a prompt is required")
		case errors.Is(err, domain.ErrNoModelSelected):
			a.error(w, http.StatusBadRequest, "no_model", "select a model before generating")
		case errors.Is(err, domain.ErrReferenceLimit):
			a.error(w, http.StatusBadRequest, "too_many_references", "too many reference images attached")
		case errors.Is(err, domain.ErrInsufficientCredits):
			a.error(w, http.StatusForbidden, "insufficient_credits", "not enough credits for this generation")
		default:
			a.Logger.Error().Err(err).Msg("handlers: generate failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to start generation")
		}
		return
	}

	a.json(w, http.StatusAccepted, map[string]any{
		"task_ids": ids,
		"status":   string(domain.TaskStatusProcessing),
	})
}

// Quote prices a pending generate action for pre-flight display.
func (a *App) Quote(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	a.json(w, http.StatusOK, a.Orchestrator.Quote(req.params()))
}
