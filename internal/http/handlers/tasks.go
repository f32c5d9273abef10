package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
)

// ListTasks returns the session's tasks in creation order.
func (a *App) ListTasks(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"items": a.Orchestrator.Tasks()})
}

// GetTask returns one task with its full lifecycle log.
func (a *App) GetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, ok := a.Orchestrator.Task(id)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "task not found")
		return
	}
	a.json(w, http.StatusOK, task)
}

// RetryTask resubmits a terminal task with its original configuration.
func (a *App) RetryTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Orchestrator.Retry(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			a.error(w, http.StatusNotFound, "not_found", "task not found")
		case errors.Is(err, domain.ErrTaskNotRetryable):
			a.error(w, http.StatusConflict, "not_retryable", "task is still processing")
		default:
			a.Logger.Error().Err(err).Str("task_id", id).Msg("handlers: retry failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to retry task")
		}
		return
	}
	task, _ := a.Orchestrator.Task(id)
	a.json(w, http.StatusAccepted, task)
}

// DeleteTask removes a task from the session. A poll already in flight for
// the removed task becomes a no-op.
func (a *App) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !a.Orchestrator.Delete(id) {
		a.error(w, http.StatusNotFound, "not_found", "task not found")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"deleted": id})
}
