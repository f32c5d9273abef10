package handlers

import (
	"net/http"

	"studio/internal/domain"
)

// StatsSummary reports session counters for the dashboard strip.
func (a *App) StatsSummary(w http.ResponseWriter, r *http.Request) {
	var processing, done, failed int
	var spent, refunded int64
	for _, task := range a.Orchestrator.Tasks() {
		switch task.Status {
		case domain.TaskStatusProcessing:
			processing++
		case domain.TaskStatusDone:
			done++
		case domain.TaskStatusError:
			failed++
		}
		// Only accepted credit submissions moved the ledger.
		if task.Channel == domain.PaymentChannelCredits && task.JobID != "" {
			spent += task.Cost
			if task.Refunded {
				refunded += task.Cost
			}
		}
	}
	balance, err := a.Ledger.Balance(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: stats balance read failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"processing":       processing,
		"done":             done,
		"error":            failed,
		"credits_spent":    spent,
		"credits_refunded": refunded,
		"balance":          balance,
	})
}
