package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"studio/internal/sqlinline"
)

// HistoryList returns persisted generation outcomes, newest first. The
// history table only exists when a database is configured.
func (a *App) HistoryList(w http.ResponseWriter, r *http.Request) {
	if a.SQL == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "history requires a database")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	rows, err := a.SQL.Query(r.Context(), sqlinline.QListGenerationHistory, limit, offset)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: history query failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load history")
		return
	}
	defer rows.Close()

	items := []map[string]any{}
	for rows.Next() {
		var taskID, jobID, prompt, status, url, channel string
		var cost int64
		var refunded bool
		var config []byte
		var createdAt time.Time
		if err := rows.Scan(&taskID, &jobID, &prompt, &status, &url, &channel, &cost, &refunded, &config, &createdAt); err != nil {
			continue
		}
		items = append(items, map[string]any{
			"task_id":    taskID,
			"job_id":     jobID,
			"prompt":     prompt,
			"status":     status,
			"url":        url,
			"channel":    channel,
			"cost":       cost,
			"refunded":   refunded,
			"config":     json.RawMessage(config),
			"created_at": createdAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
