package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"studio/internal/infra"
	"studio/internal/ledger"
	"studio/internal/orchestrator"
	"studio/internal/pricing"
	"studio/internal/uploads"
)

// App is the handler container; everything it needs is injected at startup.
// SQL is nil when no database is configured; handlers that need it degrade.
type App struct {
	Logger       zerolog.Logger
	Config       *infra.Config
	Orchestrator *orchestrator.Orchestrator
	Ledger       ledger.Ledger
	Catalog      *pricing.Catalog
	Intake       *uploads.Intake
	SQL          infra.SQLExecutor
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error":   code,
		"message": message,
	})
}
