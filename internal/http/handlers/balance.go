package handlers

import (
	"net/http"
)

// Balance reports the current spendable credit balance.
func (a *App) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := a.Ledger.Balance(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: balance read failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to read balance")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"balance": balance})
}
