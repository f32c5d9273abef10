package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studio/internal/http/handlers"
	"studio/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.CORSAllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/balance", app.Balance)
	r.Get("/v1/stats", app.StatsSummary)
	r.Get("/v1/history", app.HistoryList)

	r.Route("/v1/generations", func(r chi.Router) {
		r.Post("/", app.Generate)
	})

	r.Post("/v1/pricing/quote", app.Quote)

	r.Route("/v1/tasks", func(r chi.Router) {
		r.Get("/", app.ListTasks)
		r.Get("/archive", app.ArchiveResults)
		r.Get("/{id}", app.GetTask)
		r.Post("/{id}/retry", app.RetryTask)
		r.Delete("/{id}", app.DeleteTask)
	})

	r.With(middleware.RateLimit(app.Config.UploadsPerMinute, time.Minute)).
		Post("/v1/uploads", app.UploadReference)

	return r
}
