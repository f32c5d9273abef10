package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"studio/internal/backend"
	"studio/internal/credentials"
	"studio/internal/history"
	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/ledger"
	"studio/internal/orchestrator"
	"studio/internal/pricing"
	"studio/internal/providers/direct"
	"studio/internal/registry"
	"studio/internal/sched"
	"studio/internal/sqlinline"
	"studio/internal/storage"
	"studio/internal/uploads"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	var (
		led       ledger.Ledger
		hist      history.Sink = history.Noop{}
		keySource credentials.Source = credentials.EnvSource{}
		sqlExec   infra.SQLExecutor
	)
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		runner := infra.NewSQLRunner(pool, logger)
		for _, stmt := range sqlinline.Schema {
			if _, err := runner.Exec(ctx, stmt); err != nil {
				logger.Fatal().Err(err).Msg("failed to bootstrap schema")
			}
		}
		pgLedger := ledger.NewPostgres(runner, "default")
		if err := pgLedger.Ensure(ctx, cfg.InitialCredits); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed credit balance")
		}
		led = pgLedger
		hist = history.NewPostgres(runner)
		keySource = credentials.NewSQLSource(runner)
		sqlExec = runner
	} else {
		logger.Warn().Int64("credits", cfg.InitialCredits).Msg("no DATABASE_URL, using in-memory ledger")
		led = ledger.NewMemory(cfg.InitialCredits)
	}

	keyPool := credentials.NewPool(keySource, cfg.CredentialTTL)

	backendClient := backend.NewClient(backend.Options{
		BaseURL:   cfg.BackendBaseURL,
		ProjectID: cfg.BackendProjectID,
		Logger:    logger,
		Credentials: func(ctx context.Context) (string, error) {
			return keyPool.Key(ctx, credentials.ProviderGemini)
		},
	})
	directClient := direct.NewClient(direct.Options{
		BaseURL: cfg.ProviderBaseURL,
		Logger:  logger,
	})

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}
	intake := uploads.NewIntake(
		uploads.NewLocalUploader(fileStore, cfg.StorageBaseURL),
		cfg.UploadMaxBytes,
		uploads.DefaultMaxReferences,
		logger,
	)

	catalog := pricing.DefaultCatalog()
	orc := orchestrator.New(orchestrator.Options{
		Registry:  registry.New(),
		Catalog:   catalog,
		Ledger:    led,
		Backend:   backendClient,
		Direct:    directClient,
		Scheduler: sched.NewTimer(),
		History:   hist,
		Logger:    logger,
		Config: orchestrator.Config{
			PollInterval:           cfg.PollInterval,
			TransportRetryInterval: cfg.TransportRetry,
			MaxPollDuration:        cfg.MaxPollDuration,
			MaxReferences:          uploads.DefaultMaxReferences,
		},
	})

	app := &handlers.App{
		Logger:       logger,
		Config:       cfg,
		Orchestrator: orc,
		Ledger:       led,
		Catalog:      catalog,
		Intake:       intake,
		SQL:          sqlExec,
	}
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
