package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"carenote/internal/auth"
	"carenote/internal/compliance"
	"carenote/internal/config"
	"carenote/internal/db"
	httpx "carenote/internal/http"
	"carenote/internal/jobs"
	"carenote/internal/logging"
	"carenote/internal/plan"
	"carenote/internal/records"
	"carenote/internal/refine"
	"carenote/internal/submission"
	"carenote/internal/suggest"
	"carenote/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("connecting to database", zap.String("dsn", logging.SanitizeConnectionString(cfg.DatabaseURL)))
	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refiner, err := refine.New(refine.Config{
		Provider: cfg.Refiner.Provider,
		Endpoint: cfg.Refiner.Endpoint,
		Model:    cfg.Refiner.Model,
		APIKey:   cfg.Refiner.APIKey,
		Delay:    cfg.Refiner.Delay,
	}, logger)
	if err != nil {
		logger.Fatal("refiner", zap.Error(err))
	}

	catalog := suggest.DefaultCatalog()
	var source suggest.Source = suggest.NewStaticSource()
	if cfg.SuggestionSource == "store" {
		store := suggest.NewStoreSource(gdb, logger)
		if err := store.Seed(ctx, catalog); err != nil {
			logger.Fatal("seed suggestions", zap.Error(err))
		}
		source = store
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	recordsRepo := records.NewRepo(gdb)
	plans := plan.NewService(gdb)
	registry := workspace.NewRegistry(plans, refine.Counted(refiner), compliance.NewChecker(), logger)

	r := httpx.NewRouter(httpx.Deps{
		Config:      cfg,
		JWT:         jwtSvc,
		Auth:        &auth.Service{DB: gdb},
		Submitter:   submission.New(recordsRepo, logger),
		Records:     recordsRepo,
		Plans:       plans,
		Sessions:    registry,
		Suggestions: suggest.Counted(cfg.SuggestionSource, source),
		Catalog:     catalog,
		Logger:      logger,
	})

	worker := &jobs.Worker{
		ID:       "worker-1",
		Repo:     &jobs.Repo{DB: gdb},
		DB:       gdb,
		Notifier: jobs.LogNotifier{Logger: logger.Named("notify")},
		Logger:   logger.Named("jobs"),
		Interval: cfg.WorkerPollInterval,
	}
	go worker.Run(ctx)
	go registry.RunSweeper(ctx, time.Minute, cfg.SessionIdleTTL)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}
