package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/config"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/database"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/handler"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/holding"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/logger"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/repository"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/router"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/service"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/validator"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Exam Mastery Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	subjectRepo := repository.NewSubjectRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	usageRepo := repository.NewUsageRepository(pool)
	subRepo := repository.NewSubscriptionRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	userService := service.NewUserService(userRepo, authService)
	adminService := service.NewAdminService(adminRepo, authService)
	examService := service.NewExamService(examRepo, questionRepo, subjectRepo, rdb, log)
	subService := service.NewSubscriptionService(subRepo, log)
	holdStore := holding.NewStore(rdb, cfg.GuestResultTTL)
	attemptService := service.NewAttemptService(
		examService, subService, usageRepo, resultRepo, questionRepo,
		holdStore, rdb, cfg, log,
	)
	attemptService.Run(ctx)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(authService, userService, adminService, attemptService),
		Attempt:      handler.NewAttemptHandler(attemptService),
		Catalog:      handler.NewCatalogHandler(examService, attemptService),
		Result:       handler.NewResultHandler(resultRepo),
		Subscription: handler.NewSubscriptionHandler(subService),
		Exam:         handler.NewExamHandler(examService),
		WS:           handler.NewWSHandler(attemptService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	resultWorker := worker.NewResultWorker(pool, rdb, log)
	snapshotWorker := worker.NewSnapshotWorker(pool, rdb, log)

	go resultWorker.Start(workerCtx)
	go snapshotWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all published exams into Redis BEFORE accepting traffic.
	// This avoids race conditions from lazy loading under thundering herd.
	if err := examService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop attempt tickers, then workers, and let queues drain.
	cancel()
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
