package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/trivia-engine/internal/api"
	"github.com/terra-clan/trivia-engine/internal/cache"
	"github.com/terra-clan/trivia-engine/internal/cleanup"
	"github.com/terra-clan/trivia-engine/internal/health"
	"github.com/terra-clan/trivia-engine/internal/quiz"
	"github.com/terra-clan/trivia-engine/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP port (overrides SERVER_PORT)")
}

func runServe(ctx context.Context) error {
	slog.Info("starting trivia-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(ctx, 30*time.Second)
	defer initCancel()

	repo, err := openRepository(initCtx, cfg)
	if err != nil {
		slog.Error("failed to open repository", "error", err)
		return err
	}
	defer repo.Close()

	checks := health.NewRegistry()
	checks.Register("database", health.Ping(repo))

	var (
		questions storage.QuestionRepository = repo
		locker    cache.Locker               = cache.NewLocalLocker()
		events    cache.Publisher            = cache.NopBus{}
	)

	if cfg.Redis.Enabled {
		client, err := cache.Connect(initCtx, cache.Options{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			slog.Error("failed to connect to redis", "address", cfg.Redis.Address, "error", err)
			return err
		}
		defer client.Close()

		questions = cache.NewQuestionCache(repo, client, cfg.Redis.CacheTTL)
		locker = cache.NewSessionLocker(client, cfg.Redis.LockTTL)
		events = cache.NewEventBus(client, cfg.Redis.EventsChannel)
		checks.Register("redis", health.Redis(client))

		slog.Info("redis connected", "address", cfg.Redis.Address)
	}

	engine := quiz.NewEngine(questions, repo, quiz.WithTarget(cfg.Quiz.Target))

	// Create context with cancellation
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start cleanup worker
	cleaner := cleanup.NewCleaner(repo, cfg.Cleanup.Interval, cfg.Cleanup.SessionTTL, cfg.Cleanup.BatchLimit)
	cleaner.Start(runCtx)

	server := api.NewServer(cfg.Server, api.Dependencies{
		Engine:  engine,
		Catalog: questions,
		Locker:  locker,
		Events:  events,
		Health:  checks,
	})
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-serveErr:
		slog.Error("HTTP server error", "error", err)
		return err
	}

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("trivia-engine stopped")
	return nil
}
