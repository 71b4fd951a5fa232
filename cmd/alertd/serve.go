package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexdesk/deadline-alerts/internal/cache"
	"github.com/lexdesk/deadline-alerts/internal/credential"
	"github.com/lexdesk/deadline-alerts/internal/dispatch"
	"github.com/lexdesk/deadline-alerts/internal/job"
	"github.com/lexdesk/deadline-alerts/internal/mailer"
	"github.com/lexdesk/deadline-alerts/internal/model"
	"github.com/lexdesk/deadline-alerts/internal/publications"
	"github.com/lexdesk/deadline-alerts/internal/ratelimit"
	"github.com/lexdesk/deadline-alerts/internal/server"
	"github.com/lexdesk/deadline-alerts/internal/store"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the periodic alert loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			cfg, err := model.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("loading config %s: %w", configPath, err)
			}

			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *model.AppConfig, logger *zap.Logger) error {
	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = s.Close() }()

	var transport dispatch.Transport
	if cfg.SMTP.Host != "" {
		password, err := credential.Get(credential.KeySMTPPassword)
		if err != nil {
			logger.Warn("smtp password not found in keyring, email delivery will fail",
				zap.Error(err))
		}
		transport = mailer.NewSMTPTransport(cfg.SMTP, password)
	}

	dispatcher := dispatch.New(s, transport, logger, dispatch.Options{
		SendTimeout: time.Duration(cfg.Job.DispatchTimeoutSec) * time.Second,
	})

	runner := job.New(s, dispatcher, logger, job.Options{
		Interval: time.Duration(cfg.Job.IntervalSec) * time.Second,
		Workers:  cfg.Job.Workers,
	})
	runner.Start(ctx)
	defer runner.Stop()

	limiter, kv := sharedBackings(cfg, logger)

	categoryTTLs := make(map[string]time.Duration, len(cfg.Cache.CategoryTTLs))
	for category, sec := range cfg.Cache.CategoryTTLs {
		categoryTTLs[category] = time.Duration(sec) * time.Second
	}
	c := cache.New(kv, time.Duration(cfg.Cache.DefaultTTLSec)*time.Second, categoryTTLs)

	token, err := credential.Get(credential.KeyPublicationsToken)
	if err != nil {
		logger.Warn("publications token not found in keyring, searches will be unauthenticated",
			zap.Error(err))
	}
	searcher := publications.NewClient(cfg.Publications.BaseURL, token)
	pubs := publications.NewService(searcher, limiter, logger)

	srv := server.New(s, c, pubs, runner, logger)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("shutting down", zap.String("reason", "context canceled"))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// sharedBackings returns the rate limiter and cache store. With a redis
// address configured both live in redis so multiple instances share
// budgets and cached entries; otherwise both are process-local.
func sharedBackings(cfg *model.AppConfig, logger *zap.Logger) (ratelimit.Limiter, cache.KeyValueStore) {
	if cfg.Redis.Addr == "" {
		return ratelimit.NewSlidingWindow(cfg.RateLimit.Limit, cfg.RateLimit.Window()),
			cache.NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.Info("using redis backings", zap.String("addr", cfg.Redis.Addr))

	return ratelimit.NewRedisLimiter(client, cfg.RateLimit.Limit, cfg.RateLimit.Window()),
		cache.NewRedisStore(client, "")
}
