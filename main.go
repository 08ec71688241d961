package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clicklens/analytics-api/internal/cache"
	"github.com/clicklens/analytics-api/internal/config"
	"github.com/clicklens/analytics-api/internal/database"
	"github.com/clicklens/analytics-api/internal/httpserver"
	"github.com/clicklens/analytics-api/internal/metrics"
	"github.com/clicklens/analytics-api/internal/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Can't use logger yet, fall back to panic
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("starting clicklens analytics-api",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.String("warehouse_driver", cfg.Warehouse.Driver),
		zap.String("preferred_executor", cfg.Executor.Prefer),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect the warehouse eagerly when possible; a failure here only
	// logs, the server still starts and retries lazily per request.
	deps := &httpserver.Dependencies{Config: cfg, Logger: logger}

	switch cfg.Warehouse.Driver {
	case "clickhouse":
		ch, err := database.NewClickHouseDB(cfg.Warehouse)
		if err != nil {
			logger.Warn("clickhouse warehouse unavailable at startup", zap.Error(err))
		} else {
			deps.ClickHouse = ch
			defer ch.Close()
		}
	default:
		db, err := database.NewPostgresDB(cfg.Warehouse.DSN(), cfg.Warehouse.MaxConns, cfg.Warehouse.MinConns)
		if err != nil {
			logger.Warn("postgres warehouse unavailable at startup", zap.Error(err))
		} else {
			deps.DB = db
			defer db.Close()
		}
	}

	if cfg.Cache.Enabled {
		redis, err := database.NewRedisDB(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("redis unavailable, response cache disabled", zap.Error(err))
		} else {
			deps.Redis = redis
			defer redis.Close()
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics("clicklens")
	}
	deps.Metrics = m

	handler := httpserver.NewServer(deps)

	// Apply middleware chain (order matters: outermost first)
	// Recovery -> Logging -> CORS -> RateLimit -> Auth -> Cache -> Handler
	if deps.Redis != nil {
		responseCache := cache.NewResponseCache(deps.Redis.Client, cfg.Cache.TTL, logger, m)
		handler = responseCache.Handler(handler)
	}

	rateLimitMW := middleware.NewRateLimitMiddleware(cfg.RateLimit, logger)
	rateLimitMW.SetMetrics(m)

	finalHandler := middleware.NewRecoveryMiddleware(logger).Handler(
		middleware.NewLoggingMiddleware(logger, m, cfg.Metrics.Path).Handler(
			middleware.NewCORSMiddleware().Handler(
				rateLimitMW.Handler(
					middleware.NewAuthMiddleware(cfg.Auth, logger).Handler(handler),
				),
			),
		),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           finalHandler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server starting", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Start rate limiter cleanup goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rateLimitMW.CleanupIPLimiters()
			case <-ctx.Done():
				return
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	cancel()

	logger.Info("server stopped")
}
