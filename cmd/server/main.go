// Package main provides the entry point for the BMS auth server.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bms-server/internal/api"
	"bms-server/internal/api/middleware"
	"bms-server/internal/config"
	"bms-server/internal/repository"
	"bms-server/internal/services"

	// Import migrations to register them with PocketBase.
	_ "bms-server/migrations"

	"github.com/gin-gonic/gin"
	"github.com/pocketbase/pocketbase"
)

func main() {
	ctx := context.Background()

	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}
	if err := config.LoadEnvFiles(".", environment); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}

	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	// The Gin server and the PocketBase admin process share one data
	// directory; Bootstrap opens it without starting the PocketBase router.
	app := pocketbase.New()
	if err := app.Bootstrap(); err != nil {
		return fmt.Errorf("failed to bootstrap database: %w", err)
	}
	if err := app.RunAllMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	users := repository.NewPocketBaseUserRepository(app)
	catalog := repository.NewPocketBasePermissionRepository(app)
	blacklistRepo := repository.NewPocketBaseTokenBlacklistRepository(app)

	codec := services.NewTokenCodec(cfg)
	blacklist := services.NewTokenBlacklistService(blacklistRepo, codec, logger)
	blacklist.StartSweeper(ctx, cfg.GetBlacklistSweepInterval())

	var cache services.CacheBackend
	if addr := cfg.GetRedisAddr(); addr != "" {
		redisCache := services.NewRedisCacheBackend(addr, cfg.GetRedisPassword(), cfg.GetRedisDB(), "bms:")
		defer func() {
			if err := redisCache.Close(); err != nil {
				logger.Warn("Failed to close redis client", "error", err)
			}
		}()
		cache = redisCache
		logger.Info("Using redis permission cache", "addr", addr)
	} else {
		cache = services.NewMemoryCacheBackend()
		logger.Info("Using in-memory permission cache")
	}

	permissions := services.NewPermissionService(users, catalog, catalog, cache, cfg.GetPermissionCacheTTL(), logger)
	authService := services.NewAuthService(users, codec, blacklist, cfg)

	router := setupRouter(cfg, authService, permissions, cache)

	server := &http.Server{
		Addr:         ":" + cfg.GetServerPort(),
		Handler:      router,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
		IdleTimeout:  cfg.GetIdleTimeout(),
	}

	go func() {
		logger.Info("Starting server", "addr", server.Addr, "environment", cfg.GetEnvironment())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			cancel()
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received")
	case <-ctx.Done():
		logger.Info("Context canceled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// setupLogger builds the process logger: JSON in production, text
// otherwise, at the configured level.
func setupLogger(cfg *config.AppConfig) *slog.Logger {
	var level slog.Level
	switch cfg.GetLogLevel() {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// setupRouter configures the Gin router with all middleware and routes.
func setupRouter(
	cfg *config.AppConfig,
	authService services.AuthService,
	permissions services.PermissionService,
	cache services.CacheBackend,
) *gin.Engine {
	if os.Getenv("GIN_MODE") == "" && cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.DefaultLoggingMiddleware())
	router.Use(middleware.RecoveryMiddleware(slog.Default()))
	router.Use(middleware.DefaultCORSMiddleware())

	authMiddleware := middleware.NewAuthMiddleware(authService, permissions)

	healthHandler := api.NewHealthHandler(func() map[string]interface{} {
		return map[string]interface{}{
			"permission_cache_entries": cache.Len(context.Background()),
		}
	})
	healthHandler.RegisterRoutes(router)

	apiGroup := router.Group("/api")

	authHandler := api.NewAuthHandler(authService, permissions)
	authHandler.RegisterRoutes(apiGroup, authMiddleware)

	permissionHandler := api.NewPermissionHandler(permissions)
	permissionHandler.RegisterRoutes(apiGroup, authMiddleware)

	adminHandler := api.NewAdminHandler(authService, permissions)
	adminHandler.RegisterRoutes(apiGroup, authMiddleware)

	return router
}
