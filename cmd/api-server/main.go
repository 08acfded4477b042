package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"levelhub/internal/auth"
	"levelhub/internal/progress"
	"levelhub/internal/webapi"
	"levelhub/pkg/database"
	"levelhub/pkg/logging"
	"levelhub/pkg/utils"
)

func main() {
	logger := logging.New(logging.Config{Level: slog.LevelInfo, Format: "text"})

	cfg, err := utils.Load(".env")
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(database.Config{Path: cfg.SeenDBPath})
	if err != nil {
		logger.Error("seen store open failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Error("seen store migrate failed", "error", err)
		os.Exit(1)
	}
	seen := database.NewSeenStore(db)

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := progress.NewHub()
	router.GET("/ws/progress", progress.WSHandler(hub, logger))

	store := webapi.NewCatalogStore(logger, cfg.OutputDir)
	if err := store.Reload(); err != nil {
		// no catalog yet is fine; the admin endpoints can build one
		logger.Warn("no catalog loaded yet", "error", err)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "output": cfg.OutputDir})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": stats.WSClients,
		})
	})

	// Catalog (public)
	apiHandler := webapi.NewHandler(store)
	apiHandler.RegisterRoutes(router.Group("/api"))

	// Auth
	tokenSvc := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration,
	}
	authHandler := auth.NewHandler(cfg.Auth, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/api/auth"))

	// Admin (protected)
	adminHandler := webapi.NewAdminHandler(logger, cfg, hub, store, seen)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware(tokenSvc))
	adminHandler.RegisterRoutes(admin)

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API server listening", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
