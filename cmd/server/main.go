package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ikkim/inventory-backend/config"
	"github.com/ikkim/inventory-backend/internal/app/controller"
	"github.com/ikkim/inventory-backend/internal/app/service"
	"github.com/ikkim/inventory-backend/internal/backend"
	"github.com/ikkim/inventory-backend/internal/imaging"
	"github.com/ikkim/inventory-backend/internal/middleware"
	"github.com/ikkim/inventory-backend/internal/router"
	ws "github.com/ikkim/inventory-backend/internal/websocket"
	"github.com/ikkim/inventory-backend/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting Inventory Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
		"store":       cfg.Store.Backend,
		"images":      cfg.Image.Backend,
	})

	// Open storage backends
	ctx := context.Background()
	stores, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open storage backends", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Error("Failed to close storage backends", err)
		}
	}()

	// Initialize services; one lock serializes every write path
	writes := &sync.Mutex{}
	processor := imaging.NewProcessor(cfg.Image.Quality, cfg.Image.MaxDimension)
	productService := service.NewProductService(stores.Products, stores.Tags, stores.Images, processor, writes)
	tagService := service.NewTagService(stores.Products, stores.Tags, writes)

	// Change feed for connected browsers
	hub := ws.NewHub()
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)
	productService = service.NewProductEventService(productService, hub)
	tagService = service.NewTagEventService(tagService, hub)

	// Initialize controllers
	productController := controller.NewProductController(productService)
	tagController := controller.NewTagController(tagService)
	eventController := controller.NewEventController(hub, cfg.CORS.AllowedOrigins)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)
	if !authMiddleware.Enabled() {
		logger.Warn("JWT_SECRET is not set, write endpoints are unauthenticated")
	}

	// Setup router
	r := router.NewRouter(productController, tagController, eventController, authMiddleware, cfg)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": server.Addr,
			"pid":     os.Getpid(),
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	// Hijacked websocket connections are not closed by Shutdown
	stopHub()
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	logger.Info("Server stopped successfully")
}
