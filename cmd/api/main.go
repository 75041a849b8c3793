package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Khushalgogia/joke-manager-v12/internal/api"
	"github.com/Khushalgogia/joke-manager-v12/internal/api/handler"
	"github.com/Khushalgogia/joke-manager-v12/internal/app"
	"github.com/Khushalgogia/joke-manager-v12/internal/config"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	app.NewLogger(&cfg.Logging)
	defer logger.Sync()

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services: %v", err)
	}
	defer a.Close()

	campaigns := handler.NewCampaignHandler(a.Campaigns, nil)
	if a.Archive != nil {
		campaigns = handler.NewCampaignHandler(a.Campaigns, a.Archive)
	}

	router := api.SetupRouter(api.Handlers{
		Health:   handler.NewHealthHandler(cfg.Logging.ServiceName, map[string]handler.Pinger{"database": a.Ping}),
		Campaign: campaigns,
		Search:   handler.NewSearchHandler(a.Search),
		Joke:     handler.NewJokeHandler(a.Search, a.Jokes),
		Admin:    handler.NewAdminHandler(a.Jokes, a.Extractor, a.Ingest, cfg.Extraction.StagingDir),
	}, &cfg.Server)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.With(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info(ctx, "Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Campaign requests can run for a while; give them time to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
