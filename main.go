package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"card-validator/pkg/api"
	"card-validator/pkg/clients/cardapi"
	"card-validator/pkg/config"
	"card-validator/pkg/logging"
	"card-validator/pkg/metrics"
	"card-validator/pkg/services"
	"card-validator/pkg/views"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded")
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Views live in memory only and expire when idle
	store := views.NewStore(cfg.ViewTTL)
	store.MaxViews = cfg.MaxViews
	store.OnChange = metrics.SetOpenViews
	go store.Run(ctx)

	cardClient := cardapi.NewClient(cfg.CardAPIURL, nil)
	var opts []services.Option
	if cfg.CardFingerprintKey != "" {
		opts = append(opts, services.WithFingerprintKey([]byte(cfg.CardFingerprintKey)))
	}
	submissionService, err := services.NewCardSubmissionService(cardClient, logger, opts...)
	if err != nil {
		logger.WithError(err).Fatal("Error creating submission service")
	}

	gin.SetMode(cfg.GinMode)
	router := api.NewRouter(api.NewHandlers(store, submissionService, logger), logger, cfg.CORSAllowOrigin)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Error shutting down server")
		}
	}()

	logger.WithFields(logrus.Fields{
		"port":         cfg.Port,
		"card_api_url": cfg.CardAPIURL,
	}).Info("Server starting")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("Error starting server")
	}
}
