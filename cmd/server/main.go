package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"MailBlast/internal/api"
	"MailBlast/internal/campaign"
	"MailBlast/internal/config"
	"MailBlast/internal/credentials"
	"MailBlast/internal/metrics"
	"MailBlast/internal/transport"
)

func main() {

	// ------------------------------------------------
	// Logger
	// ------------------------------------------------
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}

	// ------------------------------------------------
	// Config
	// ------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	if cfg.LogLevel == "debug" {
		dev, err := zap.NewDevelopment()
		if err != nil {
			logger.Fatal("failed to build debug logger", zap.Error(err))
		}
		logger = dev
	}
	defer logger.Sync()

	// ------------------------------------------------
	// Root Context + Shutdown
	// ------------------------------------------------
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	// ------------------------------------------------
	// Credential Store
	// ------------------------------------------------
	var store credentials.Store
	switch cfg.CredentialsBackend {
	case config.BackendPostgres:
		pg, err := credentials.NewPostgres(ctx, cfg.DatabaseURL, cfg.DBConnectTimeout, logger)
		if err != nil {
			logger.Fatal("database connection failed", zap.Error(err))
		}
		defer pg.Close()
		store = pg
	default:
		store = credentials.NewMemory()
	}
	logger.Info("credential store ready", zap.String("backend", cfg.CredentialsBackend))

	// ------------------------------------------------
	// Transport
	// ------------------------------------------------
	var sender transport.Transport
	switch cfg.Transport {
	case config.TransportSMTP:
		sender = transport.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPSubject, logger)
		logger.Info("using direct smtp transport",
			zap.String("host", cfg.SMTPHost),
			zap.Int("port", cfg.SMTPPort),
		)
	default:
		sender = transport.NewHTTPClient(cfg.APIURL, cfg.HTTPTimeout, logger)
		logger.Info("using remote mail service", zap.String("url", cfg.APIURL))
	}

	// ------------------------------------------------
	// Metrics
	// ------------------------------------------------
	metrics.Init()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}

	go func() {
		logger.Info("metrics server started", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Campaign Service
	// ------------------------------------------------
	svc := campaign.NewService(store, sender, logger)

	// ------------------------------------------------
	// HTTP API Server
	// ------------------------------------------------
	loginLimiter := rate.NewLimiter(rate.Limit(cfg.LoginRateLimit), cfg.LoginRateBurst)
	handler := api.NewHandler(svc, cfg.MaxCSVRows, logger)

	apiServer := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           api.NewRouter(handler, loginLimiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api server started", zap.String("port", cfg.APIPort))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("api server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Wait for shutdown
	// ------------------------------------------------
	<-ctx.Done()

	logger.Info("shutting down services...")

	// in-flight campaigns get the full shutdown window to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	err = multierr.Combine(
		apiServer.Shutdown(shutdownCtx),
		metricsServer.Shutdown(shutdownCtx),
	)
	if err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}

	logger.Info("application shutdown complete")
}
