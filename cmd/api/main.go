// Package main is the entry point for the weather chat gateway.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/weather-chat/internal/agent"
	"github.com/capitalize-ai/weather-chat/internal/chat"
	"github.com/capitalize-ai/weather-chat/internal/config"
	"github.com/capitalize-ai/weather-chat/internal/export"
	"github.com/capitalize-ai/weather-chat/internal/handler"
	"github.com/capitalize-ai/weather-chat/internal/middleware"
	natsclient "github.com/capitalize-ai/weather-chat/internal/nats"
	"github.com/capitalize-ai/weather-chat/pkg/logger"
	"github.com/capitalize-ai/weather-chat/pkg/tracing"
)

const serviceName = "weather-chat"

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting weather chat gateway", zap.String("agent_endpoint", cfg.AgentEndpoint))

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, serviceName, cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Agent transport
	agentClient, err := agent.NewHTTPClient(agent.Settings{
		Endpoint:    cfg.AgentEndpoint,
		RunID:       cfg.AgentRunID,
		ResourceID:  cfg.AgentResourceID,
		ThreadID:    cfg.AgentThreadID,
		MaxRetries:  cfg.AgentMaxRetries,
		MaxSteps:    cfg.AgentMaxSteps,
		Temperature: cfg.AgentTemperature,
		TopP:        cfg.AgentTopP,
	})
	if err != nil {
		log.Error("invalid agent configuration", zap.Error(err))
		os.Exit(1)
	}

	chatOpts := []chat.Option{
		chat.WithTracer(tracing.Tracer(serviceName + "/chat")),
	}

	// Optional event publishing
	var healthHandler *handler.HealthHandler
	if cfg.NATSURL != "" {
		natsClient, err := natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log.Named("nats"))
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()

		publisher := natsclient.NewPublisher(natsClient, cfg.NATSSubjectPrefix, log.Named("nats"))
		chatOpts = append(chatOpts, chat.WithSink(publisher))
		healthHandler = handler.NewHealthHandler(natsClient)
	} else {
		healthHandler = handler.NewHealthHandler(nil)
	}

	manager := chat.NewManager(agentClient, log.Named("chat"), chatOpts...)

	// Initialize handlers
	api := &handler.Handlers{
		Conversations: handler.NewConversationHandler(manager, log),
		Messages:      handler.NewMessageHandler(manager, log),
		Stream:        handler.NewStreamHandler(manager, handler.DefaultHeartbeat, log),
		Export: handler.NewExportHandler(manager, export.Options{
			Location:   cfg.ExportLocation(),
			AgentLabel: cfg.AgentLabel,
		}, log),
	}

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/conversations", api.Routes)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Cancel in-flight sends and end live streams so Shutdown can drain.
	manager.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
