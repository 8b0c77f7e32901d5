// Package main is the entry point for the conversation transfer server.
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

	"github.com/mzhang055/twirl/internal/config"
	"github.com/mzhang055/twirl/internal/events"
	"github.com/mzhang055/twirl/internal/extract"
	"github.com/mzhang055/twirl/internal/handler"
	"github.com/mzhang055/twirl/internal/llm"
	"github.com/mzhang055/twirl/internal/middleware"
	"github.com/mzhang055/twirl/internal/paste"
	"github.com/mzhang055/twirl/internal/session"
	"github.com/mzhang055/twirl/internal/store"
	"github.com/mzhang055/twirl/internal/transfer"
	"github.com/mzhang055/twirl/pkg/logger"
	"github.com/mzhang055/twirl/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "twirl", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS
	natsClient, err := events.Connect(events.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	// Ensure the event stream exists
	publisher := events.NewPublisher(natsClient, log)
	if err := publisher.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	// Open the conversation store over JetStream KV
	kv, err := store.NewNATSKV(ctx, natsClient.JetStream(), cfg.KVBucket)
	if err != nil {
		log.Error("failed to open KV bucket", zap.Error(err))
		os.Exit(1)
	}
	st := store.New(kv, cfg.MaxChats, log)

	// Initialize LLM client
	provider := llm.Provider(cfg.DefaultLLM)
	apiKey := cfg.AnthropicAPIKey
	if provider == llm.ProviderOpenAI || (apiKey == "" && cfg.OpenAIAPIKey != "") {
		provider = llm.ProviderOpenAI
		apiKey = cfg.OpenAIAPIKey
	}
	var continuer *llm.Continuer
	if apiKey != "" {
		llmClient, err := llm.NewClient(provider, apiKey)
		if err != nil {
			log.Warn("failed to create LLM client, continuation disabled", zap.Error(err))
		} else {
			continuer = llm.NewContinuer(llmClient, log)
		}
	}

	// Session manager drives extraction over pushed snapshots
	sessions := session.NewManager(st, st, extract.TimerScheduler{}, cfg.SessionIdleTimeout, log)
	sessionCtx, cancelSessions := context.WithCancel(ctx)
	defer cancelSessions()
	go sessions.Run(sessionCtx)

	formatter := &transfer.Formatter{
		MaxLength: cfg.MaxChatLength,
		MaxTurns:  cfg.MaxMessages,
	}

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsClient)
	extractHandler := handler.NewExtractHandler(st, publisher, log)
	sessionHandler := handler.NewSessionHandler(sessions, log)
	chatHandler := handler.NewChatHandler(st, log)
	pasteHandler := handler.NewPasteHandler(sessions, paste.NewMonitor(st, log), publisher, log)
	transferHandler := handler.NewTransferHandler(st, formatter, continuer, publisher, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/extract", extractHandler.Extract)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Post("/snapshot", sessionHandler.Snapshot)
				r.Delete("/", sessionHandler.Delete)
			})
		})

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", chatHandler.List)
			r.Delete("/", chatHandler.Clear)
			r.Get("/selected", chatHandler.GetSelected)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", chatHandler.Get)
				r.Put("/select", chatHandler.Select)
			})
		})

		r.Post("/paste", pasteHandler.Paste)

		r.Route("/transfer", func(r chi.Router) {
			r.Post("/", transferHandler.Create)
			r.Post("/consume", transferHandler.Consume)
			r.Post("/continue", transferHandler.Continue)
		})
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

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	sessions.CloseAll()
	log.Info("server stopped")
}
