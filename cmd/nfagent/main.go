package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nfagent/internal/config"
	logpkg "github.com/kailas-cloud/nfagent/internal/logger"
	"github.com/kailas-cloud/nfagent/internal/metrics"
	taskrepo "github.com/kailas-cloud/nfagent/internal/repository/task"
	"github.com/kailas-cloud/nfagent/internal/transport/a2a"
	"github.com/kailas-cloud/nfagent/internal/transport/nfcorpus"
	openaiLLM "github.com/kailas-cloud/nfagent/internal/transport/openai"
	healthuc "github.com/kailas-cloud/nfagent/internal/usecase/health"
	retrievaluc "github.com/kailas-cloud/nfagent/internal/usecase/retrieval"
	"github.com/kailas-cloud/nfagent/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting nfagent server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("search_endpoint", cfg.Search.Endpoint),
		zap.String("task_store", cfg.Tasks.Store),
	)

	// Register retrieval metrics explicitly (no init())
	metrics.RegisterRetrievalMetrics()

	// Create task store based on driver
	var tasks taskrepo.Store
	switch cfg.Tasks.Store {
	case "memory":
		tasks = taskrepo.NewMemoryStore()
	case "redis":
		store, err := taskrepo.NewRedisStore(taskrepo.RedisConfig{
			Addrs:    cfg.Tasks.Addrs,
			Password: cfg.Tasks.Password,
			TTL:      time.Duration(cfg.Tasks.TTLSec) * time.Second,
		})
		if err != nil {
			logger.Fatal("Failed to create redis task store", zap.Error(err))
		}
		defer store.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := store.Ping(pingCtx); err != nil {
			cancel()
			logger.Fatal("Redis task store not ready", zap.Error(err))
		}
		cancel()
		tasks = store
	default:
		logger.Fatal("Unknown task store", zap.String("store", cfg.Tasks.Store))
	}

	// External collaborators
	searchClient := nfcorpus.NewClient(&nfcorpus.Config{
		Endpoint:   cfg.Search.Endpoint,
		Timeout:    time.Duration(cfg.Search.TimeoutSec) * time.Second,
		MaxRetries: cfg.Search.MaxRetries,
		BackoffMin: time.Duration(cfg.Search.BackoffMinMs) * time.Millisecond,
		BackoffMax: time.Duration(cfg.Search.BackoffMaxMs) * time.Millisecond,
		Logger:     logger,
	})

	reasoner := openaiLLM.NewReasoner(&openaiLLM.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Logger:  logger,
	})

	// Use case services
	retrievalSvc := retrievaluc.New(reasoner, searchClient, logger).
		WithBounds(time.Duration(cfg.Orchestration.TimeoutSec)*time.Second, cfg.Orchestration.MaxSteps).
		WithTopKPolicy(retrievaluc.TopKPolicy(cfg.Search.TopKPolicy))

	healthSvc := healthuc.New(searchClient, reasoner)

	cardURL := cfg.Agent.CardURL
	if cardURL == "" {
		cardURL = fmt.Sprintf("http://localhost:%d/", cfg.HTTP.Port)
	}
	card := a2a.NewAgentCard(cfg.Agent.Name, cfg.Agent.Description, cardURL, version.Version)

	server := a2a.NewServer(retrievalSvc, tasks, healthSvc, card, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
