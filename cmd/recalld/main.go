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
	"go.uber.org/zap"

	"github.com/joelhooks/joelclaw-sub003/internal/config"
	dbRedis "github.com/joelhooks/joelclaw-sub003/internal/db/redis"
	logpkg "github.com/joelhooks/joelclaw-sub003/internal/logger"
	"github.com/joelhooks/joelclaw-sub003/internal/metrics"
	"github.com/joelhooks/joelclaw-sub003/internal/recall"
	"github.com/joelhooks/joelclaw-sub003/internal/recall/limits"
	"github.com/joelhooks/joelclaw-sub003/internal/recall/rewrite"
	obsrepo "github.com/joelhooks/joelclaw-sub003/internal/repository/observation"
	"github.com/joelhooks/joelclaw-sub003/internal/secrets"
	"github.com/joelhooks/joelclaw-sub003/internal/telemetry"
	chiTransport "github.com/joelhooks/joelclaw-sub003/internal/transport/chi"
	openaiTransport "github.com/joelhooks/joelclaw-sub003/internal/transport/openai"
	"github.com/joelhooks/joelclaw-sub003/internal/version"
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

	logger.Info("Starting recalld",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("collection", cfg.Index.Collection),
	)

	ctx := context.Background()

	// Lease credentials through the secrets daemon where the config asks for it
	var leaser *secrets.Client
	if cfg.Secrets.Addr != "" {
		leaser = secrets.New(cfg.Secrets.Addr, time.Duration(cfg.Secrets.TimeoutSec)*time.Second, logger)
	}

	dbPassword := mustLease(ctx, leaser, cfg.Database.Password, "database password", logger)
	embedKey := mustLease(ctx, leaser, cfg.Embedding.APIKey, "embedding api key", logger)
	haikuKey := mustLease(ctx, leaser, cfg.Rewrite.Haiku.APIKey, "haiku api key", logger)
	openaiKey := mustLease(ctx, leaser, cfg.Rewrite.OpenAI.APIKey, "openai api key", logger)

	// Observation index store
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: dbPassword,
	})
	if err != nil {
		logger.Fatal("Failed to create index store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Observation index not ready", zap.Error(err))
	}
	logger.Info("Connected to observation index")

	// Register recall metrics explicitly (no init())
	metrics.RegisterRecallMetrics()

	l := limits.Default()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     embedKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	chain := rewrite.NewChain(l, logger,
		rewrite.Step{
			Attempter: openaiTransport.NewRewriter(&openaiTransport.RewriterConfig{
				Name:      string(rewrite.StrategyHaiku),
				Provider:  cfg.Rewrite.Haiku.Provider,
				APIKey:    haikuKey,
				BaseURL:   cfg.Rewrite.Haiku.BaseURL,
				Model:     cfg.Rewrite.Haiku.Model,
				MaxTokens: cfg.Rewrite.Haiku.MaxTokens,
				Logger:    logger,
			}),
			Timeout: time.Duration(cfg.Rewrite.Haiku.TimeoutSec) * time.Second,
		},
		rewrite.Step{
			Attempter: openaiTransport.NewRewriter(&openaiTransport.RewriterConfig{
				Name:      string(rewrite.StrategyOpenAI),
				Provider:  cfg.Rewrite.OpenAI.Provider,
				APIKey:    openaiKey,
				BaseURL:   cfg.Rewrite.OpenAI.BaseURL,
				Model:     cfg.Rewrite.OpenAI.Model,
				MaxTokens: cfg.Rewrite.OpenAI.MaxTokens,
				Logger:    logger,
			}),
			Timeout: time.Duration(cfg.Rewrite.OpenAI.TimeoutSec) * time.Second,
		},
	)

	retriever := obsrepo.New(store, embedder, l, cfg.Index.KeyPrefix, cfg.Index.Collection, logger)
	emitter := telemetry.NewLogEmitter(logger, cfg.Recall.TelemetryBuffer)

	svc := recall.New(
		retriever, chain, l, emitter,
		time.Duration(cfg.Recall.RetrievalTimeoutSec)*time.Second,
		logger,
	)

	server := chiTransport.NewServer(svc, store, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

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

// mustLease resolves a possibly lease://-scoped config value. Credential
// failures at startup are fatal with the actionable classification intact.
func mustLease(ctx context.Context, leaser *secrets.Client, value, what string, logger *zap.Logger) string {
	resolved, err := secrets.Resolve(ctx, leaser, value)
	if err != nil {
		logger.Fatal("Failed to lease credential",
			zap.String("credential", what),
			zap.Error(err),
		)
	}
	return resolved
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

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
