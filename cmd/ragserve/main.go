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
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sai-aakash/ragserve/internal/config"
	"github.com/sai-aakash/ragserve/internal/db"
	dbRedis "github.com/sai-aakash/ragserve/internal/db/redis"
	"github.com/sai-aakash/ragserve/internal/domain"
	"github.com/sai-aakash/ragserve/internal/index"
	logpkg "github.com/sai-aakash/ragserve/internal/logger"
	"github.com/sai-aakash/ragserve/internal/metrics"
	"github.com/sai-aakash/ragserve/internal/repository/embcache"
	"github.com/sai-aakash/ragserve/internal/repository/history"
	chiTransport "github.com/sai-aakash/ragserve/internal/transport/chi"
	openaiTransport "github.com/sai-aakash/ragserve/internal/transport/openai"
	answeruc "github.com/sai-aakash/ragserve/internal/usecase/answer"
	embeddinguc "github.com/sai-aakash/ragserve/internal/usecase/embedding"
	statusuc "github.com/sai-aakash/ragserve/internal/usecase/status"
	"github.com/sai-aakash/ragserve/internal/version"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

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

	logger.Info("Starting ragserve API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_path", cfg.Paths.Index),
		zap.String("history_backend", cfg.History.Backend),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterChatMetrics()

	// Optional Redis store: conversation history plus the embedding cache.
	var store db.Store
	if cfg.History.Backend == "redis" {
		redisStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.History.Addrs,
			Password: cfg.History.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		defer redisStore.Close()

		if err := redisStore.WaitForReady(context.Background(), 10*time.Second); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}
		logger.Info("Connected to redis")
		store = redisStore
	}

	queryEmbedder := buildQueryEmbedder(cfg, store, logger)

	// A missing or unreadable index is not fatal: the server starts and
	// reports itself uninitialized until an index is built and the process
	// restarted.
	var retriever answeruc.Retriever
	ix, found, err := index.Load(cfg.Paths.Index, logger)
	switch {
	case err != nil:
		logger.Error("Failed to load vector index", zap.String("path", cfg.Paths.Index), zap.Error(err))
	case !found:
		logger.Warn("Vector index not found, run ragserve-index first",
			zap.String("path", cfg.Paths.Index))
	default:
		retriever = ix
		logger.Info("Vector index loaded",
			zap.Int("chunks", ix.Size()),
			zap.String("model", ix.Manifest().Model),
		)
	}

	var chat domain.ChatModel
	provider, err := openaiTransport.ResolveChatProvider(
		cfg.LLM.Gemini.APIKey, cfg.LLM.Gemini.Model,
		cfg.LLM.Groq.APIKey, cfg.LLM.Groq.Model,
	)
	if err != nil {
		logger.Warn("No chat provider available", zap.Error(err))
	} else {
		chat = openaiTransport.NewChatModel(&openaiTransport.ChatConfig{
			Provider:    provider.Name,
			APIKey:      provider.APIKey,
			BaseURL:     provider.BaseURL,
			Model:       provider.Model,
			Temperature: cfg.LLM.Temperature,
			Logger:      logger,
		})
		logger.Info("Chat model ready",
			zap.String("provider", provider.Name),
			zap.String("model", provider.Model),
		)
	}

	var hist answeruc.History
	if store != nil {
		hist = history.NewRedisStore(store, cfg.History.Capacity,
			time.Duration(cfg.History.TTLHours)*time.Hour)
	} else {
		hist = history.NewMemoryStore(cfg.History.Capacity)
	}

	answerSvc := answeruc.New(retriever, queryEmbedder, chat, hist, cfg.Retrieval.TopK, logger)
	statusSvc := statusuc.New(answerSvc)

	server := chiTransport.NewServer(answerSvc, statusSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
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

// buildQueryEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction
func buildQueryEmbedder(cfg config.Config, store db.Store, logger *zap.Logger) domain.Embedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cfg.Embedding.Cache && store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Model, logger)

	// Instruction prefix goes outermost so the cache key includes it.
	if cfg.Embedding.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}

	return embedder
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
						"error": "internal error",
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
