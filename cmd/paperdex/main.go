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

	"github.com/sievelab/paperdex/internal/chunker"
	"github.com/sievelab/paperdex/internal/config"
	"github.com/sievelab/paperdex/internal/db"
	dbRedis "github.com/sievelab/paperdex/internal/db/redis"
	"github.com/sievelab/paperdex/internal/domain"
	logpkg "github.com/sievelab/paperdex/internal/logger"
	"github.com/sievelab/paperdex/internal/metrics"
	budgetrepo "github.com/sievelab/paperdex/internal/repository/budget"
	chunkrepo "github.com/sievelab/paperdex/internal/repository/chunkstore"
	paperrepo "github.com/sievelab/paperdex/internal/repository/paper"
	"github.com/sievelab/paperdex/internal/transport/httpapi"
	openaiT "github.com/sievelab/paperdex/internal/transport/openai"
	answeruc "github.com/sievelab/paperdex/internal/usecase/answer"
	embeddinguc "github.com/sievelab/paperdex/internal/usecase/embedding"
	healthuc "github.com/sievelab/paperdex/internal/usecase/health"
	ingestuc "github.com/sievelab/paperdex/internal/usecase/ingest"
	usageuc "github.com/sievelab/paperdex/internal/usecase/usage"
	"github.com/sievelab/paperdex/internal/version"
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

	logger.Info("Starting paperdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register domain metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIngestMetrics()
	metrics.RegisterLLMMetrics()

	// Single BudgetTracker shared by the embedder chain and the usage service.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := cfg.Embedding.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			cfg.Embedding.Provider, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		// Connect persistence store — loads current counters from DB.
		budgetStore := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
		budget.WithStore(ctx, budgetStore)
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	baseEmbedder := openaiT.NewEmbedder(&openaiT.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	embedder := embeddinguc.NewInstrumentedEmbedder(
		baseEmbedder, cfg.Embedding.Provider, cfg.Embedding.Model, budgetChecker, logger,
	)

	// Asymmetric models take different instruction prefixes per side.
	var docEmbedder ingestuc.Embedder = embedder
	if cfg.Embedding.DocumentInstruction != "" {
		docEmbedder = domain.NewInstructionEmbedder(embedder, cfg.Embedding.DocumentInstruction)
	}
	var queryEmbedder answeruc.Embedder = embedder
	if cfg.Embedding.QueryInstruction != "" {
		queryEmbedder = domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}

	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	llm := openaiT.NewChat(&openaiT.ChatConfig{
		APIKey:       cfg.LLM.APIKey,
		BaseURL:      cfg.LLM.BaseURL,
		Model:        cfg.LLM.Model,
		SystemPrompt: cfg.LLM.SystemPrompt,
		Temperature:  cfg.LLM.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		Provider:     cfg.LLM.Provider,
		Logger:       logger,
	})

	// Create repositories
	paperRepo := paperrepo.New(store, time.Duration(cfg.Ingest.ClaimTTLSec)*time.Second)
	chunkRepo := chunkrepo.New(store, chunkrepo.Config{
		Dim:            cfg.Embedding.Dimensions,
		Algorithm:      db.VectorHNSW,
		M:              cfg.Index.HNSWM,
		EFConstruction: cfg.Index.HNSWEFConstruct,
	})
	if err := chunkRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to create chunk index", zap.Error(err))
	}

	// Ingestion pipeline: queue, worker pool, upload service
	splitter, err := chunker.New(chunker.Config{
		Size:    cfg.Ingest.ChunkSize,
		Overlap: cfg.Ingest.ChunkOverlap,
	})
	if err != nil {
		logger.Fatal("Invalid chunker config", zap.Error(err))
	}

	queue := ingestuc.NewQueue(cfg.Ingest.QueueCapacity)
	pipeline := ingestuc.NewPipeline(paperRepo, chunkRepo, ingestuc.PDFExtractor{}, splitter, docEmbedder, logger)
	pool := ingestuc.NewPool(queue, pipeline, cfg.Ingest.Workers, logger)

	ingestSvc := ingestuc.New(paperRepo, chunkRepo, queue, logger).
		WithMaxUploadSize(int64(cfg.Ingest.MaxUploadMB) << 20)

	answerSvc := answeruc.New(paperRepo, chunkRepo, queryEmbedder, llm, logger).
		WithRetrieval(cfg.Search.DefaultTopK, cfg.Search.MaxTopK).
		WithContextBudget(cfg.Search.ContextBudget)

	// Usage service — reads from shared BudgetTracker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New(budgetReader)

	healthSvc := healthuc.New(store, baseEmbedder, llm)

	server := httpapi.NewServer(ingestSvc, answerSvc, usageSvc, healthSvc, logger).
		WithEmbeddingModel(cfg.Embedding.Model)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(httpapi.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	// Workers start before the HTTP server so queued uploads are never stranded.
	pool.Start(ctx)

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

	// Stop accepting queued tasks after the HTTP server is down; in-flight
	// pipeline runs finish before Stop returns.
	pool.Stop()

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
