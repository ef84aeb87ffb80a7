package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lotusmind/yogachat/internal/config"
	dbRedis "github.com/lotusmind/yogachat/internal/db/redis"
	logpkg "github.com/lotusmind/yogachat/internal/logger"
	"github.com/lotusmind/yogachat/internal/metrics"
	corpusrepo "github.com/lotusmind/yogachat/internal/repository/corpus"
	usagerepo "github.com/lotusmind/yogachat/internal/repository/usage"
	httpTransport "github.com/lotusmind/yogachat/internal/transport/http"
	openaiTransport "github.com/lotusmind/yogachat/internal/transport/openai"
	answeruc "github.com/lotusmind/yogachat/internal/usecase/answer"
	authuc "github.com/lotusmind/yogachat/internal/usecase/auth"
	chatuc "github.com/lotusmind/yogachat/internal/usecase/chat"
	healthuc "github.com/lotusmind/yogachat/internal/usecase/health"
	quotauc "github.com/lotusmind/yogachat/internal/usecase/quota"
	rerankuc "github.com/lotusmind/yogachat/internal/usecase/rerank"
	"github.com/lotusmind/yogachat/internal/version"
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

	logger.Info("Starting yogachat server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("chat_model", cfg.Model.ChatModel),
		zap.String("embedding_model", cfg.Model.EmbeddingModel),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register chat metrics explicitly (no init())
	metrics.RegisterChatMetrics()

	providerCfg := &openaiTransport.Config{
		APIKey:      cfg.Model.APIKey,
		BaseURL:     cfg.Model.BaseURL,
		Dimensions:  cfg.Model.Dimensions,
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
		Logger:      logger,
	}

	embedderCfg := *providerCfg
	embedderCfg.Model = cfg.Model.EmbeddingModel
	embedder := openaiTransport.NewEmbedder(&embedderCfg)

	generatorCfg := *providerCfg
	generatorCfg.Model = cfg.Model.ChatModel
	generator := openaiTransport.NewGenerator(&generatorCfg)

	corpus := corpusrepo.New(store, embedder, corpusrepo.Options{
		KeyPrefix:       cfg.Corpus.KeyPrefix,
		Dimensions:      cfg.Model.Dimensions,
		HNSWM:           cfg.Corpus.HNSWM,
		HNSWEFConstruct: cfg.Corpus.HNSWEFConstruct,
	})

	usageStore := usagerepo.New(buildUsageBackend(cfg, store), nil)
	gate := quotauc.New(usageStore, cfg.Quota.AnonymousDailyLimit, cfg.Quota.AuthenticatedDailyLimit)

	ranker := rerankuc.New(cfg.Rerank.Aliases, cfg.Corpus.TopK)
	composer := answeruc.New(generator)
	chatSvc := chatuc.New(corpus, gate, ranker, composer, cfg.Corpus.CandidatePool)
	authSvc := authuc.New(cfg.Auth.Users)
	healthSvc := healthuc.New(store, embedder, corpus)

	server := httpTransport.NewServer(chatSvc, authSvc, healthSvc, cfg.Quota.ContactURL, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(),
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

// buildUsageBackend picks the usage persistence backend. Quota counters are
// expendable, so both backends fail open on corrupt state.
func buildUsageBackend(cfg config.Config, store *dbRedis.Store) usagerepo.Backend {
	if cfg.Quota.UsageBackend == "redis" {
		return usagerepo.NewKVBackend(store, cfg.Corpus.KeyPrefix+"usage")
	}
	return usagerepo.NewFileBackend(cfg.Quota.UsageFile)
}
