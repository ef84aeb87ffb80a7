// Command yogaindex ingests a JSON corpus file into the vector index:
// it embeds every passage, writes the document hashes and creates the HNSW
// index the chat server searches.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lotusmind/yogachat/internal/config"
	dbRedis "github.com/lotusmind/yogachat/internal/db/redis"
	"github.com/lotusmind/yogachat/internal/domain"
	logpkg "github.com/lotusmind/yogachat/internal/logger"
	"github.com/lotusmind/yogachat/internal/metrics"
	corpusrepo "github.com/lotusmind/yogachat/internal/repository/corpus"
	openaiTransport "github.com/lotusmind/yogachat/internal/transport/openai"
	"github.com/lotusmind/yogachat/internal/version"
)

const batchSize = 32

// corpusEntry is one passage in the ingest file.
type corpusEntry struct {
	Content string `json:"content"`
	Title   string `json:"title"`
	URL     string `json:"url"`
}

func main() {
	var (
		file = flag.String("file", "data/corpus.json", "path to the JSON corpus file")
		drop = flag.Bool("drop", false, "drop and rebuild the index before ingesting")
	)
	flag.Parse()

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

	logger.Info("Starting yogaindex",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("file", *file),
		zap.Bool("drop", *drop),
	)

	entries, err := readCorpus(*file)
	if err != nil {
		logger.Fatal("Failed to read corpus", zap.String("file", *file), zap.Error(err))
	}
	logger.Info("Corpus loaded", zap.String("file", *file), zap.Int("documents", len(entries)))

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

	metrics.RegisterChatMetrics()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Model.APIKey,
		BaseURL:    cfg.Model.BaseURL,
		Model:      cfg.Model.EmbeddingModel,
		Dimensions: cfg.Model.Dimensions,
		Logger:     logger,
	})

	corpus := corpusrepo.New(store, embedder, corpusrepo.Options{
		KeyPrefix:       cfg.Corpus.KeyPrefix,
		Dimensions:      cfg.Model.Dimensions,
		HNSWM:           cfg.Corpus.HNSWM,
		HNSWEFConstruct: cfg.Corpus.HNSWEFConstruct,
	})

	if *drop {
		if err := store.DropIndex(ctx, corpus.IndexName()); err != nil {
			logger.Warn("Drop index failed", zap.Error(err))
		}
	}

	if err := corpus.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to create index", zap.Error(err))
	}

	docs := make([]domain.Document, len(entries))
	for i, e := range entries {
		docs[i] = domain.Document{Content: e.Content, Title: e.Title, URL: e.URL}
	}

	start := time.Now()
	for offset := 0; offset < len(docs); offset += batchSize {
		end := offset + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := corpus.AddBatch(ctx, offset, docs[offset:end]); err != nil {
			logger.Fatal("Ingest batch failed",
				zap.Int("offset", offset),
				zap.Error(err))
		}
		logger.Info("Batch ingested", zap.Int("offset", offset), zap.Int("count", end-offset))
	}

	// Read the first document back to confirm the write round-trips and the
	// stored vector matches the configured embedding width.
	doc, dims, err := corpus.Document(ctx, 0)
	if err != nil {
		logger.Fatal("Ingest verification failed", zap.Error(err))
	}
	if dims != cfg.Model.Dimensions {
		logger.Fatal("Stored vector has wrong dimensions",
			zap.Int("got", dims),
			zap.Int("want", cfg.Model.Dimensions))
	}

	logger.Info("Ingest complete",
		zap.Int("documents", len(docs)),
		zap.String("first_title", doc.Title),
		zap.Int("dimensions", dims),
		zap.Duration("took", time.Since(start)))
}

func readCorpus(path string) ([]corpusEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var entries []corpusEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("corpus %s is empty", path)
	}
	return entries, nil
}
