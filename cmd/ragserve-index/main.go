// Command ragserve-index builds the persistent vector index from the PDF
// documents in the data directory. Run it before starting ragserve, and
// again whenever the documents change.
package main

import (
	"context"
	"flag"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sai-aakash/ragserve/internal/config"
	"github.com/sai-aakash/ragserve/internal/domain"
	"github.com/sai-aakash/ragserve/internal/index"
	"github.com/sai-aakash/ragserve/internal/ingest"
	logpkg "github.com/sai-aakash/ragserve/internal/logger"
	"github.com/sai-aakash/ragserve/internal/metrics"
	openaiTransport "github.com/sai-aakash/ragserve/internal/transport/openai"
	embeddinguc "github.com/sai-aakash/ragserve/internal/usecase/embedding"
)

func main() {
	smokeQuery := flag.String("smoke-query", "What are Aakash's skills?",
		"query to run against the freshly built index as a sanity check (empty to skip)")
	flag.Parse()

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

	logger.Info("Building vector index",
		zap.String("data_path", cfg.Paths.Data),
		zap.String("index_path", cfg.Paths.Index),
		zap.Int("chunk_size", cfg.Chunking.Size),
		zap.Int("chunk_overlap", cfg.Chunking.Overlap),
		zap.String("embedding_model", cfg.Embedding.Model),
	)

	metrics.RegisterEmbeddingMetrics()

	ctx := context.Background()

	loader := ingest.NewLoader(logger)
	docs, err := loader.Load(cfg.Paths.Data)
	if err != nil {
		logger.Fatal("Failed to load documents", zap.Error(err))
	}
	if len(docs) == 0 {
		logger.Fatal("No PDF documents found", zap.String("data_path", cfg.Paths.Data))
	}
	logger.Info("Documents loaded", zap.Int("pages", len(docs)))

	chunker, err := ingest.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		logger.Fatal("Invalid chunking settings", zap.Error(err))
	}
	chunks, err := chunker.Split(docs)
	if err != nil {
		logger.Fatal("Failed to split documents", zap.Error(err))
	}
	logger.Info("Documents split", zap.Int("chunks", len(chunks)))

	base := embeddinguc.NewInstrumentedEmbedder(newBaseEmbedder(cfg, logger), cfg.Embedding.Model, logger)

	var embedder domain.Embedder = base
	if cfg.Embedding.DocumentInstruction != "" {
		embedder = domain.NewInstructionEmbedder(base, cfg.Embedding.DocumentInstruction)
	}

	ix, err := index.Build(ctx, cfg.Paths.Index, chunks, embedder,
		cfg.Embedding.Model, cfg.Embedding.Dimensions, logger)
	if err != nil {
		logger.Fatal("Failed to build index", zap.Error(err))
	}
	logger.Info("Index built",
		zap.String("index_path", cfg.Paths.Index),
		zap.Int("chunks", ix.Size()),
	)

	if *smokeQuery == "" {
		return
	}

	// Round-trip check: embed a query and make sure the fresh index answers.
	var queryEmbedder domain.Embedder = base
	if cfg.Embedding.QueryInstruction != "" {
		queryEmbedder = domain.NewInstructionEmbedder(base, cfg.Embedding.QueryInstruction)
	}

	embResult, err := queryEmbedder.Embed(ctx, *smokeQuery)
	if err != nil {
		logger.Fatal("Smoke query embedding failed", zap.Error(err))
	}

	hits, err := ix.Search(ctx, embResult.Embedding, 2)
	if err != nil {
		logger.Fatal("Smoke query search failed", zap.Error(err))
	}
	for i, hit := range hits {
		logger.Info("Smoke query hit",
			zap.Int("rank", i+1),
			zap.String("source", hit.Chunk.Metadata.Source),
			zap.Int("page", hit.Chunk.Metadata.Page),
			zap.Float32("score", hit.Score),
		)
	}
}

func newBaseEmbedder(cfg config.Config, logger *zap.Logger) domain.Embedder {
	return openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
}
