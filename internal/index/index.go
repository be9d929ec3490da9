package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/sai-aakash/ragserve/internal/domain"
)

const (
	collectionName = "documents"
	manifestName   = "manifest.json"

	// embedBatchSize bounds a single embedding API call during builds.
	embedBatchSize = 64
)

// Manifest describes a persisted index. It is written next to the chromem
// document store; both artifacts are required to load the index.
type Manifest struct {
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
	Chunks     int       `json:"chunks"`
	BuiltAt    time.Time `json:"built_at"`
}

// Index is an immutable nearest-neighbor index over chunk embeddings.
// Built once from a fixed corpus; shared read-only across requests.
type Index struct {
	collection *chromem.Collection
	manifest   Manifest
	logger     *zap.Logger
}

// Build embeds all chunks and constructs a persistent index at path,
// replacing any previous index there. The chromem store and the manifest are
// written together.
func Build(
	ctx context.Context,
	path string,
	chunks []domain.Chunk,
	embedder domain.Embedder,
	model string,
	dimensions int,
	logger *zap.Logger,
) (*Index, error) {
	if len(chunks) == 0 {
		return nil, domain.ErrNoDocuments
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("clear previous index at %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("create persistent store: %w", err)
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	embeddings, err := embedAll(ctx, embedder, chunks)
	if err != nil {
		return nil, err
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        fmt.Sprintf("chunk-%06d", i),
			Content:   chunk.Text,
			Embedding: embeddings[i],
			Metadata: map[string]string{
				"source": chunk.Metadata.Source,
				"page":   strconv.Itoa(chunk.Metadata.Page),
				"seq":    strconv.Itoa(i),
			},
		}
	}

	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("add documents: %w", err)
	}

	manifest := Manifest{
		Model:      model,
		Dimensions: dimensions,
		Chunks:     len(chunks),
		BuiltAt:    time.Now().UTC(),
	}
	if err := writeManifest(path, manifest); err != nil {
		return nil, err
	}

	logger.Info("Vector index built",
		zap.String("path", path),
		zap.Int("chunks", len(chunks)),
		zap.String("model", model),
	)
	return &Index{collection: collection, manifest: manifest, logger: logger}, nil
}

// Load opens a previously built index. A missing index (no manifest or no
// store directory) returns (nil, false, nil) so the caller can distinguish
// "needs build" from a real load failure.
func Load(path string, logger *zap.Logger) (*Index, bool, error) {
	manifestPath := filepath.Join(path, manifestName)

	data, err := os.ReadFile(filepath.Clean(manifestPath))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, false, fmt.Errorf("parse manifest: %w: %w", domain.ErrIndexCorrupt, err)
	}

	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, false, fmt.Errorf("open persistent store: %w", err)
	}

	collection := db.GetCollection(collectionName, nil)
	if collection == nil {
		return nil, false, fmt.Errorf("collection %q missing from store: %w",
			collectionName, domain.ErrIndexCorrupt)
	}

	if count := collection.Count(); count != manifest.Chunks {
		return nil, false, fmt.Errorf("store holds %d chunks, manifest says %d: %w",
			count, manifest.Chunks, domain.ErrIndexCorrupt)
	}

	logger.Info("Vector index loaded",
		zap.String("path", path),
		zap.Int("chunks", manifest.Chunks),
		zap.String("model", manifest.Model),
	)
	return &Index{collection: collection, manifest: manifest, logger: logger}, true, nil
}

// Size returns the number of indexed chunks.
func (ix *Index) Size() int {
	return ix.collection.Count()
}

// Manifest returns the persisted index metadata.
func (ix *Index) Manifest() Manifest {
	return ix.manifest
}

// Search returns up to k chunks ordered by descending cosine similarity,
// ties broken by insertion order. k is clamped to the index size.
func (ix *Index) Search(ctx context.Context, queryEmbedding []float32, k int) ([]domain.ScoredChunk, error) {
	size := ix.collection.Count()
	if size == 0 || k <= 0 {
		return nil, nil
	}
	if k > size {
		k = size
	}

	results, err := ix.collection.QueryEmbedding(ctx, queryEmbedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	hits := make([]scoredHit, len(results))
	for i, r := range results {
		page, _ := strconv.Atoi(r.Metadata["page"])
		seq, _ := strconv.Atoi(r.Metadata["seq"])
		hits[i] = scoredHit{
			chunk: domain.ScoredChunk{
				Chunk: domain.Chunk{
					Text: r.Content,
					Metadata: domain.Metadata{
						Source: r.Metadata["source"],
						Page:   page,
					},
				},
				Score: r.Similarity,
			},
			seq: seq,
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].chunk.Score != hits[j].chunk.Score {
			return hits[i].chunk.Score > hits[j].chunk.Score
		}
		return hits[i].seq < hits[j].seq
	})

	out := make([]domain.ScoredChunk, len(hits))
	for i, h := range hits {
		out[i] = h.chunk
	}
	return out, nil
}

type scoredHit struct {
	chunk domain.ScoredChunk
	seq   int
}

// embedAll batch-embeds chunk texts, falling back to one-by-one calls for
// providers without a native batch endpoint.
func embedAll(ctx context.Context, embedder domain.Embedder, chunks []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		var batch domain.BatchEmbeddingResult
		var err error
		if be, ok := embedder.(domain.BatchEmbedder); ok {
			batch, err = be.BatchEmbed(ctx, texts[start:end])
		} else {
			batch, err = domain.BatchFallback(ctx, embedder, texts[start:end])
		}
		if err != nil {
			return nil, fmt.Errorf("embed chunks [%d:%d]: %w", start, end, err)
		}
		embeddings = append(embeddings, batch.Embeddings...)
	}
	return embeddings, nil
}

func writeManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, manifestName), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
