package index

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/sai-aakash/ragserve/internal/domain"
)

// stubEmbedder returns fixed vectors per text, deterministic across calls.
type stubEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	s.calls++
	vec, ok := s.vectors[text]
	if !ok {
		return domain.EmbeddingResult{}, fmt.Errorf("no stub vector for %q", text)
	}
	return domain.EmbeddingResult{Embedding: vec, TotalTokens: 1}, nil
}

func testChunks() []domain.Chunk {
	return []domain.Chunk{
		{Text: "apple orchard", Metadata: domain.Metadata{Source: "a.pdf", Page: 1}},
		{Text: "banana plantation", Metadata: domain.Metadata{Source: "a.pdf", Page: 2}},
		{Text: "apricot grove", Metadata: domain.Metadata{Source: "b.pdf", Page: 1}},
	}
}

func testEmbedder() *stubEmbedder {
	return &stubEmbedder{vectors: map[string][]float32{
		"apple orchard":     {1, 0, 0},
		"banana plantation": {0, 1, 0},
		"apricot grove":     {0.9, 0.1, 0},
	}}
}

func buildTestIndex(t *testing.T, path string) *Index {
	t.Helper()
	ix, err := Build(context.Background(), path, testChunks(), testEmbedder(),
		"stub-model", 3, zap.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ix
}

func TestBuild_EmptyCorpus(t *testing.T) {
	_, err := Build(context.Background(), t.TempDir(), nil, testEmbedder(),
		"stub-model", 3, zap.NewNop())
	if !errors.Is(err, domain.ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments, got %v", err)
	}
}

func TestSearch_OrderedBySimilarity(t *testing.T) {
	ix := buildTestIndex(t, filepath.Join(t.TempDir(), "idx"))

	results, err := ix.Search(context.Background(), []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	wantOrder := []string{"apple orchard", "apricot grove", "banana plantation"}
	for i, want := range wantOrder {
		if results[i].Chunk.Text != want {
			t.Errorf("result %d = %q, want %q", i, results[i].Chunk.Text, want)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not in descending score order: %v then %v",
				results[i-1].Score, results[i].Score)
		}
	}
	if results[0].Chunk.Metadata.Source != "a.pdf" || results[0].Chunk.Metadata.Page != 1 {
		t.Errorf("metadata not preserved: %+v", results[0].Chunk.Metadata)
	}
}

func TestSearch_ClampsK(t *testing.T) {
	ix := buildTestIndex(t, filepath.Join(t.TempDir(), "idx"))

	results, err := ix.Search(context.Background(), []float32{0, 1, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != ix.Size() {
		t.Fatalf("expected %d results, got %d", ix.Size(), len(results))
	}

	results, err = ix.Search(context.Background(), []float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Chunk.Text != "banana plantation" {
		t.Errorf("top result = %q, want banana plantation", results[0].Chunk.Text)
	}
}

func TestLoad_AbsentPath(t *testing.T) {
	ix, found, err := Load(filepath.Join(t.TempDir(), "never-built"), zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected found=false for absent index")
	}
	if ix != nil {
		t.Fatal("expected nil index for absent path")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx")
	built := buildTestIndex(t, path)

	query := []float32{1, 0, 0}
	before, err := built.Search(context.Background(), query, 3)
	if err != nil {
		t.Fatalf("Search before reload: %v", err)
	}

	loaded, found, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	if loaded.Size() != built.Size() {
		t.Fatalf("loaded size %d != built size %d", loaded.Size(), built.Size())
	}
	if loaded.Manifest().Model != "stub-model" || loaded.Manifest().Dimensions != 3 {
		t.Errorf("manifest not preserved: %+v", loaded.Manifest())
	}

	after, err := loaded.Search(context.Background(), query, 3)
	if err != nil {
		t.Fatalf("Search after reload: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("result count changed after reload: %d vs %d", len(after), len(before))
	}
	for i := range before {
		if after[i].Chunk != before[i].Chunk {
			t.Errorf("result %d changed after reload:\nbefore: %+v\nafter:  %+v",
				i, before[i].Chunk, after[i].Chunk)
		}
		if after[i].Score != before[i].Score {
			t.Errorf("result %d score changed after reload: %v vs %v",
				i, before[i].Score, after[i].Score)
		}
	}
}

func TestLoad_CorruptManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx")
	buildTestIndex(t, path)

	if err := writeManifest(path, Manifest{Model: "stub-model", Dimensions: 3, Chunks: 99}); err != nil {
		t.Fatal(err)
	}

	_, _, err := Load(path, zap.NewNop())
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
}
