package ingest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sai-aakash/ragserve/internal/domain"
)

func TestNewChunker_InvalidParams(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewChunker(tc.size, tc.overlap); err == nil {
				t.Fatalf("expected error for size=%d overlap=%d", tc.size, tc.overlap)
			}
		})
	}
}

func TestSplit_ShortDocumentYieldsOneChunk(t *testing.T) {
	c, err := NewChunker(500, 50)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	doc := domain.Document{
		Text:     "A short resume page.",
		Metadata: domain.Metadata{Source: "resume.pdf", Page: 1},
	}

	chunks, err := c.Split([]domain.Document{doc})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != doc.Text {
		t.Errorf("chunk text = %q, want whole document text", chunks[0].Text)
	}
	if chunks[0].Metadata != doc.Metadata {
		t.Errorf("chunk metadata = %+v, want %+v", chunks[0].Metadata, doc.Metadata)
	}
}

func TestSplit_EmptyDocumentYieldsNoChunks(t *testing.T) {
	c, err := NewChunker(500, 50)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	chunks, err := c.Split([]domain.Document{{Text: "   \n\n  "}})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected 0 chunks for blank text, got %d", len(chunks))
	}
}

func TestSplit_LongDocument(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&b, "word%02d ", i)
	}
	text := strings.TrimSpace(b.String())

	c, err := NewChunker(100, 20)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	meta := domain.Metadata{Source: "resume.pdf", Page: 2}
	chunks, err := c.Split([]domain.Document{{Text: text, Metadata: meta}})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, ch := range chunks {
		if len(ch.Text) > 100 {
			t.Errorf("chunk %d length %d exceeds size 100", i, len(ch.Text))
		}
		if ch.Metadata != meta {
			t.Errorf("chunk %d metadata = %+v, want %+v", i, ch.Metadata, meta)
		}
	}

	// Consecutive chunks share overlapping words.
	for i := 1; i < len(chunks); i++ {
		firstWord := strings.Fields(chunks[i].Text)[0]
		if !strings.Contains(chunks[i-1].Text, firstWord) {
			t.Errorf("chunk %d does not overlap with its predecessor: %q not in %q",
				i, firstWord, chunks[i-1].Text)
		}
	}
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	first := strings.Repeat("alpha ", 10)
	second := strings.Repeat("beta ", 10)
	text := strings.TrimSpace(first) + "\n\n" + strings.TrimSpace(second)

	c, err := NewChunker(80, 10)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	chunks, err := c.Split([]domain.Document{{Text: text}})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected a chunk per paragraph, got %d", len(chunks))
	}
	if strings.Contains(chunks[0].Text, "beta") {
		t.Errorf("first chunk crossed the paragraph boundary: %q", chunks[0].Text)
	}
}
