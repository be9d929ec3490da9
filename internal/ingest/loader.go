package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/sai-aakash/ragserve/internal/domain"
)

// Loader reads PDF files from a directory and produces page-level documents.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a PDF directory loader.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load returns one document per page across all PDF files in dir, in
// file-then-page order. Filenames are sorted for determinism. A directory
// with zero PDF files yields an empty slice and no error; the caller decides
// whether that is fatal.
func (l *Loader) Load(dir string) ([]domain.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var docs []domain.Document
	for _, name := range names {
		pages, err := l.loadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		docs = append(docs, pages...)
	}

	l.logger.Info("PDF files loaded",
		zap.Int("files", len(names)),
		zap.Int("pages", len(docs)),
	)
	return docs, nil
}

// loadFile extracts one document per page. Pages are 1-based in metadata.
func (l *Loader) loadFile(path string) ([]domain.Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	source := filepath.Base(path)

	var docs []domain.Document
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}

		docs = append(docs, domain.Document{
			Text: text,
			Metadata: domain.Metadata{
				Source: source,
				Page:   i,
			},
		})
	}
	return docs, nil
}
