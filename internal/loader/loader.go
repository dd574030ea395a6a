// Package loader turns the restaurant's source files into chunks: the menu
// document (PDF, Markdown or plain text) and the JSON allergen catalog.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"menu_rag/internal/chunker"
)

const (
	TypeMenu      = "menu"
	TypeAllergens = "allergens"
)

var (
	// ErrSourceNotFound marks a missing input file. Ingestion skips it.
	ErrSourceNotFound = errors.New("source file not found")
	// ErrMalformedCatalog marks an allergen catalog that cannot be parsed.
	ErrMalformedCatalog = errors.New("malformed allergen catalog")
)

type Loader struct {
	menuChunker chunker.Chunker
	logger      *zap.Logger
}

func New(menuChunker chunker.Chunker, logger *zap.Logger) *Loader {
	return &Loader{menuChunker: menuChunker, logger: logger}
}

// Menu extracts the text of the menu document and splits it into chunks.
func (l *Loader) Menu(path string) ([]chunker.Chunk, error) {
	if err := checkExists(path); err != nil {
		return nil, err
	}

	l.logger.Info("📋 loading menu", zap.String("path", path))

	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = readPDF(path)
	case ".md", ".markdown":
		text, err = readMarkdown(path)
	default:
		text, err = readText(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read menu %s: %w", path, err)
	}

	l.logger.Info("📄 menu loaded", zap.Int("chars", len([]rune(text))))

	chunks, err := l.menuChunker.Chunk(text, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to chunk menu: %w", err)
	}
	return chunks, nil
}

// Catalog reads the allergen catalog and renders it into chunks.
func (l *Loader) Catalog(path string) ([]chunker.Chunk, error) {
	if err := checkExists(path); err != nil {
		return nil, err
	}

	l.logger.Info("🚨 loading allergen catalog", zap.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	chunks, err := RenderCatalog(data, filepath.Base(path))
	if err != nil {
		return nil, err
	}

	l.logger.Info("✅ chunks created", zap.String("chunker", "catalog"), zap.Int("count", len(chunks)))
	return chunks, nil
}

func checkExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return nil
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
