// Package store keeps the menu chunks in a chromem-go collection persisted
// on disk, embedded through Ollama.
package store

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// ErrEmbedding wraps failures of the embedding service while writing.
var ErrEmbedding = errors.New("embedding failed")

// Document is one stored chunk as returned by a search.
type Document struct {
	ID         string
	Content    string
	Source     string
	Type       string
	Similarity float32
}

type Store struct {
	db            *chromem.DB
	name          string
	embeddingFunc chromem.EmbeddingFunc
	coll          *chromem.Collection
	logger        *zap.Logger
}

// NewOllamaEmbeddingFunc returns the embedding function used for both
// indexing and querying. baseURL is the Ollama API root, e.g.
// http://localhost:11434/api.
func NewOllamaEmbeddingFunc(model, baseURL string) chromem.EmbeddingFunc {
	return chromem.NewEmbeddingFuncOllama(model, baseURL)
}

// OpenPersistent opens (or creates) the on-disk database at path.
func OpenPersistent(path string, compress bool, collection string, ef chromem.EmbeddingFunc, logger *zap.Logger) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database at %s: %w", path, err)
	}
	return newStore(db, collection, ef, logger)
}

// OpenMemory opens a non-persistent database. Used by tests and dry runs.
func OpenMemory(collection string, ef chromem.EmbeddingFunc, logger *zap.Logger) (*Store, error) {
	return newStore(chromem.NewDB(), collection, ef, logger)
}

func newStore(db *chromem.DB, name string, ef chromem.EmbeddingFunc, logger *zap.Logger) (*Store, error) {
	s := &Store{db: db, name: name, embeddingFunc: ef, logger: logger}
	coll, err := db.GetOrCreateCollection(name, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
	}
	s.coll = coll
	logger.Info("📂 collection ready", zap.String("collection", name), zap.Int("documents", coll.Count()))
	return s, nil
}

// Upsert writes docs keyed by ID. An existing ID is overwritten.
func (s *Store) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	cdocs := make([]chromem.Document, 0, len(docs))
	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("document without id (source %s)", d.Source)
		}
		cdocs = append(cdocs, chromem.Document{
			ID:      d.ID,
			Content: d.Content,
			Metadata: map[string]string{
				"source": d.Source,
				"type":   d.Type,
			},
		})
	}
	if err := s.coll.AddDocuments(ctx, cdocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	return nil
}

// Search returns up to n documents most similar to text. A non-empty docType
// restricts the search to documents of that type.
func (s *Store) Search(ctx context.Context, text string, n int, docType string) ([]Document, error) {
	if count := s.coll.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	var where map[string]string
	if docType != "" {
		where = map[string]string{"type": docType}
	}

	results, err := s.coll.Query(ctx, text, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, Document{
			ID:         r.ID,
			Content:    r.Content,
			Source:     r.Metadata["source"],
			Type:       r.Metadata["type"],
			Similarity: r.Similarity,
		})
	}
	return docs, nil
}

func (s *Store) Count() int {
	return s.coll.Count()
}

// Has reports whether every id is stored.
func (s *Store) Has(ctx context.Context, ids ...string) bool {
	for _, id := range ids {
		if _, err := s.coll.GetByID(ctx, id); err != nil {
			return false
		}
	}
	return true
}

// Delete removes the documents with the given ids. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.coll.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

// Reset drops every document of the collection.
func (s *Store) Reset() error {
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", s.name, err)
	}
	coll, err := s.db.CreateCollection(s.name, nil, s.embeddingFunc)
	if err != nil {
		return fmt.Errorf("failed to recreate collection %s: %w", s.name, err)
	}
	s.coll = coll
	s.logger.Info("🗑️ collection reset", zap.String("collection", s.name))
	return nil
}
