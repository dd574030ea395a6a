package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"menu_rag/internal/chunker"
	"menu_rag/internal/loader"
	"menu_rag/internal/metrics"
	"menu_rag/internal/store"
)

// Writer is the part of the vector store the indexer needs.
type Writer interface {
	Upsert(ctx context.Context, docs []store.Document) error
	Has(ctx context.Context, ids ...string) bool
	Delete(ctx context.Context, ids ...string) error
	Reset() error
	Count() int
}

// Source is one input file and how to turn it into chunks.
type Source struct {
	Path   string
	Prefix string // ids are <Prefix>_<index>
	Type   string
	Load   func(path string) ([]chunker.Chunk, error)
}

type Outcome string

const (
	Indexed   Outcome = "indexed"
	Unchanged Outcome = "unchanged"
	Missing   Outcome = "missing"
	Empty     Outcome = "empty"
	Failed    Outcome = "failed"
)

type SourceReport struct {
	Path    string
	Outcome Outcome
	Chunks  int
	Err     error
}

type Report struct {
	Sources []SourceReport
	// Total is the number of documents in the collection after the run.
	Total int
}

type Options struct {
	Force bool // re-index unchanged files
	Reset bool // empty the collection first
}

type Indexer struct {
	store        Writer
	collection   string
	fingerprint  string
	manifestPath string
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// New returns an indexer writing to w. fingerprint identifies the chunking
// settings; see Fingerprint.
func New(w Writer, collection, fingerprint, manifestPath string, m *metrics.Metrics, logger *zap.Logger) *Indexer {
	return &Indexer{
		store:        w,
		collection:   collection,
		fingerprint:  fingerprint,
		manifestPath: manifestPath,
		metrics:      m,
		logger:       logger,
	}
}

// AssignIDs turns chunks into store documents with ids <prefix>_<index>.
// The same chunk position always gets the same id, so re-indexing a source
// overwrites its previous documents.
func AssignIDs(prefix string, chunks []chunker.Chunk) []store.Document {
	docs := make([]store.Document, len(chunks))
	for i, ch := range chunks {
		docs[i] = store.Document{
			ID:      chunkID(prefix, i),
			Content: ch.Text,
			Source:  ch.Source,
			Type:    ch.Type,
		}
	}
	return docs
}

func chunkID(prefix string, i int) string {
	return fmt.Sprintf("%s_%d", prefix, i)
}

// Run indexes every source. Missing or unreadable sources are reported and
// skipped. An embedding failure stops the run and is returned.
func (ix *Indexer) Run(ctx context.Context, sources []Source, opts Options) (*Report, error) {
	manifest, err := loadManifest(ix.manifestPath)
	if err != nil {
		ix.logger.Warn("⚠️  manifest unreadable, starting fresh", zap.Error(err))
		manifest = &Manifest{Files: make(map[string]FileInfo)}
	}

	if manifest.Collection != "" && manifest.Collection != ix.collection {
		ix.logger.Info("collection changed, invalidating manifest",
			zap.String("from", manifest.Collection), zap.String("to", ix.collection))
		manifest.Files = make(map[string]FileInfo)
	}
	manifest.Collection = ix.collection

	if opts.Reset {
		if err := ix.store.Reset(); err != nil {
			return nil, err
		}
		manifest.Files = make(map[string]FileInfo)
	}

	report := &Report{}
	for _, src := range sources {
		sr, err := ix.indexSource(ctx, src, manifest, opts.Force)
		report.Sources = append(report.Sources, sr)
		if err != nil {
			report.Total = ix.store.Count()
			return report, err
		}
		if sr.Outcome == Indexed {
			if err := manifest.save(ix.manifestPath); err != nil {
				ix.logger.Warn("⚠️  failed to save manifest", zap.Error(err))
			}
		}
	}

	report.Total = ix.store.Count()
	ix.logger.Info("🎉 ingestion finished", zap.Int("documents", report.Total))
	return report, nil
}

func (ix *Indexer) indexSource(ctx context.Context, src Source, manifest *Manifest, force bool) (SourceReport, error) {
	sr := SourceReport{Path: src.Path}
	log := ix.logger.With(zap.String("source", src.Path), zap.String("type", src.Type))

	info, err := os.Stat(src.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("⚠️  source not found, skipping")
			sr.Outcome, sr.Err = Missing, fmt.Errorf("%w: %s", loader.ErrSourceNotFound, src.Path)
			return sr, nil
		}
		log.Error("❌ cannot stat source", zap.Error(err))
		sr.Outcome, sr.Err = Failed, err
		return sr, nil
	}

	key, _ := filepath.Abs(src.Path)
	prev, known := manifest.Files[key]
	if !force && manifest.unchanged(key, info, ix.fingerprint) {
		if ix.store.Has(ctx, chunkID(src.Prefix, 0), chunkID(src.Prefix, prev.Chunks-1)) {
			sr.Outcome, sr.Chunks = Unchanged, prev.Chunks
			log.Info("⏭️  source unchanged, skipping")
			return sr, nil
		}
		log.Info("source unchanged but missing from the collection, re-indexing")
	}

	chunks, err := src.Load(src.Path)
	if err != nil {
		if errors.Is(err, loader.ErrSourceNotFound) {
			log.Warn("⚠️  source not found, skipping")
			sr.Outcome, sr.Err = Missing, err
			return sr, nil
		}
		log.Error("❌ failed to process source", zap.Error(err))
		sr.Outcome, sr.Err = Failed, err
		return sr, nil
	}
	if len(chunks) == 0 {
		log.Warn("⚠️  no chunk created")
		sr.Outcome = Empty
		return sr, nil
	}

	log.Info("💾 storing chunks", zap.Int("count", len(chunks)))
	if err := ix.store.Upsert(ctx, AssignIDs(src.Prefix, chunks)); err != nil {
		log.Error("❌ failed to store chunks", zap.Error(err))
		sr.Outcome, sr.Err = Failed, err
		return sr, fmt.Errorf("indexing %s: %w", src.Path, err)
	}
	ix.metrics.ChunksIndexed(src.Type, len(chunks))

	if known && prev.Chunks > len(chunks) {
		stale := make([]string, 0, prev.Chunks-len(chunks))
		for i := len(chunks); i < prev.Chunks; i++ {
			stale = append(stale, chunkID(src.Prefix, i))
		}
		if err := ix.store.Delete(ctx, stale...); err != nil {
			log.Warn("⚠️  failed to delete stale chunks", zap.Strings("ids", stale), zap.Error(err))
		} else {
			log.Info("🗑️ stale chunks deleted", zap.Int("count", len(stale)))
		}
	}

	manifest.Files[key] = FileInfo{
		Path:         src.Path,
		LastModified: info.ModTime(),
		Size:         info.Size(),
		Chunks:       len(chunks),
		Fingerprint:  ix.fingerprint,
	}
	sr.Outcome, sr.Chunks = Indexed, len(chunks)
	log.Info("✅ source indexed")
	return sr, nil
}
