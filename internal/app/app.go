package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"menu_rag/internal/chunker"
	"menu_rag/internal/config"
	"menu_rag/internal/generator"
	"menu_rag/internal/indexer"
	"menu_rag/internal/llm"
	"menu_rag/internal/loader"
	"menu_rag/internal/metrics"
	"menu_rag/internal/retriever"
	"menu_rag/internal/rules"
	"menu_rag/internal/store"
)

// EmptyQuestion is the answer to a blank question.
const EmptyQuestion = "Veuillez poser une question."

// App owns the store and the question answering pipeline. It is built once
// per process.
type App struct {
	cfg       *config.Config
	rules     *rules.Rules
	store     *store.Store
	llm       *llm.Client
	loader    *loader.Loader
	indexer   *indexer.Indexer
	retriever *retriever.Retriever
	generator *generator.Generator
	metrics   *metrics.Metrics
	logger    *zap.Logger

	// questions are answered one at a time
	mu sync.Mutex
}

type options struct {
	embedding chromem.EmbeddingFunc
	completer generator.Completer
	registry  prometheus.Registerer
	memory    bool
}

type Option func(*options)

// WithEmbedding replaces the Ollama embedding function.
func WithEmbedding(ef chromem.EmbeddingFunc) Option {
	return func(o *options) { o.embedding = ef }
}

// WithCompleter replaces the Ollama chat model.
func WithCompleter(c generator.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithRegistry registers the application metrics on reg.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// WithMemoryStore keeps the vector store in memory instead of DATA_DIR.
func WithMemoryStore() Option {
	return func(o *options) { o.memory = true }
}

func New(cfg *config.Config, r *rules.Rules, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, rules: r, logger: logger}
	if o.registry != nil {
		a.metrics = metrics.New(o.registry)
	}

	ef := o.embedding
	if ef == nil {
		ef = store.NewOllamaEmbeddingFunc(cfg.OllamaEmbedModel, cfg.EmbedBaseURL())
	}

	var err error
	if o.memory {
		a.store, err = store.OpenMemory(cfg.Collection, ef, logger.Named("store"))
	} else {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		a.store, err = store.OpenPersistent(cfg.DBPath(), cfg.CompressDB, cfg.Collection, ef, logger.Named("store"))
	}
	if err != nil {
		return nil, err
	}

	completer := o.completer
	if completer == nil {
		a.llm = llm.New(llm.Options{
			OllamaURL:   cfg.OllamaURL,
			Model:       cfg.OllamaModel,
			APIKey:      cfg.LLMKey,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}, logger.Named("llm"))
		completer = a.llm
	}

	factory := chunker.NewFactory(chunker.Config{
		MaxChunkSize: cfg.ChunkSize,
		Overlap:      cfg.ChunkOverlap,
		Sections:     r.MenuSections,
	}, logger)
	menuChunker, err := factory.GetChunkerByMethod(cfg.ChunkMethod, loader.TypeMenu)
	if err != nil {
		return nil, err
	}

	a.loader = loader.New(menuChunker, logger.Named("loader"))
	fingerprint := indexer.Fingerprint(cfg.OllamaEmbedModel, cfg.ChunkMethod, cfg.ChunkSize, cfg.ChunkOverlap, r.MenuSections)
	a.indexer = indexer.New(a.store, cfg.Collection, fingerprint, cfg.ManifestPath(), a.metrics, logger.Named("indexer"))
	a.retriever = retriever.New(a.store, r, cfg.TopK, a.metrics, logger.Named("retriever"))
	a.generator = generator.New(completer, a.metrics, logger.Named("generator"))
	return a, nil
}

// Init makes sure the chat and embedding models are installed. It does
// nothing when the model check is disabled or the chat model was replaced.
func (a *App) Init(ctx context.Context) error {
	if a.cfg.SkipModelCheck || a.llm == nil {
		return nil
	}
	if err := a.llm.EnsureModels(ctx, a.cfg.OllamaModel, a.cfg.OllamaEmbedModel); err != nil {
		return fmt.Errorf("ollama model check failed: %w", err)
	}
	return nil
}

// Sources lists the files ingestion reads, menu first.
func (a *App) Sources() []indexer.Source {
	return []indexer.Source{
		{Path: a.cfg.MenuFile, Prefix: "chunk_menu", Type: loader.TypeMenu, Load: a.loader.Menu},
		{Path: a.cfg.AllergenFile, Prefix: "chunk_allergens", Type: loader.TypeAllergens, Load: a.loader.Catalog},
	}
}

// Ingest indexes the menu and the allergen catalog.
func (a *App) Ingest(ctx context.Context, opts indexer.Options) (*indexer.Report, error) {
	return a.indexer.Run(ctx, a.Sources(), opts)
}

// Count is the number of documents in the collection.
func (a *App) Count() int {
	return a.store.Count()
}

// Ask answers one question. Failures come back as a readable message, never
// as an error.
func (a *App) Ask(ctx context.Context, question string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if strings.TrimSpace(question) == "" {
		a.metrics.Question("empty")
		return EmptyQuestion
	}

	started := time.Now()
	log := a.logger.With(zap.String("question", question))
	log.Info("❓ question received")

	res, err := a.retriever.Retrieve(ctx, question)
	if err != nil {
		log.Error("❌ retrieval failed", zap.Error(err))
		a.metrics.Question("error")
		return generator.ErrorMessage(err)
	}

	answer := a.generator.Generate(ctx, question, res.Docs)
	if strings.HasPrefix(answer, generator.ErrorPrefix) {
		a.metrics.Question("error")
	} else {
		a.metrics.Question("answered")
	}
	log.Info("💬 answered", zap.Duration("took", time.Since(started)))
	return answer
}
