package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"menu_rag/internal/chunker"
	"menu_rag/internal/loader"
	"menu_rag/internal/store"
	"menu_rag/internal/store/storetest"
)

const catalog = `{
  "restaurant": "La Belle Pizza",
  "date_mise_a_jour": "2025-01-15",
  "avertissement": "Traces possibles.",
  "allergenes_par_produit": {"PIZZA": {"MARGHERITA": ["CÉLERI", "LAIT"]}},
  "recherche_par_allergene": {"SANS_LAIT": {"plats": ["INSALATA"]}}
}`

type fixture struct {
	dir   string
	store *store.Store
	ix    *Indexer
	l     *loader.Loader
}

func newFixture(t *testing.T, open func() *store.Store) *fixture {
	t.Helper()
	dir := t.TempDir()
	s := open()
	cfg := chunker.Config{MaxChunkSize: 1000, Overlap: 200, Sections: []string{"PIZZA", "DOLCI"}}
	return &fixture{
		dir:   dir,
		store: s,
		ix:    New(s, "menu", "sections", filepath.Join(dir, "manifest.json"), nil, zap.NewNop()),
		l:     loader.New(chunker.NewSectionChunker(cfg, loader.TypeMenu, zap.NewNop()), zap.NewNop()),
	}
}

func memoryStore(t *testing.T) func() *store.Store {
	return func() *store.Store {
		s, err := store.OpenMemory("menu", storetest.Embedding(), zap.NewNop())
		require.NoError(t, err)
		return s
	}
}

// reopen swaps the store and fingerprint while keeping the manifest.
func (f *fixture) reopen(s *store.Store, fingerprint string) {
	f.store = s
	f.ix = New(s, "menu", fingerprint, filepath.Join(f.dir, "manifest.json"), nil, zap.NewNop())
}

func (f *fixture) write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func (f *fixture) sources(menu, cat string) []Source {
	return []Source{
		{Path: menu, Prefix: "chunk_menu", Type: loader.TypeMenu, Load: f.l.Menu},
		{Path: cat, Prefix: "chunk_allergens", Type: loader.TypeAllergens, Load: f.l.Catalog},
	}
}

func TestAssignIDs(t *testing.T) {
	docs := AssignIDs("chunk_menu", []chunker.Chunk{
		{Text: "a", Source: "Menu.pdf", Type: "menu"},
		{Text: "b", Source: "Menu.pdf", Type: "menu"},
	})
	require.Len(t, docs, 2)
	assert.Equal(t, "chunk_menu_0", docs[0].ID)
	assert.Equal(t, "chunk_menu_1", docs[1].ID)
	assert.Equal(t, "b", docs[1].Content)
	assert.Equal(t, "Menu.pdf", docs[1].Source)
	assert.Equal(t, "menu", docs[1].Type)
}

func TestRunIndexesBothSources(t *testing.T) {
	f := newFixture(t, memoryStore(t))
	menu := f.write(t, "Menu.txt", "PIZZA MARGHERITA 9,00 DOLCI TIRAMISU 6,00")
	cat := f.write(t, "allergene.json", catalog)

	report, err := f.ix.Run(context.Background(), f.sources(menu, cat), Options{})
	require.NoError(t, err)

	require.Len(t, report.Sources, 2)
	assert.Equal(t, Indexed, report.Sources[0].Outcome)
	assert.Equal(t, 2, report.Sources[0].Chunks)
	assert.Equal(t, Indexed, report.Sources[1].Outcome)
	assert.Equal(t, 3, report.Sources[1].Chunks)
	assert.Equal(t, 5, report.Total)

	docs, err := f.store.Search(context.Background(), "MARGHERITA CÉLERI", 5, loader.TypeAllergens)
	require.NoError(t, err)
	for _, d := range docs {
		assert.Equal(t, "allergene.json", d.Source)
		assert.Contains(t, d.ID, "chunk_allergens_")
	}
}

func TestRunMissingMenuIsNotFatal(t *testing.T) {
	f := newFixture(t, memoryStore(t))
	cat := f.write(t, "allergene.json", catalog)

	report, err := f.ix.Run(context.Background(), f.sources(filepath.Join(f.dir, "Menu.pdf"), cat), Options{})
	require.NoError(t, err)

	assert.Equal(t, Missing, report.Sources[0].Outcome)
	assert.ErrorIs(t, report.Sources[0].Err, loader.ErrSourceNotFound)
	assert.Equal(t, Indexed, report.Sources[1].Outcome)
	assert.Equal(t, 3, report.Total)

	docs, err := f.store.Search(context.Background(), "pizza", 10, "")
	require.NoError(t, err)
	for _, d := range docs {
		assert.Equal(t, loader.TypeAllergens, d.Type)
	}
}

func TestRunMalformedCatalogKeepsMenu(t *testing.T) {
	f := newFixture(t, memoryStore(t))
	menu := f.write(t, "Menu.txt", "PIZZA MARGHERITA 9,00")
	cat := f.write(t, "allergene.json", `{"restaurant": `)

	report, err := f.ix.Run(context.Background(), f.sources(menu, cat), Options{})
	require.NoError(t, err)

	assert.Equal(t, Indexed, report.Sources[0].Outcome)
	assert.Equal(t, Failed, report.Sources[1].Outcome)
	assert.ErrorIs(t, report.Sources[1].Err, loader.ErrMalformedCatalog)
	assert.Equal(t, 1, report.Total)
}

func TestRunEmbeddingFailureIsFatal(t *testing.T) {
	f := newFixture(t, func() *store.Store {
		s, err := store.OpenMemory("menu", storetest.Failing(), zap.NewNop())
		require.NoError(t, err)
		return s
	})
	menu := f.write(t, "Menu.txt", "PIZZA MARGHERITA 9,00")
	cat := f.write(t, "allergene.json", catalog)

	report, err := f.ix.Run(context.Background(), f.sources(menu, cat), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrEmbedding)
	require.Len(t, report.Sources, 1)
	assert.Equal(t, Failed, report.Sources[0].Outcome)
}

func TestRunSkipsUnchangedUnlessForced(t *testing.T) {
	f := newFixture(t, memoryStore(t))
	menu := f.write(t, "Menu.txt", "PIZZA MARGHERITA 9,00")
	cat := f.write(t, "allergene.json", catalog)
	ctx := context.Background()

	_, err := f.ix.Run(ctx, f.sources(menu, cat), Options{})
	require.NoError(t, err)

	report, err := f.ix.Run(ctx, f.sources(menu, cat), Options{})
	require.NoError(t, err)
	assert.Equal(t, Unchanged, report.Sources[0].Outcome)
	assert.Equal(t, 1, report.Sources[0].Chunks)
	assert.Equal(t, Unchanged, report.Sources[1].Outcome)

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(menu, later, later))
	report, err = f.ix.Run(ctx, f.sources(menu, cat), Options{})
	require.NoError(t, err)
	assert.Equal(t, Indexed, report.Sources[0].Outcome)
	assert.Equal(t, Unchanged, report.Sources[1].Outcome)

	report, err = f.ix.Run(ctx, f.sources(menu, cat), Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, Indexed, report.Sources[0].Outcome)
	assert.Equal(t, Indexed, report.Sources[1].Outcome)
	assert.Equal(t, 4, report.Total)
}

func TestRunReset(t *testing.T) {
	f := newFixture(t, memoryStore(t))
	ctx := context.Background()
	menu := f.write(t, "Menu.txt", "PIZZA MARGHERITA 9,00 DOLCI TIRAMISU")
	cat := f.write(t, "allergene.json", catalog)

	_, err := f.ix.Run(ctx, f.sources(menu, cat), Options{})
	require.NoError(t, err)
	require.Equal(t, 5, f.store.Count())

	require.NoError(t, os.WriteFile(menu, []byte("PIZZA MARGHERITA 9,00"), 0o644))
	report, err := f.ix.Run(ctx, f.sources(menu, cat), Options{Reset: true})
	require.NoError(t, err)
	assert.Equal(t, Indexed, report.Sources[1].Outcome)
	assert.Equal(t, 4, report.Total)
}

func TestRunDeletesStaleChunksWhenSourceShrinks(t *testing.T) {
	f := newFixture(t, memoryStore(t))
	ctx := context.Background()
	menu := f.write(t, "Menu.txt", "PIZZA MARGHERITA 9,00 DOLCI TIRAMISU")
	cat := f.write(t, "allergene.json", catalog)

	_, err := f.ix.Run(ctx, f.sources(menu, cat), Options{})
	require.NoError(t, err)
	require.True(t, f.store.Has(ctx, "chunk_menu_1"))

	require.NoError(t, os.WriteFile(menu, []byte("PIZZA MARGHERITA 9,00"), 0o644))
	report, err := f.ix.Run(ctx, f.sources(menu, cat), Options{})
	require.NoError(t, err)
	assert.Equal(t, Indexed, report.Sources[0].Outcome)
	assert.Equal(t, 1, report.Sources[0].Chunks)
	assert.Equal(t, Unchanged, report.Sources[1].Outcome)
	assert.Equal(t, 4, report.Total)
	assert.False(t, f.store.Has(ctx, "chunk_menu_1"))
	assert.True(t, f.store.Has(ctx, "chunk_menu_0"))
}

func TestRunReindexesWhenCollectionIsEmpty(t *testing.T) {
	f := newFixture(t, memoryStore(t))
	ctx := context.Background()
	menu := f.write(t, "Menu.txt", "PIZZA MARGHERITA 9,00 DOLCI TIRAMISU")
	cat := f.write(t, "allergene.json", catalog)

	_, err := f.ix.Run(ctx, f.sources(menu, cat), Options{})
	require.NoError(t, err)

	// Same manifest, fresh database directory.
	f.reopen(memoryStore(t)(), "sections")
	report, err := f.ix.Run(ctx, f.sources(menu, cat), Options{})
	require.NoError(t, err)
	assert.Equal(t, Indexed, report.Sources[0].Outcome)
	assert.Equal(t, Indexed, report.Sources[1].Outcome)
	assert.Equal(t, 5, report.Total)
}

func TestRunReindexesWhenFingerprintChanges(t *testing.T) {
	f := newFixture(t, memoryStore(t))
	ctx := context.Background()
	menu := f.write(t, "Menu.txt", "PIZZA MARGHERITA 9,00 DOLCI TIRAMISU")
	cat := f.write(t, "allergene.json", catalog)

	_, err := f.ix.Run(ctx, f.sources(menu, cat), Options{})
	require.NoError(t, err)

	f.reopen(f.store, "recursive")
	report, err := f.ix.Run(ctx, f.sources(menu, cat), Options{})
	require.NoError(t, err)
	assert.Equal(t, Indexed, report.Sources[0].Outcome)
	assert.Equal(t, Indexed, report.Sources[1].Outcome)

	report, err = f.ix.Run(ctx, f.sources(menu, cat), Options{})
	require.NoError(t, err)
	assert.Equal(t, Unchanged, report.Sources[0].Outcome)
	assert.Equal(t, Unchanged, report.Sources[1].Outcome)
}

func TestFingerprint(t *testing.T) {
	base := Fingerprint("nomic-embed-text", "sections", 1000, 200, []string{"PIZZA", "DOLCI"})
	assert.Equal(t, base, Fingerprint("nomic-embed-text", "sections", 1000, 200, []string{"PIZZA", "DOLCI"}))
	assert.NotEqual(t, base, Fingerprint("nomic-embed-text", "sections", 800, 200, []string{"PIZZA", "DOLCI"}))
	assert.NotEqual(t, base, Fingerprint("nomic-embed-text", "sections", 1000, 200, []string{"PIZZA"}))
	assert.NotEqual(t, base, Fingerprint("mxbai-embed-large", "sections", 1000, 200, []string{"PIZZA", "DOLCI"}))
}
