package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var menuSections = []string{"ANTIPASTI", "INSALATA", "PIZZA", "PASTA", "RISOTTO", "DOLCI", "EXTRAS", "BOISSONS", "KIDS"}

func testConfig() Config {
	return Config{MaxChunkSize: 10, Overlap: 4, Sections: menuSections}
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace("  a\n\n b\t c  "))
	assert.Equal(t, "", NormalizeWhitespace(" \n "))
}

func TestTextChunkerWindows(t *testing.T) {
	c := NewTextChunker(testConfig(), "menu", zap.NewNop())

	chunks, err := c.Chunk("abcdefghijklmnopqrstuvwxyz", "menu.txt")
	require.NoError(t, err)

	var texts []string
	for _, ch := range chunks {
		texts = append(texts, ch.Text)
		assert.Equal(t, "menu.txt", ch.Source)
		assert.Equal(t, "menu", ch.Type)
		assert.Empty(t, ch.ID)
	}
	assert.Equal(t, []string{"abcdefghij", "ghijklmnop", "mnopqrstuv", "stuvwxyz"}, texts)
}

func TestTextChunkerCountsRunes(t *testing.T) {
	c := NewTextChunker(Config{MaxChunkSize: 3, Overlap: 0}, "menu", zap.NewNop())

	chunks, err := c.Chunk("éàüœ", "m")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "éàü", chunks[0].Text)
	assert.Equal(t, "œ", chunks[1].Text)
}

func TestTextChunkerEmpty(t *testing.T) {
	c := NewTextChunker(testConfig(), "menu", zap.NewNop())
	chunks, err := c.Chunk("   ", "m")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSectionChunker(t *testing.T) {
	menu := `Bienvenue chez nous
Antipasti
  BRUSCHETTA 6,50

Pizza   MARGHERITA 9,00
   MARGHERITA_DI_BUFALA 12,50
Dolci TIRAMISU 6,00`

	c := NewSectionChunker(testConfig(), "menu", zap.NewNop())
	chunks, err := c.Chunk(menu, "Menu.pdf")
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "Section ANTIPASTI:\nAntipasti BRUSCHETTA 6,50", chunks[0].Text)
	assert.Equal(t, "Section PIZZA:\nPizza MARGHERITA 9,00 MARGHERITA_DI_BUFALA 12,50", chunks[1].Text)
	assert.Equal(t, "Section DOLCI:\nDolci TIRAMISU 6,00", chunks[2].Text)
	assert.Equal(t, "PIZZA", chunks[1].Section)
	for _, ch := range chunks {
		assert.Equal(t, "Menu.pdf", ch.Source)
		assert.Equal(t, "menu", ch.Type)
	}
}

func TestSectionChunkerStopsAtClosestHeader(t *testing.T) {
	// DOLCI comes first in the text but last in the header list; a repeated
	// KIDS must not cut its own section short.
	menu := "DOLCI PANNA COTTA KIDS MENU 7,00 KIDS GLACE"
	cfg := Config{MaxChunkSize: 100, Sections: []string{"KIDS", "DOLCI"}}

	chunks, err := NewSectionChunker(cfg, "menu", zap.NewNop()).Chunk(menu, "m")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Section KIDS:\nKIDS MENU 7,00 KIDS GLACE", chunks[0].Text)
	assert.Equal(t, "Section DOLCI:\nDOLCI PANNA COTTA", chunks[1].Text)
}

func TestSectionChunkerFallsBack(t *testing.T) {
	text := strings.Repeat("x", 25)
	chunks, err := NewSectionChunker(testConfig(), "menu", zap.NewNop()).Chunk(text, "m")
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	assert.Equal(t, "xxxxxxxxxx", chunks[0].Text)
}

func TestFactory(t *testing.T) {
	f := NewFactory(testConfig(), zap.NewNop())

	c, err := f.GetChunkerByMethod("sections", "menu")
	require.NoError(t, err)
	assert.Equal(t, "sections", c.Name())

	c, err = f.GetChunkerByMethod("window", "menu")
	require.NoError(t, err)
	assert.Equal(t, "window", c.Name())

	_, err = f.GetChunkerByMethod("semantic", "menu")
	assert.Error(t, err)
}
