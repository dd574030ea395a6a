package chunker

// Chunk is one retrievable unit of text.
type Chunk struct {
	ID      string // assigned by the indexer: <prefix>_<index>
	Text    string
	Source  string // base name of the originating file
	Type    string // "menu" or "allergens"
	Section string // menu header or catalog category, informational only
}

// Chunker splits a normalized document into chunks.
type Chunker interface {
	Chunk(content, source string) ([]Chunk, error)

	// Name is used in log lines.
	Name() string
}

type Config struct {
	MaxChunkSize int // in runes
	Overlap      int // in runes
	Sections     []string
}
