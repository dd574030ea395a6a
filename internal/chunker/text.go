package chunker

import (
	"go.uber.org/zap"
)

// TextChunker cuts text into fixed-size windows with overlap.
type TextChunker struct {
	config  Config
	docType string
	logger  *zap.Logger
}

func NewTextChunker(config Config, docType string, logger *zap.Logger) *TextChunker {
	return &TextChunker{config: config, docType: docType, logger: logger}
}

func (s *TextChunker) Name() string {
	return "window"
}

func (s *TextChunker) Chunk(content, source string) ([]Chunk, error) {
	chunks := s.chunkBySize(NormalizeWhitespace(content), source)
	s.logger.Info("✅ chunks created", zap.String("chunker", s.Name()), zap.Int("count", len(chunks)))
	return chunks, nil
}

func (s *TextChunker) chunkBySize(content, source string) []Chunk {
	var chunks []Chunk
	runes := []rune(content)

	step := s.config.MaxChunkSize - s.config.Overlap
	if step <= 0 {
		step = s.config.MaxChunkSize
	}

	for i := 0; i < len(runes); i += step {
		end := i + s.config.MaxChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		chunk := CreateChunk(string(runes[i:end]), source, s.docType, "")
		if chunk.Text != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}
	}

	return chunks
}
