package chunker

import (
	"go.uber.org/zap"
)

// SectionChunker splits a menu on its category headers. A header's chunk runs
// until the closest following occurrence of any other header. When no header
// is present it falls back to fixed-size windows.
type SectionChunker struct {
	config   Config
	docType  string
	fallback *TextChunker
	logger   *zap.Logger
}

func NewSectionChunker(config Config, docType string, logger *zap.Logger) *SectionChunker {
	return &SectionChunker{
		config:   config,
		docType:  docType,
		fallback: NewTextChunker(config, docType, logger),
		logger:   logger,
	}
}

func (c *SectionChunker) Name() string {
	return "sections"
}

func (c *SectionChunker) Chunk(content, source string) ([]Chunk, error) {
	text := NormalizeWhitespace(content)
	chunks := c.chunkBySections(text, source)
	if len(chunks) == 0 {
		c.logger.Info("⚠️  no section header found, falling back to windows", zap.String("source", source))
		return c.fallback.Chunk(text, source)
	}
	c.logger.Info("✅ chunks created", zap.String("chunker", c.Name()), zap.Int("count", len(chunks)))
	return chunks, nil
}

func (c *SectionChunker) chunkBySections(text, source string) []Chunk {
	runes := []rune(text)
	upper := upperRunes(runes)

	headers := make([][]rune, len(c.config.Sections))
	for i, s := range c.config.Sections {
		headers[i] = upperRunes([]rune(s))
	}

	var chunks []Chunk
	for i, header := range headers {
		start := indexRunes(upper, header, 0)
		if start == -1 {
			continue
		}

		end := len(runes)
		for j, next := range headers {
			if j == i || string(next) == string(header) {
				continue
			}
			if pos := indexRunes(upper, next, start+len(header)); pos != -1 && pos < end {
				end = pos
			}
		}

		body := CreateChunk(string(runes[start:end]), source, c.docType, c.config.Sections[i])
		if body.Text == "" {
			continue
		}
		body.Text = "Section " + c.config.Sections[i] + ":\n" + body.Text
		chunks = append(chunks, body)
	}
	return chunks
}
