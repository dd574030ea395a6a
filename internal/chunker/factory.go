package chunker

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Factory hands out chunkers sharing one configuration.
type Factory struct {
	config Config
	logger *zap.Logger
}

func NewFactory(config Config, logger *zap.Logger) *Factory {
	return &Factory{config: config, logger: logger}
}

// GetChunkerByMethod returns the chunker registered under method.
func (f *Factory) GetChunkerByMethod(method, docType string) (Chunker, error) {
	switch strings.ToLower(method) {
	case "sections", "section", "":
		return NewSectionChunker(f.config, docType, f.logger.Named("chunker")), nil
	case "window", "simple", "text":
		return NewTextChunker(f.config, docType, f.logger.Named("chunker")), nil
	default:
		return nil, fmt.Errorf("unknown chunking method: %s", method)
	}
}
