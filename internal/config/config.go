package config

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	DataDir          string  `env:"DATA_DIR" envDefault:"./data"`
	MenuFile         string  `env:"MENU_FILE" envDefault:"./data/pdf/Menu.pdf"`
	AllergenFile     string  `env:"ALLERGEN_FILE" envDefault:"./data/json/allergene.json"`
	Collection       string  `env:"COLLECTION_NAME" envDefault:"la_belle_pizza_collection"`
	OllamaURL        string  `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaModel      string  `env:"OLLAMA_MODEL" envDefault:"llama3.1:8b"`
	OllamaEmbedModel string  `env:"OLLAMA_EMBED_MODEL" envDefault:"nomic-embed-text:v1.5"`
	LLMKey           string  `env:"LLM_API_KEY" envDefault:"ollama"`
	Temperature      float64 `env:"LLM_TEMPERATURE" envDefault:"0.1"`
	MaxTokens        int     `env:"LLM_MAX_TOKENS" envDefault:"0"`
	ChunkMethod      string  `env:"CHUNK_METHOD" envDefault:"sections"`
	ChunkSize        int     `env:"CHUNK_SIZE" envDefault:"1000"`
	ChunkOverlap     int     `env:"CHUNK_OVERLAP" envDefault:"200"`
	TopK             int     `env:"TOP_K" envDefault:"8"`
	RulesFile        string  `env:"RULES_FILE"`
	ListenAddr       string  `env:"LISTEN_ADDR" envDefault:":7860"`
	LogLevel         string  `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string  `env:"LOG_FORMAT" envDefault:"console"`
	CompressDB       bool    `env:"DB_COMPRESS" envDefault:"false"`
	SkipModelCheck   bool    `env:"SKIP_MODEL_CHECK" envDefault:"false"`
}

func Init(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

// Validate rejects settings the chunker and retriever cannot work with.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, %d), got %d", c.ChunkSize, c.ChunkOverlap)
	}
	if c.TopK < 1 {
		return fmt.Errorf("TOP_K must be at least 1, got %d", c.TopK)
	}
	if c.Collection == "" {
		return fmt.Errorf("COLLECTION_NAME is empty")
	}
	return nil
}

// DBPath is the directory chromem persists the collection into.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "chroma_db")
}

func (c *Config) ManifestPath() string {
	return filepath.Join(c.DataDir, "manifest.json")
}

// EmbedBaseURL is the native Ollama API root used by chromem's embedding func.
func (c *Config) EmbedBaseURL() string {
	return c.OllamaURL + "/api"
}
