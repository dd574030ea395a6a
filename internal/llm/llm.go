// Package llm talks to the language model served by Ollama through its
// OpenAI-compatible endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

var ErrNoChoice = errors.New("no response from LLM")

type Options struct {
	// OllamaURL is the server root, e.g. http://localhost:11434.
	OllamaURL   string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
	MaxRetries  int
}

type Client struct {
	api         openai.Client
	http        *http.Client
	ollamaURL   string
	model       string
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Client {
	key := opts.APIKey
	if key == "" {
		// Ollama ignores the key; any non-empty value will do.
		key = "ollama"
	}
	base := strings.TrimRight(opts.OllamaURL, "/")
	return &Client{
		api: openai.NewClient(
			option.WithBaseURL(base+"/v1/"),
			option.WithAPIKey(key),
			option.WithMaxRetries(opts.MaxRetries),
		),
		http:        &http.Client{Timeout: 30 * time.Minute},
		ollamaURL:   base,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		logger:      logger,
	}
}

func (c *Client) Model() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoice
	}
	return resp.Choices[0].Message.Content, nil
}

// EnsureModels checks that every model is installed and pulls the missing
// ones. It fails when the server is unreachable.
func (c *Client) EnsureModels(ctx context.Context, models ...string) error {
	page, err := c.api.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("ollama is not running or not reachable at %s: %w", c.ollamaURL, err)
	}
	installed := make(map[string]struct{}, len(page.Data))
	for _, m := range page.Data {
		installed[m.ID] = struct{}{}
	}

	for _, model := range models {
		if hasModel(installed, model) {
			c.logger.Info("✅ model available", zap.String("model", model))
			continue
		}
		c.logger.Info("⬇️  model not found, pulling", zap.String("model", model))
		if err := c.pull(ctx, model); err != nil {
			return err
		}
		c.logger.Info("✅ model pulled", zap.String("model", model))
	}
	return nil
}

// hasModel accepts "name" for an installed "name:latest".
func hasModel(installed map[string]struct{}, model string) bool {
	if _, ok := installed[model]; ok {
		return true
	}
	if !strings.Contains(model, ":") {
		_, ok := installed[model+":latest"]
		return ok
	}
	return false
}

type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

func (c *Client) pull(ctx context.Context, model string) error {
	body, err := json.Marshal(pullRequest{Name: model, Stream: false})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ollamaURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to pull model %s: %w", model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("failed to pull model %s: status %d: %s", model, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
