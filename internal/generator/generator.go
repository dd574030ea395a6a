// Package generator turns retrieved chunks and a question into a prompt and
// returns the model's answer.
package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"menu_rag/internal/metrics"
	"menu_rag/internal/store"
)

// ErrorPrefix starts every answer produced from a failure.
const ErrorPrefix = "Erreur lors du traitement de votre question: "

// Completer is a language model taking a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const promptTemplate = `Tu es un assistant spécialisé dans les informations sur le menu du restaurant VAPIANO.

## RÈGLES IMPORTANTES
- Réponds UNIQUEMENT avec les informations présentes dans le contexte fourni
- Pour les allergènes, sois TRÈS précis et mentionne TOUS les allergènes listés
- Si une information n'est pas dans le contexte, dis "Je n'ai pas cette information dans ma base de données"
- Utilise les noms EXACTS des plats tels qu'ils apparaissent dans le contexte

## CONTEXTE FOURNI
{context}

## QUESTION DU CLIENT
{question}

## RÉPONSE
Réponds de manière claire et précise en utilisant uniquement les informations du contexte ci-dessus.`

type Generator struct {
	llm     Completer
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func New(llm Completer, m *metrics.Metrics, logger *zap.Logger) *Generator {
	return &Generator{llm: llm, metrics: m, logger: logger}
}

// RenderContext formats each chunk with its provenance, separated by a
// blank line.
func RenderContext(docs []store.Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, fmt.Sprintf("[Source: %s - Type: %s]\n%s\n", orNA(d.Source), orNA(d.Type), d.Content))
	}
	return strings.Join(parts, "\n")
}

// BuildPrompt fills the instruction template.
func BuildPrompt(question string, docs []store.Document) string {
	r := strings.NewReplacer("{context}", RenderContext(docs), "{question}", question)
	return r.Replace(promptTemplate)
}

// Generate asks the model to answer question from docs. It never fails: a
// model error comes back as a readable message.
func (g *Generator) Generate(ctx context.Context, question string, docs []store.Document) string {
	prompt := BuildPrompt(question, docs)
	g.logger.Debug("🤖 querying LLM", zap.Int("prompt_chars", len(prompt)), zap.Int("chunks", len(docs)))

	started := time.Now()
	answer, err := g.llm.Complete(ctx, prompt)
	g.metrics.Generation(started)
	if err != nil {
		g.logger.Error("❌ LLM error", zap.Error(err))
		return ErrorMessage(err)
	}
	return answer
}

// ErrorMessage is the answer shown for a failed question.
func ErrorMessage(err error) string {
	return ErrorPrefix + err.Error()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
