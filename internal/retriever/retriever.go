// Package retriever implements the hybrid retrieval used to build the
// context of an answer: a similarity search over the whole collection,
// then a few lexical rules that pull allergen chunks the search tends to
// miss.
package retriever

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"menu_rag/internal/metrics"
	"menu_rag/internal/rules"
	"menu_rag/internal/store"
)

// Searcher is the read side of the vector store. An empty docType searches
// every document.
type Searcher interface {
	Search(ctx context.Context, text string, n int, docType string) ([]store.Document, error)
}

const (
	RuleDishVariants    = "dish-variants"
	RuleAllergenKeyword = "allergen-keywords"
)

// Result is the outcome of one retrieval together with what the rules saw.
type Result struct {
	Docs []store.Document

	Dish     string
	Variants []string
	// Fired lists the rules that changed the result set, in the order they ran.
	Fired []string
}

type Retriever struct {
	searcher Searcher
	rules    *rules.Rules
	k        int
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func New(s Searcher, r *rules.Rules, k int, m *metrics.Metrics, logger *zap.Logger) *Retriever {
	if k < 1 {
		k = 1
	}
	return &Retriever{searcher: s, rules: r, k: k, metrics: m, logger: logger}
}

// Retrieve returns at most k chunks for question, most relevant first.
func (r *Retriever) Retrieve(ctx context.Context, question string) (*Result, error) {
	started := time.Now()
	res := &Result{}

	docs, err := r.searcher.Search(ctx, question, r.k, "")
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	set := NewResultSet(docs)
	r.logger.Debug("🔍 similarity search", zap.Int("found", set.Len()))

	res.Dish = ExtractDishName(r.rules.Patterns(), question)
	if res.Dish != "" {
		res.Variants = DishVariants(res.Dish, r.rules.Variants)
		r.logger.Debug("🍕 dish detected", zap.String("dish", res.Dish), zap.Strings("variants", res.Variants))

		next, err := r.BoostVariants(ctx, res.Variants, set)
		if err != nil {
			return nil, err
		}
		set = r.note(res, RuleDishVariants, set, next)
	}

	var pinned []string
	if r.rules.HasAllergenKeyword(question) {
		next, matches, err := r.AppendAllergenMatches(ctx, question, set)
		if err != nil {
			return nil, err
		}
		pinned = matches
		set = r.note(res, RuleAllergenKeyword, set, next)
	}

	for _, fm := range r.rules.ForcedMatches {
		if !fm.Triggered(question) {
			continue
		}
		next, err := r.ForceMatch(ctx, fm, set)
		if err != nil {
			return nil, err
		}
		set = r.note(res, fm.Name, set, next)
	}

	set = set.TruncateKeeping(r.k, pinned...)
	res.Docs = set.Docs()

	r.metrics.Retrieval(started, len(res.Docs))
	r.logger.Info("📚 context retrieved",
		zap.Int("chunks", len(res.Docs)),
		zap.String("dish", res.Dish),
		zap.Strings("rules", res.Fired),
		zap.Duration("took", time.Since(started)))
	for i, d := range res.Docs {
		r.logger.Debug("chunk", zap.Int("rank", i+1), zap.String("id", d.ID), zap.String("type", d.Type), zap.String("preview", preview(d.Content, 100)))
	}
	return res, nil
}

// BoostVariants searches the allergen chunks for each dish variant and puts
// new chunks that literally contain the variant in front.
func (r *Retriever) BoostVariants(ctx context.Context, variants []string, set ResultSet) (ResultSet, error) {
	for _, v := range variants {
		found, err := r.searcher.Search(ctx, fmt.Sprintf(r.rules.VariantQuery, v), r.rules.VariantTopN, r.rules.AllergenType)
		if err != nil {
			return set, fmt.Errorf("variant search %q: %w", v, err)
		}
		needle := strings.ToUpper(v)
		for _, d := range found {
			if strings.Contains(strings.ToUpper(d.Content), needle) {
				set = set.Prepend(d)
			}
		}
	}
	return set, nil
}

// AppendAllergenMatches adds the allergen chunks closest to the question at
// the end of set. It also returns their ids, best first, which the final cap
// keeps.
func (r *Retriever) AppendAllergenMatches(ctx context.Context, question string, set ResultSet) (ResultSet, []string, error) {
	found, err := r.searcher.Search(ctx, fmt.Sprintf(r.rules.KeywordQuery, question), r.rules.KeywordTopN, r.rules.AllergenType)
	if err != nil {
		return set, nil, fmt.Errorf("allergen search: %w", err)
	}
	ids := make([]string, 0, len(found))
	for _, d := range found {
		ids = append(ids, d.ID)
		set = set.Append(d)
	}
	return set, ids, nil
}

// ForceMatch looks for the first chunk carrying every token of fm and moves
// it to the front.
func (r *Retriever) ForceMatch(ctx context.Context, fm rules.ForcedMatch, set ResultSet) (ResultSet, error) {
	found, err := r.searcher.Search(ctx, fm.Query, fm.TopN, "")
	if err != nil {
		return set, fmt.Errorf("forced match %s: %w", fm.Name, err)
	}
	for _, d := range found {
		if fm.Matches(d.Content) {
			return set.MoveToFront(d), nil
		}
	}
	r.logger.Debug("forced match found nothing", zap.String("rule", fm.Name))
	return set, nil
}

// note records rule as fired when it changed the order or content of set.
func (r *Retriever) note(res *Result, rule string, before, after ResultSet) ResultSet {
	if !sameOrder(before, after) {
		res.Fired = append(res.Fired, rule)
		r.metrics.RuleHit(rule)
	}
	return after
}

func sameOrder(a, b ResultSet) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := range a.docs {
		if a.docs[i].ID != b.docs[i].ID {
			return false
		}
	}
	return true
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
