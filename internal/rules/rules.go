// Package rules holds the keyword and pattern tables that steer menu chunking
// and hybrid retrieval. Defaults are compiled in; a YAML file may replace any
// top-level field.
package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ForcedMatch pins one chunk to the top of the results when every trigger
// appears in the question. It exists for a single dish whose allergen row the
// similarity search kept missing.
type ForcedMatch struct {
	Name     string   `yaml:"name"`
	Triggers []string `yaml:"triggers"` // lowercase substrings of the question
	Query    string   `yaml:"query"`
	Tokens   []string `yaml:"tokens"` // case-sensitive substrings the chunk must contain
	TopN     int      `yaml:"top_n"`
}

// Variant is a pair of surface forms treated as equivalent for a dish name.
type Variant struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type Rules struct {
	MenuSections     []string      `yaml:"menu_sections"`
	DishPatterns     []string      `yaml:"dish_patterns"`
	Variants         []Variant     `yaml:"variants"`
	AllergenKeywords []string      `yaml:"allergen_keywords"`
	AllergenType     string        `yaml:"allergen_type"`
	VariantQuery     string        `yaml:"variant_query"`
	KeywordQuery     string        `yaml:"keyword_query"`
	VariantTopN      int           `yaml:"variant_top_n"`
	KeywordTopN      int           `yaml:"keyword_top_n"`
	ForcedMatches    []ForcedMatch `yaml:"forced_matches"`

	compiled []*regexp.Regexp
}

// Default returns the rule set the menu assistant ships with.
func Default() *Rules {
	r := &Rules{
		MenuSections: []string{"ANTIPASTI", "INSALATA", "PIZZA", "PASTA", "RISOTTO", "DOLCI", "EXTRAS", "BOISSONS", "KIDS"},
		DishPatterns: []string{
			`(?i)pizza\s+([A-Z\s_]+?)(?:\s*[.?!]|$)`,
			`(?i)prendre\s+(?:la\s+)?(?:pizza\s+)?([A-Z\s_]+?)(?:\s*[.?!]|$)`,
			`(?i)voudrais\s+(?:la\s+)?(?:pizza\s+)?([A-Z\s_]+?)(?:\s*[.?!]|$)`,
		},
		Variants: []Variant{
			{From: "DI BUFALA", To: "DI_BUFALA"},
			{From: "DI_BUFALA", To: "DI BUFALA"},
		},
		AllergenKeywords: []string{"allergique", "allergie", "allergène", "céleri", "gluten", "lait", "œuf", "soja"},
		AllergenType:     "allergens",
		VariantQuery:     "allergènes %s",
		KeywordQuery:     "allergènes pizza %s",
		VariantTopN:      3,
		KeywordTopN:      5,
		ForcedMatches: []ForcedMatch{
			{
				Name:     "margherita-di-bufala",
				Triggers: []string{"margherita", "bufala"},
				Query:    "MARGHERITA_DI_BUFALA allergènes céleri",
				Tokens:   []string{"MARGHERITA_DI_BUFALA", "CÉLERI"},
				TopN:     15,
			},
		},
	}
	if err := r.compile(); err != nil {
		panic(err)
	}
	return r
}

// Load reads YAML overrides from path on top of Default. An empty path
// returns the defaults.
func Load(path string) (*Rules, error) {
	r := Default()
	if path == "" {
		return r, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(r); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := r.compile(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Rules) Validate() error {
	if r.AllergenType == "" {
		return errors.New("rules: allergen_type is empty")
	}
	if r.VariantTopN < 1 || r.KeywordTopN < 1 {
		return errors.New("rules: top_n values must be positive")
	}
	for _, fm := range r.ForcedMatches {
		if fm.Name == "" || len(fm.Triggers) == 0 || len(fm.Tokens) == 0 || fm.Query == "" {
			return fmt.Errorf("rules: forced match %q is incomplete", fm.Name)
		}
		if fm.TopN < 1 {
			return fmt.Errorf("rules: forced match %q needs a positive top_n", fm.Name)
		}
	}
	return nil
}

func (r *Rules) compile() error {
	r.compiled = r.compiled[:0]
	for _, p := range r.DishPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("rules: bad dish pattern %q: %w", p, err)
		}
		r.compiled = append(r.compiled, re)
	}
	return nil
}

// Patterns returns the compiled dish patterns in priority order.
func (r *Rules) Patterns() []*regexp.Regexp {
	return r.compiled
}

// HasAllergenKeyword reports whether the question mentions any allergen keyword.
func (r *Rules) HasAllergenKeyword(question string) bool {
	lower := strings.ToLower(question)
	for _, kw := range r.AllergenKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Triggered reports whether every trigger of fm appears in the question.
func (fm ForcedMatch) Triggered(question string) bool {
	lower := strings.ToLower(question)
	for _, t := range fm.Triggers {
		if !strings.Contains(lower, strings.ToLower(t)) {
			return false
		}
	}
	return true
}

// Matches reports whether content carries every token of fm.
func (fm ForcedMatch) Matches(content string) bool {
	for _, tok := range fm.Tokens {
		if !strings.Contains(content, tok) {
			return false
		}
	}
	return true
}
