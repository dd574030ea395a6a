package retriever

import (
	"regexp"
	"strings"

	"menu_rag/internal/rules"
)

// ExtractDishName applies the patterns in order to the uppercased question
// and returns the first captured name with its whitespace collapsed, or ""
// when nothing matches.
func ExtractDishName(patterns []*regexp.Regexp, question string) string {
	upper := strings.ToUpper(question)
	for _, re := range patterns {
		m := re.FindStringSubmatch(upper)
		if len(m) < 2 {
			continue
		}
		return strings.Join(strings.Fields(m[1]), " ")
	}
	return ""
}

// DishVariants lists the surface forms a dish name may take in the catalog:
// as given, with spaces and underscores swapped, and with each configured
// substitution applied. Duplicates are dropped, order is kept.
func DishVariants(name string, substitutions []rules.Variant) []string {
	candidates := []string{
		name,
		strings.ReplaceAll(name, " ", "_"),
		strings.ReplaceAll(name, "_", " "),
	}
	for _, s := range substitutions {
		candidates = append(candidates, strings.ReplaceAll(name, s.From, s.To))
	}

	seen := make(map[string]struct{}, len(candidates))
	var out []string
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
