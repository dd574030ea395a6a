package loader

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"menu_rag/internal/chunker"
)

// RenderCatalog turns the allergen catalog into chunks: one with the general
// information, one per product category and one for the lookup by allergen.
// Keys are visited in document order so the output is stable between runs.
func RenderCatalog(data []byte, source string) ([]chunker.Chunk, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", ErrMalformedCatalog, source)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: %s: top level is not an object", ErrMalformedCatalog, source)
	}

	fields := map[string]gjson.Result{}
	for _, key := range []string{"restaurant", "date_mise_a_jour", "avertissement", "allergenes_par_produit", "recherche_par_allergene"} {
		v := root.Get(key)
		if !v.Exists() {
			return nil, fmt.Errorf("%w: %s: missing key %q", ErrMalformedCatalog, source, key)
		}
		fields[key] = v
	}

	var chunks []chunker.Chunk

	general := fmt.Sprintf("Informations allergènes - Restaurant: %s\nDate de mise à jour: %s\nAvertissement: %s",
		fields["restaurant"].String(), fields["date_mise_a_jour"].String(), fields["avertissement"].String())
	chunks = append(chunks, chunker.CreateChunk(general, source, TypeAllergens, "general"))

	products := fields["allergenes_par_produit"]
	if !products.IsObject() {
		return nil, fmt.Errorf("%w: %s: allergenes_par_produit is not an object", ErrMalformedCatalog, source)
	}
	products.ForEach(func(category, items gjson.Result) bool {
		switch {
		case items.IsObject():
			var buf strings.Builder
			fmt.Fprintf(&buf, "Allergènes - Catégorie %s:\n", category.String())
			items.ForEach(func(item, allergens gjson.Result) bool {
				if allergens.IsArray() {
					fmt.Fprintf(&buf, "- %s: %s\n", item.String(), joinList(allergens))
				}
				return true
			})
			chunks = append(chunks, chunker.CreateChunk(buf.String(), source, TypeAllergens, category.String()))
		case items.IsArray():
			text := fmt.Sprintf("Allergènes - %s: %s", category.String(), joinList(items))
			chunks = append(chunks, chunker.CreateChunk(text, source, TypeAllergens, category.String()))
		}
		return true
	})

	lookup := fields["recherche_par_allergene"]
	if !lookup.IsObject() {
		return nil, fmt.Errorf("%w: %s: recherche_par_allergene is not an object", ErrMalformedCatalog, source)
	}
	var (
		buf    strings.Builder
		badKey string
	)
	buf.WriteString("Recherche par allergène:\n")
	lookup.ForEach(func(allergen, info gjson.Result) bool {
		if !info.IsObject() {
			badKey = allergen.String()
			return false
		}
		fmt.Fprintf(&buf, "\n%s:\n", allergen.String())
		if note := info.Get("note"); note.Exists() {
			fmt.Fprintf(&buf, "Note: %s\n", note.String())
		}
		if dishes := info.Get("plats_potentiels"); dishes.IsArray() && len(dishes.Array()) > 0 {
			fmt.Fprintf(&buf, "Plats possibles: %s\n", joinList(dishes))
		}
		if dishes := info.Get("plats_possibles"); dishes.Exists() {
			fmt.Fprintf(&buf, "Plats possibles: %s\n", joinList(dishes))
		}
		if dishes := info.Get("plats"); dishes.Exists() {
			fmt.Fprintf(&buf, "Plats: %s\n", joinList(dishes))
		}
		return true
	})
	if badKey != "" {
		return nil, fmt.Errorf("%w: %s: recherche_par_allergene.%s is not an object", ErrMalformedCatalog, source, badKey)
	}
	chunks = append(chunks, chunker.CreateChunk(buf.String(), source, TypeAllergens, "recherche"))

	return chunks, nil
}

func joinList(list gjson.Result) string {
	items := list.Array()
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.String())
	}
	return strings.Join(out, ", ")
}
