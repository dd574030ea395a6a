package chunker

import (
	"strings"
	"unicode"
)

// CreateChunk builds a chunk with trimmed text. ID is left for the indexer.
func CreateChunk(text, source, docType, section string) Chunk {
	return Chunk{
		Text:    strings.TrimSpace(text),
		Source:  source,
		Type:    docType,
		Section: section,
	}
}

// NormalizeWhitespace collapses every run of whitespace into a single space.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// upperRunes uppercases rune by rune so indexes stay aligned with the source.
func upperRunes(runes []rune) []rune {
	out := make([]rune, len(runes))
	for i, r := range runes {
		out[i] = unicode.ToUpper(r)
	}
	return out
}

// indexRunes returns the first index of needle in hay at or after from, or -1.
func indexRunes(hay, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(hay); i++ {
		match := true
		for j := range needle {
			if hay[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
