// Package storetest provides an offline embedding function so the vector
// store can be exercised without an Ollama server.
package storetest

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/philippgille/chromem-go"
)

const dim = 256

// Embedding hashes lowercase word tokens into a normalized bag-of-words
// vector. Texts sharing words end up close to each other.
func Embedding() chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dim)
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		for _, w := range words {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			vec[h.Sum32()%dim]++
		}

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm == 0 {
			vec[0] = 1
			return vec, nil
		}
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
		return vec, nil
	}
}

// ErrOffline is returned by Failing.
var ErrOffline = errors.New("embedding service offline")

// Failing always errors, standing in for an unreachable Ollama.
func Failing() chromem.EmbeddingFunc {
	return func(context.Context, string) ([]float32, error) {
		return nil, ErrOffline
	}
}
