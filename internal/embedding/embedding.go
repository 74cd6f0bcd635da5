// Package embedding maps text to fixed-dimension, L2-normalised vectors.
package embedding

import (
	"context"
	"errors"
	"math"
)

var (
	ErrEmptyInput      = errors.New("empty or nil input texts")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Vector is an embedding. Vectors are never mutated after creation.
type Vector []float32

// Embedder produces L2-normalised vectors of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([]Vector, error)
	// Dimension is 0 when the provider only learns it from its first response.
	Dimension() int
	Close() error
}

// Cosine returns the cosine similarity of a and b. Vectors of different
// length, empty vectors and zero vectors compare as 0.
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Normalize returns a unit-length copy of v. A zero vector is returned as is.
func Normalize(v Vector) Vector {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make(Vector, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	n := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

func toVectors(raw [][]float32) []Vector {
	out := make([]Vector, len(raw))
	for i, r := range raw {
		out[i] = Normalize(r)
	}
	return out
}
