// Package embed defines the embedding provider boundary used by semantic candidate
// generation, plus an offline model and wrappers for caching and serialized access.
package embed

import (
	"context"
	"errors"
	"math"
)

// ErrQueueClosed is returned by a Queue after Close.
var ErrQueueClosed = errors.New("embedding queue closed")

// Model turns texts into fixed-dimension vectors. Identical input must yield identical
// vectors. Implementations that are not safe for concurrent calls should be wrapped in a Queue.
type Model interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Cosine returns the cosine similarity of a and b, or 0 when either is empty, zero
// or the lengths differ.
func Cosine(a, b []float32) float64 {
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

func l2Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
}
