package embed

import (
	"context"
	"hash/fnv"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/preprocess"
)

const trigramWeight = 0.5

// HashModel is an offline embedder: folded word tokens and character trigrams are
// hashed into a fixed number of buckets and the vector is L2 normalized.
// It is stateless and safe for concurrent use.
type HashModel struct {
	dim int
}

func NewHashModel(dim int) *HashModel {
	if dim <= 0 {
		dim = constants.DefaultHashEmbeddingDim
	}
	return &HashModel{dim: dim}
}

func (m *HashModel) Dimension() int { return m.dim }

func (m *HashModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *HashModel) vector(text string) []float32 {
	v := make([]float32, m.dim)
	folded := preprocess.Fold(text)
	for _, tok := range preprocess.Tokenize(folded) {
		v[m.bucket("w:"+tok)] += 1
		padded := []rune(" " + tok + " ")
		for i := 0; i+3 <= len(padded); i++ {
			v[m.bucket("c:"+string(padded[i:i+3]))] += trigramWeight
		}
	}
	l2Normalize(v)
	return v
}

func (m *HashModel) bucket(feature string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(feature))
	return int(h.Sum32() % uint32(m.dim))
}
