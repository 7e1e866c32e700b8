package embed

import (
	"context"
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/joseph-ayodele/pdf-fields/constants"
)

// Cache memoizes vectors by the sha256 of the input text and keeps at most size of
// them, evicting the least recently used. Safe for concurrent use; the wrapped model
// still sees concurrent calls for distinct misses.
type Cache struct {
	model Model
	store *lru.Cache[[32]byte, []float32]
}

// NewCache wraps model. A size <= 0 uses constants.DefaultEmbeddingCacheSize.
func NewCache(model Model, size int) *Cache {
	if size <= 0 {
		size = constants.DefaultEmbeddingCacheSize
	}
	store, _ := lru.New[[32]byte, []float32](size) // errors only for size <= 0
	return &Cache{model: model, store: store}
}

func (c *Cache) Dimension() int { return c.model.Dimension() }

// Len reports the number of cached vectors.
func (c *Cache) Len() int { return c.store.Len() }

func (c *Cache) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([][32]byte, len(texts))

	var missIdx []int
	var missTexts []string
	missing := map[[32]byte]int{} // key -> index into missTexts

	for i, t := range texts {
		keys[i] = sha256.Sum256([]byte(t))
		if v, ok := c.store.Get(keys[i]); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		if _, dup := missing[keys[i]]; !dup {
			missing[keys[i]] = len(missTexts)
			missTexts = append(missTexts, t)
		}
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.model.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embedding model returned %d vectors for %d texts", len(vectors), len(missTexts))
	}

	for key, j := range missing {
		c.store.Add(key, vectors[j])
	}
	// read from the batch, not the cache: a small cache may already have evicted them
	for _, i := range missIdx {
		out[i] = vectors[missing[keys[i]]]
	}
	return out, nil
}
