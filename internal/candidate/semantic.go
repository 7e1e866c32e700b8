package candidate

import (
	"cmp"
	"context"
	"slices"

	"github.com/joseph-ayodele/pdf-fields/internal/embed"
	"github.com/joseph-ayodele/pdf-fields/internal/entity"
)

// documentVectors holds one embedding batch: every block once, every field query once,
// and the document label when present.
type documentVectors struct {
	blocks  [][]float32
	queries [][]float32
	label   []float32
}

type fieldVectors struct {
	blocks [][]float32
	query  []float32
	label  []float32
}

func (d *documentVectors) forField(i int) *fieldVectors {
	if d == nil {
		return nil
	}
	return &fieldVectors{blocks: d.blocks, query: d.queries[i], label: d.label}
}

func (g *Generator) embedAll(ctx context.Context, in Input) *documentVectors {
	if g.model == nil || len(in.Blocks) == 0 || len(in.Schema.Fields) == 0 {
		return nil
	}
	texts := make([]string, 0, len(in.Blocks)+len(in.Schema.Fields)+1)
	for _, b := range in.Blocks {
		texts = append(texts, b.Normalized)
	}
	for _, f := range in.Schema.Fields {
		texts = append(texts, fieldQuery(f))
	}
	if in.Label != "" {
		texts = append(texts, in.Label)
	}

	vs, err := g.model.Embed(ctx, texts)
	if err != nil || len(vs) != len(texts) {
		g.logger.Warn("candidate.embed.failed", "texts", len(texts), "vectors", len(vs), "error", err)
		return nil
	}
	nb, nf := len(in.Blocks), len(in.Schema.Fields)
	d := &documentVectors{blocks: vs[:nb], queries: vs[nb : nb+nf]}
	if in.Label != "" {
		d.label = vs[nb+nf]
	}
	return d
}

// similarities mixes query and label similarity per block; all zero without vectors.
func (g *Generator) similarities(blocks []entity.NormalizedBlock, fv *fieldVectors) []float64 {
	sims := make([]float64, len(blocks))
	if fv == nil {
		return sims
	}
	w := g.cfg.LabelWeight
	for i := range blocks {
		s := embed.Cosine(fv.query, fv.blocks[i])
		if fv.label != nil {
			s = (1-w)*s + w*embed.Cosine(fv.label, fv.blocks[i])
		}
		sims[i] = s
	}
	return sims
}

// topK returns the indices of the k most similar blocks with positive similarity,
// ties broken by reading order.
func topK(sims []float64, k int) []int {
	idx := make([]int, 0, len(sims))
	for i, s := range sims {
		if s > 0 {
			idx = append(idx, i)
		}
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(sims[b], sims[a])
	})
	if len(idx) > k {
		idx = idx[:k]
	}
	return idx
}
