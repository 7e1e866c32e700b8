package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/embed"
	"github.com/joseph-ayodele/pdf-fields/internal/llm"
)

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed implements embed.Model with the /embeddings endpoint. Inputs are sent in batches;
// a batch that fails is retried one input at a time.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	out := make([][]float32, 0, len(texts))
	for lo := 0; lo < len(texts); lo += constants.EmbeddingBatchSize {
		hi := min(lo+constants.EmbeddingBatchSize, len(texts))
		batch := texts[lo:hi]

		vectors, err := c.embedBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("llm.embed.batch_failed", "size", len(batch), "error", err)
			vectors = make([][]float32, len(batch))
			for i, t := range batch {
				v, ierr := c.embedBatch(ctx, []string{t})
				if ierr != nil {
					return nil, fmt.Errorf("embed input %d: %w", lo+i, ierr)
				}
				vectors[i] = v[0]
			}
		}
		out = append(out, vectors...)
	}
	c.logger.Debug("llm.embed.ok", "inputs", len(texts), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	raw, err := c.post(ctx, "/embeddings", map[string]any{
		"model": c.cfg.EmbeddingModel,
		"input": batch,
	})
	if err != nil {
		return nil, err
	}
	var resp embeddingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode embeddings: %w", llm.ErrMalformedResponse, err)
	}
	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("%w: %d embeddings for %d inputs", llm.ErrMalformedResponse, len(resp.Data), len(batch))
	}
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	vectors := make([][]float32, len(batch))
	for i, d := range resp.Data {
		if c.cfg.EmbeddingDim > 0 && len(d.Embedding) != c.cfg.EmbeddingDim {
			return nil, fmt.Errorf("%w: embedding size %d, want %d", llm.ErrMalformedResponse, len(d.Embedding), c.cfg.EmbeddingDim)
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// Dimension is the configured embedding size; 1536 for text-embedding-3-small when unset.
func (c *Client) Dimension() int {
	if c.cfg.EmbeddingDim > 0 {
		return c.cfg.EmbeddingDim
	}
	return 1536
}

var _ embed.Model = (*Client)(nil)
