package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Batch processes documents in parallel, at most MaxConcurrentDocs at a time. A failed
// document yields a Report with Err set; the others still run. Reports keep input order.
func (p *Processor) Batch(ctx context.Context, reqs []Request) []Report {
	start := time.Now()
	out := make([]Report, len(reqs))

	var eg errgroup.Group
	eg.SetLimit(p.opts.MaxConcurrentDocs)
	for i, req := range reqs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i] = Report{Path: req.Path, Label: req.Label, Err: err}
				return nil
			}
			// errors are carried in the report
			out[i], _ = p.Process(ctx, req)
			return nil
		})
	}
	_ = eg.Wait()

	failed, llmFields := 0, 0
	for _, r := range out {
		if r.Err != nil {
			failed++
		}
		llmFields += r.LLMFields
	}
	p.logger.Info("pipeline.batch.done",
		"documents", len(reqs),
		"failed", failed,
		"llm_fields", llmFields,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}
