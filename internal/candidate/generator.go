// Package candidate proposes raw values for every schema field with three independent
// strategies: regex, semantic similarity and label proximity.
package candidate

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/embed"
	"github.com/joseph-ayodele/pdf-fields/internal/entity"
	"github.com/joseph-ayodele/pdf-fields/internal/patterns"
	"github.com/joseph-ayodele/pdf-fields/internal/preprocess"
	"github.com/joseph-ayodele/pdf-fields/internal/utils"
)

type Config struct {
	TopK             int     // semantic candidates per field
	MaxLabelDistance float64 // points; farther neighbours are not label values
	LabelMatchRatio  float64 // share of field-name tokens a label must contain
	TokenSimilarity  float64 // levenshtein similarity for a token to count as matched
	LabelWeight      float64 // share of the document label in the semantic similarity
	Workers          int     // fields processed concurrently
}

func DefaultConfig() Config {
	return Config{
		TopK:             constants.DefaultTopK,
		MaxLabelDistance: constants.DefaultMaxLabelDistance,
		LabelMatchRatio:  constants.DefaultLabelMatchRatio,
		TokenSimilarity:  constants.DefaultTokenSimilarity,
		LabelWeight:      constants.LabelContextWeight,
		Workers:          constants.DefaultFieldWorkers,
	}
}

// Input is one document's normalized blocks and the fields to look for.
type Input struct {
	Blocks []entity.NormalizedBlock
	Schema entity.Schema
	Label  string
}

type Generator struct {
	cfg    Config
	model  embed.Model
	logger *slog.Logger
}

// New builds a generator. A nil model disables the semantic strategy.
func New(cfg Config, model embed.Model, logger *slog.Logger) *Generator {
	d := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = d.TopK
	}
	if cfg.MaxLabelDistance <= 0 {
		cfg.MaxLabelDistance = d.MaxLabelDistance
	}
	if cfg.LabelMatchRatio <= 0 {
		cfg.LabelMatchRatio = d.LabelMatchRatio
	}
	if cfg.TokenSimilarity <= 0 {
		cfg.TokenSimilarity = d.TokenSimilarity
	}
	if cfg.LabelWeight < 0 || cfg.LabelWeight > 1 {
		cfg.LabelWeight = d.LabelWeight
	}
	if cfg.Workers <= 0 {
		cfg.Workers = d.Workers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{cfg: cfg, model: model, logger: logger}
}

// Generate returns the candidates of every schema field; fields without candidates map to
// an empty slice. Only context cancellation is reported as an error: an embedding failure
// disables the semantic strategy for this document.
func (g *Generator) Generate(ctx context.Context, in Input) (map[string][]entity.Candidate, error) {
	start := time.Now()
	vecs := g.embedAll(ctx, in)

	index := make(map[int]int, len(in.Blocks))
	for i, b := range in.Blocks {
		index[b.ID] = i
	}

	results := make([][]entity.Candidate, len(in.Schema.Fields))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Workers)
	for i, f := range in.Schema.Fields {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i] = g.field(f, in.Blocks, index, vecs.forField(i))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]entity.Candidate, len(results))
	total := 0
	for i, f := range in.Schema.Fields {
		if results[i] == nil {
			results[i] = []entity.Candidate{}
		}
		out[f.Name] = results[i]
		total += len(results[i])
	}
	g.logger.Debug("candidate.generate.ok",
		"fields", len(out),
		"blocks", len(in.Blocks),
		"candidates", total,
		"semantic", vecs != nil,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (g *Generator) field(f entity.FieldSpec, blocks []entity.NormalizedBlock, index map[int]int, fv *fieldVectors) []entity.Candidate {
	ft := constants.DetectFieldType(f.Name, f.Description)
	sims := g.similarities(blocks, fv)
	labels := g.findLabels(f, blocks)
	dist := g.labelDistances(labels, blocks)

	var out []entity.Candidate
	seen := map[candidateKey]struct{}{}
	add := func(b entity.NormalizedBlock, value string, origin entity.Origin) {
		if value == "" {
			return
		}
		k := candidateKey{origin: origin, group: b.ID, value: value}
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, entity.Candidate{
			Field:          f,
			RawValue:       value,
			SourceBlockIDs: slices.Clone(b.BlockIDs),
			GroupID:        b.ID,
			Origin:         origin,
		})
	}

	for _, b := range blocks {
		for _, m := range patterns.Find(ft, b.Text) {
			add(b, m.Value, entity.OriginRegex)
		}
	}
	if fv != nil {
		for _, i := range topK(sims, g.cfg.TopK) {
			add(blocks[i], blocks[i].Text, entity.OriginSemantic)
		}
	}
	for _, l := range labels {
		if l.remainder != "" {
			add(blocks[l.idx], l.remainder, entity.OriginPositional)
			continue
		}
		for _, n := range g.neighbours(l, labels, blocks) {
			add(blocks[n.idx], blocks[n.idx].Text, entity.OriginPositional)
		}
	}

	for k := range out {
		i := index[out[k].GroupID]
		out[k].Similarity = sims[i]
		out[k].LabelDistance = dist[i]
	}
	return out
}

type candidateKey struct {
	origin entity.Origin
	group  int
	value  string
}

// fieldQuery is the text embedded for a field: "data nascimento: birth date".
func fieldQuery(f entity.FieldSpec) string {
	q := utils.Humanize(f.Name)
	if d := preprocess.CollapseSpace(f.Description); d != "" {
		q += ": " + d
	}
	return q
}
