// Package preprocess turns raw text blocks into normalized, grouped and deduplicated
// blocks in reading order.
package preprocess

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/joseph-ayodele/pdf-fields/internal/entity"
)

// Config holds the grouping tolerances, in PDF points.
type Config struct {
	LineTolerance float64 // max |dy| for two blocks to share a line
	MaxGap        float64 // max horizontal gap between blocks merged on one line
	StackGap      float64 // max vertical gap between stacked blocks merged into one group
	SizeTolerance float64 // max font size difference inside a group
}

func DefaultConfig() Config {
	return Config{
		LineTolerance: 3,
		MaxGap:        40,
		StackGap:      2,
		SizeTolerance: 2,
	}
}

type Preprocessor struct {
	cfg Config
}

// New fills unset tolerances from DefaultConfig; a zero Config means all defaults.
func New(cfg Config) *Preprocessor {
	d := DefaultConfig()
	if cfg == (Config{}) {
		cfg = d
	}
	if cfg.LineTolerance <= 0 {
		cfg.LineTolerance = d.LineTolerance
	}
	if cfg.MaxGap <= 0 {
		cfg.MaxGap = d.MaxGap
	}
	if cfg.StackGap < 0 {
		cfg.StackGap = d.StackGap
	}
	if cfg.SizeTolerance <= 0 {
		cfg.SizeTolerance = d.SizeTolerance
	}
	return &Preprocessor{cfg: cfg}
}

type group struct {
	blocks []entity.TextBlock
	bbox   entity.BBox
}

func (g *group) last() entity.TextBlock { return g.blocks[len(g.blocks)-1] }

// Process orders, groups, normalizes and deduplicates blocks. The input is not modified.
func (p *Preprocessor) Process(blocks []entity.TextBlock) []entity.NormalizedBlock {
	if len(blocks) == 0 {
		return nil
	}
	ordered := p.readingOrder(blocks)

	var groups []*group
	var cur *group
	for _, b := range ordered {
		if cur != nil && p.joins(cur, b) {
			cur.blocks = append(cur.blocks, b)
			cur.bbox = cur.bbox.Union(b.BBox)
			continue
		}
		cur = &group{blocks: []entity.TextBlock{b}, bbox: b.BBox}
		groups = append(groups, cur)
	}

	out := make([]entity.NormalizedBlock, 0, len(groups))
	byHash := make(map[string]int, len(groups))
	for _, g := range groups {
		nb := buildBlock(g)
		if nb.Normalized == "" {
			continue
		}
		if i, dup := byHash[nb.Hash]; dup {
			out[i].BlockIDs = mergeInts(out[i].BlockIDs, nb.BlockIDs)
			out[i].Pages = mergeInts(out[i].Pages, nb.Pages)
			continue
		}
		nb.ID = len(out)
		byHash[nb.Hash] = nb.ID
		out = append(out, nb)
	}
	return out
}

// readingOrder sorts by page, then line (top to bottom), then x within a line.
func (p *Preprocessor) readingOrder(blocks []entity.TextBlock) []entity.TextBlock {
	sorted := slices.Clone(blocks)
	slices.SortStableFunc(sorted, func(a, b entity.TextBlock) int {
		if c := cmp.Compare(a.Page, b.Page); c != 0 {
			return c
		}
		return cmp.Compare(a.BBox.Y0, b.BBox.Y0)
	})

	out := make([]entity.TextBlock, 0, len(sorted))
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) &&
			sorted[end].Page == sorted[start].Page &&
			sorted[end].BBox.Y0-sorted[start].BBox.Y0 <= p.cfg.LineTolerance {
			end++
		}
		line := sorted[start:end]
		slices.SortStableFunc(line, func(a, b entity.TextBlock) int {
			return cmp.Compare(a.BBox.X0, b.BBox.X0)
		})
		out = append(out, line...)
		start = end
	}
	return out
}

func (p *Preprocessor) joins(g *group, b entity.TextBlock) bool {
	last := g.last()
	if b.Page != last.Page {
		return false
	}
	if last.Size > 0 && b.Size > 0 && math.Abs(last.Size-b.Size) > p.cfg.SizeTolerance {
		return false
	}
	tol := p.cfg.LineTolerance

	if math.Abs(b.BBox.Y0-last.BBox.Y0) <= tol {
		gap := b.BBox.X0 - last.BBox.X1
		return gap >= -tol && gap <= p.cfg.MaxGap
	}

	vgap := b.BBox.Y0 - g.bbox.Y1
	overlap := math.Min(b.BBox.X1, g.bbox.X1) - math.Max(b.BBox.X0, g.bbox.X0)
	return vgap >= -tol && vgap <= p.cfg.StackGap && overlap > 0
}

func buildBlock(g *group) entity.NormalizedBlock {
	texts := make([]string, 0, len(g.blocks))
	ids := make([]int, 0, len(g.blocks))
	for _, b := range g.blocks {
		texts = append(texts, b.Text)
		ids = append(ids, b.ID)
	}
	first := g.blocks[0]
	text := CollapseSpace(strings.Join(texts, " "))
	normalized := NormalizeText(text)
	slices.Sort(ids)
	return entity.NormalizedBlock{
		Text:       text,
		Normalized: normalized,
		Tokens:     Tokenize(normalized),
		Hash:       Hash(normalized),
		BlockIDs:   ids,
		Pages:      []int{first.Page},
		Page:       first.Page,
		BBox:       g.bbox,
		Font:       first.Font,
		Size:       first.Size,
	}
}

func mergeInts(a, b []int) []int {
	out := append(slices.Clone(a), b...)
	slices.Sort(out)
	return slices.Compact(out)
}
