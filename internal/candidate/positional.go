package candidate

import (
	"math"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"

	"github.com/joseph-ayodele/pdf-fields/internal/entity"
	"github.com/joseph-ayodele/pdf-fields/internal/preprocess"
	"github.com/joseph-ayodele/pdf-fields/internal/utils"
)

// a label must start within the first few tokens of its group
const maxLabelOffset = 2

var labelStopwords = map[string]struct{}{
	"de": {}, "da": {}, "do": {}, "das": {}, "dos": {}, "e": {}, "the": {}, "of": {},
}

// label is a group whose text starts with the field name, as in "CPF: 123" or
// "Data de Nascimento".
type label struct {
	idx       int
	remainder string // text after the label, "" when the value sits in another group
}

type neighbour struct {
	idx  int
	dist float64 // normalized to [0,1]
}

type span struct {
	start, end int
	folded     string
}

func tokenSpans(s string) []span {
	var out []span
	start := -1
	for i, r := range s {
		word := unicode.IsLetter(r) || unicode.IsDigit(r)
		switch {
		case word && start < 0:
			start = i
		case !word && start >= 0:
			out = append(out, span{start: start, end: i, folded: preprocess.Fold(s[start:i])})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, span{start: start, end: len(s), folded: preprocess.Fold(s[start:])})
	}
	return out
}

func nameTokens(name string) []string {
	var out []string
	for _, t := range preprocess.Tokenize(preprocess.Fold(utils.Humanize(name))) {
		if _, stop := labelStopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

func (g *Generator) tokenMatches(want, got string) bool {
	if len(want) <= 3 || len(got) <= 3 {
		return want == got
	}
	return levenshtein.Similarity(want, got, nil) >= g.cfg.TokenSimilarity
}

func (g *Generator) findLabels(f entity.FieldSpec, blocks []entity.NormalizedBlock) []label {
	want := nameTokens(f.Name)
	if len(want) == 0 {
		return nil
	}
	var out []label
	for i, b := range blocks {
		spans := tokenSpans(b.Text)
		first, last, matched := -1, -1, 0
		for _, w := range want {
			for j, sp := range spans {
				if g.tokenMatches(w, sp.folded) {
					matched++
					if first < 0 || j < first {
						first = j
					}
					last = max(last, j)
					break
				}
			}
		}
		if matched == 0 || float64(matched)/float64(len(want)) < g.cfg.LabelMatchRatio {
			continue
		}
		if first > maxLabelOffset || last-first > len(want)+maxLabelOffset {
			continue
		}
		rest := strings.TrimLeft(b.Text[spans[last].end:], " \t:;-–—#=.")
		out = append(out, label{idx: i, remainder: preprocess.CollapseSpace(rest)})
	}
	return out
}

// neighbours returns the nearest group to the right on the same line and the nearest
// group below, both within MaxLabelDistance. Other labels of the same field are skipped.
func (g *Generator) neighbours(l label, labels []label, blocks []entity.NormalizedBlock) []neighbour {
	isLabel := make(map[int]bool, len(labels))
	for _, o := range labels {
		isLabel[o.idx] = true
	}
	lb := blocks[l.idx]
	lineTol := math.Max(3, lb.BBox.Height()/2)

	right, below := neighbour{idx: -1, dist: math.Inf(1)}, neighbour{idx: -1, dist: math.Inf(1)}
	for j, b := range blocks {
		if j == l.idx || isLabel[j] || b.Page != lb.Page {
			continue
		}
		if math.Abs(b.BBox.Y0-lb.BBox.Y0) <= lineTol && b.BBox.X0 >= lb.BBox.X1-2 {
			if d := math.Max(0, b.BBox.X0-lb.BBox.X1); d < right.dist {
				right = neighbour{idx: j, dist: d}
			}
			continue
		}
		overlap := math.Min(b.BBox.X1, lb.BBox.X1) - math.Max(b.BBox.X0, lb.BBox.X0)
		if b.BBox.Y0 >= lb.BBox.Y1-2 && (overlap > 0 || math.Abs(b.BBox.X0-lb.BBox.X0) <= 20) {
			if d := math.Max(0, b.BBox.Y0-lb.BBox.Y1); d < below.dist {
				below = neighbour{idx: j, dist: d}
			}
		}
	}

	var out []neighbour
	for _, n := range []neighbour{right, below} {
		if n.idx >= 0 && n.dist <= g.cfg.MaxLabelDistance {
			out = append(out, neighbour{idx: n.idx, dist: n.dist / g.cfg.MaxLabelDistance})
		}
	}
	return out
}

// labelDistances maps every block to its normalized distance from the nearest label of
// the field: 0 for a label that carries its own value, 1 when no label is near.
func (g *Generator) labelDistances(labels []label, blocks []entity.NormalizedBlock) []float64 {
	dist := make([]float64, len(blocks))
	for i := range dist {
		dist[i] = 1
	}
	for _, l := range labels {
		if l.remainder != "" {
			dist[l.idx] = 0
			continue
		}
		for _, n := range g.neighbours(l, labels, blocks) {
			dist[n.idx] = math.Min(dist[n.idx], n.dist)
		}
	}
	return dist
}
