// Package score turns candidates into ranked, explainable confidence scores.
package score

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/entity"
	"github.com/joseph-ayodele/pdf-fields/internal/patterns"
)

const weightEpsilon = 1e-6

type Weights struct {
	Regex      float64
	Semantic   float64
	Positional float64
}

type Config struct {
	Weights           Weights
	ValidationPenalty float64 // multiplicative, in [0,1]
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Regex:      constants.DefaultRegexWeight,
			Semantic:   constants.DefaultSemanticWeight,
			Positional: constants.DefaultPositionalWeight,
		},
		ValidationPenalty: constants.DefaultValidationPenalty,
	}
}

type Scorer struct {
	cfg Config
}

// New rejects negative weights, weights that do not sum to 1 and penalties outside [0,1].
func New(cfg Config) (*Scorer, error) {
	w := cfg.Weights
	if w.Regex < 0 || w.Semantic < 0 || w.Positional < 0 {
		return nil, fmt.Errorf("score weights must be non-negative: %+v", w)
	}
	if sum := w.Regex + w.Semantic + w.Positional; math.Abs(sum-1) > weightEpsilon {
		return nil, fmt.Errorf("score weights must sum to 1, got %.6f", sum)
	}
	if cfg.ValidationPenalty < 0 || cfg.ValidationPenalty > 1 {
		return nil, fmt.Errorf("validation penalty must be in [0,1], got %v", cfg.ValidationPenalty)
	}
	return &Scorer{cfg: cfg}, nil
}

// Score computes the signals and the combined score of one candidate.
func (s *Scorer) Score(c entity.Candidate) entity.ScoredCandidate {
	ft := constants.DetectFieldType(c.Field.Name, c.Field.Description)
	raw := strings.TrimSpace(c.RawValue)

	sc := entity.ScoredCandidate{
		Candidate:        c,
		RegexSignal:      c.Origin == entity.OriginRegex || patterns.FullMatch(ft, raw),
		SemanticSignal:   clamp01(c.Similarity),
		PositionalSignal: clamp01(1 - c.LabelDistance),
		ValidationPassed: Validate(ft, raw),
	}
	sc.EmbeddedMatch = !sc.RegexSignal && embedsTypedValue(ft, raw)

	w := s.cfg.Weights
	total := w.Semantic*sc.SemanticSignal + w.Positional*sc.PositionalSignal
	switch {
	case sc.RegexSignal:
		total += w.Regex
	case sc.EmbeddedMatch:
		total += w.Regex * constants.DefaultEmbeddedMatchCredit
	}
	if !sc.ValidationPassed {
		total *= 1 - s.cfg.ValidationPenalty
	}
	sc.Score = clamp01(total)
	return sc
}

// Rank scores candidates and sorts them best first. The order is total and deterministic.
func (s *Scorer) Rank(cands []entity.Candidate) []entity.ScoredCandidate {
	out := make([]entity.ScoredCandidate, len(cands))
	for i, c := range cands {
		out[i] = s.Score(c)
	}
	slices.SortFunc(out, Compare)
	return out
}

// RankAll ranks every field; every input key is present in the output.
func (s *Scorer) RankAll(cands map[string][]entity.Candidate) map[string][]entity.ScoredCandidate {
	out := make(map[string][]entity.ScoredCandidate, len(cands))
	for name, cs := range cands {
		out[name] = s.Rank(cs)
	}
	return out
}

// Compare orders by score descending, then regex > semantic > positional, then the
// shorter raw value, then the lower group id.
func Compare(a, b entity.ScoredCandidate) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Origin, b.Origin); c != 0 {
		return c
	}
	if c := cmp.Compare(utf8.RuneCountInString(a.RawValue), utf8.RuneCountInString(b.RawValue)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.GroupID, b.GroupID); c != 0 {
		return c
	}
	return strings.Compare(a.RawValue, b.RawValue)
}

// embedsTypedValue reports whether raw carries a value of ft inside other text. Long
// written dates count for date fields even though no date pattern covers them.
func embedsTypedValue(ft constants.FieldType, raw string) bool {
	if !patterns.HasPatterns(ft) {
		return false
	}
	if len(patterns.Find(ft, raw)) > 0 {
		return true
	}
	return ft == constants.FieldDate && Validate(ft, raw)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
