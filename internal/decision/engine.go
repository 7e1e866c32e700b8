// Package decision applies the two-threshold policy to ranked candidates and escalates
// low-confidence fields to the LLM fallback.
package decision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/entity"
	"github.com/joseph-ayodele/pdf-fields/internal/llm"
)

// Thresholds gate the decision bands; 0 <= Low <= High <= 1.
type Thresholds struct {
	High float64
	Low  float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{High: constants.DefaultHighThreshold, Low: constants.DefaultLowThreshold}
}

func (t Thresholds) Validate() error {
	if t.Low < 0 || t.High > 1 || t.Low > t.High {
		return fmt.Errorf("thresholds must satisfy 0 <= low <= high <= 1, got low=%v high=%v", t.Low, t.High)
	}
	return nil
}

// Outcome is the band a top score falls into.
type Outcome int

const (
	OutcomeAccept Outcome = iota
	OutcomeNormalize
	OutcomeEscalate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccept:
		return "accept"
	case OutcomeNormalize:
		return "normalize"
	default:
		return "escalate"
	}
}

// Route is the pure decision function: it depends only on the top score and the thresholds.
func Route(top entity.ScoredCandidate, hasTop bool, t Thresholds) Outcome {
	switch {
	case !hasTop || top.Score < t.Low:
		return OutcomeEscalate
	case top.Score >= t.High:
		return OutcomeAccept
	default:
		return OutcomeNormalize
	}
}

type Config struct {
	Thresholds     Thresholds
	LLMConcurrency int
	FieldTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Thresholds:     DefaultThresholds(),
		LLMConcurrency: constants.DefaultLLMConcurrency,
		FieldTimeout:   constants.DefaultFieldTimeout,
	}
}

// Input is one document's ranked candidates plus the context handed to the LLM.
type Input struct {
	Schema  entity.Schema
	Ranked  map[string][]entity.ScoredCandidate
	Label   string
	Excerpt string
}

type Engine struct {
	cfg      Config
	resolver llm.FieldResolver
	logger   *slog.Logger
}

// New validates the thresholds. A nil resolver leaves escalated fields unresolved.
func New(cfg Config, resolver llm.FieldResolver, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.LLMConcurrency <= 0 {
		cfg.LLMConcurrency = constants.DefaultLLMConcurrency
	}
	if cfg.FieldTimeout <= 0 {
		cfg.FieldTimeout = constants.DefaultFieldTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, resolver: resolver, logger: logger}, nil
}

// Decide returns exactly one Decision per schema field. It never fails: LLM errors and
// timeouts end as Unresolved.
func (e *Engine) Decide(ctx context.Context, in Input) map[string]entity.Decision {
	out := make(map[string]entity.Decision, in.Schema.Len())
	extracted := map[string]string{}
	var escalate []entity.FieldSpec

	for _, f := range in.Schema.Fields {
		ranked := in.Ranked[f.Name]
		var top entity.ScoredCandidate
		if len(ranked) > 0 {
			top = ranked[0]
		}
		switch Route(top, len(ranked) > 0, e.cfg.Thresholds) {
		case OutcomeAccept:
			v := top.RawValue
			out[f.Name] = e.local(f, top, v, entity.PathAccepted)
			extracted[f.Name] = v
		case OutcomeNormalize:
			v := Format(constants.DetectFieldType(f.Name, f.Description), top.RawValue)
			out[f.Name] = e.local(f, top, v, entity.PathNormalized)
			extracted[f.Name] = v
		default:
			escalate = append(escalate, f)
		}
	}

	if len(escalate) == 0 {
		return out
	}
	for name, d := range e.escalate(ctx, in, escalate, extracted) {
		out[name] = d
	}
	return out
}

func (e *Engine) local(f entity.FieldSpec, top entity.ScoredCandidate, value string, path entity.Path) entity.Decision {
	return entity.Decision{
		Field:  f,
		Value:  &value,
		Path:   path,
		Score:  top.Score,
		Origin: top.Origin.String(),
	}
}

func (e *Engine) escalate(ctx context.Context, in Input, fields []entity.FieldSpec, extracted map[string]string) map[string]entity.Decision {
	out := make(map[string]entity.Decision, len(fields))
	if e.resolver == nil {
		for _, f := range fields {
			out[f.Name] = unresolved(f, topScore(in.Ranked[f.Name]), "llm disabled")
		}
		return out
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(int64(e.cfg.LLMConcurrency))
	)
	for _, f := range fields {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := e.resolve(ctx, sem, in, f, extracted)
			mu.Lock()
			out[f.Name] = d
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

func (e *Engine) resolve(ctx context.Context, sem *semaphore.Weighted, in Input, f entity.FieldSpec, extracted map[string]string) entity.Decision {
	ranked := in.Ranked[f.Name]
	ts := topScore(ranked)
	if err := sem.Acquire(ctx, 1); err != nil {
		return unresolved(f, ts, err.Error())
	}
	defer sem.Release(1)
	if err := ctx.Err(); err != nil {
		return unresolved(f, ts, err.Error())
	}

	fctx, cancel := context.WithTimeout(ctx, e.cfg.FieldTimeout)
	defer cancel()

	start := time.Now()
	resp, err := e.resolver.ResolveField(fctx, llm.ResolveRequest{
		Field:     f,
		FieldType: constants.DetectFieldType(f.Name, f.Description),
		Label:     in.Label,
		Snippets:  snippets(ranked),
		Excerpt:   llm.Excerpt(in.Excerpt, constants.MaxExcerptChars),
		Extracted: extracted,
	})
	if err == nil && resp.Value == "" {
		err = llm.ErrNoAnswer
	}
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(fctx.Err(), context.DeadlineExceeded) {
			reason = "llm timeout"
		}
		e.logger.Warn("decision.llm.unresolved",
			"field", f.Name,
			"reason", reason,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return unresolved(f, ts, reason)
	}

	v := resp.Value
	e.logger.Debug("decision.llm.resolved", "field", f.Name, "elapsed_ms", time.Since(start).Milliseconds())
	return entity.Decision{
		Field:  f,
		Value:  &v,
		Path:   entity.PathLLMResolved,
		Score:  ts,
		Origin: "llm",
	}
}

func unresolved(f entity.FieldSpec, score float64, reason string) entity.Decision {
	return entity.Decision{Field: f, Path: entity.PathUnresolved, Score: score, Reason: reason}
}

func topScore(ranked []entity.ScoredCandidate) float64 {
	if len(ranked) == 0 {
		return 0
	}
	return ranked[0].Score
}

func snippets(ranked []entity.ScoredCandidate) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, c := range ranked {
		if len(out) == constants.MaxSnippets {
			break
		}
		if _, dup := seen[c.RawValue]; dup {
			continue
		}
		seen[c.RawValue] = struct{}{}
		out = append(out, c.RawValue)
	}
	return out
}
