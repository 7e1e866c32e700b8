// Package pipeline runs one document, or a batch of them, through text extraction,
// preprocessing, candidate generation, scoring and the decision engine.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/candidate"
	"github.com/joseph-ayodele/pdf-fields/internal/common"
	"github.com/joseph-ayodele/pdf-fields/internal/decision"
	"github.com/joseph-ayodele/pdf-fields/internal/embed"
	"github.com/joseph-ayodele/pdf-fields/internal/entity"
	"github.com/joseph-ayodele/pdf-fields/internal/llm"
	"github.com/joseph-ayodele/pdf-fields/internal/preprocess"
	"github.com/joseph-ayodele/pdf-fields/internal/repository"
	"github.com/joseph-ayodele/pdf-fields/internal/score"
	"github.com/joseph-ayodele/pdf-fields/internal/textextract"
)

var (
	// ErrDocumentRead wraps any failure to read the document or its text layer.
	ErrDocumentRead = errors.New("document read failed")
	// ErrSchemaInvalid is returned for empty schemas and empty or duplicate field names.
	ErrSchemaInvalid = errors.New("invalid extraction schema")
)

// Request is one document to process.
type Request struct {
	Path   string
	Label  string
	Schema entity.Schema
}

// ResultCache stores finished outcomes keyed by document content, schema and options.
type ResultCache interface {
	Get(ctx context.Context, key repository.ResultKey) ([]byte, bool, error)
	Put(ctx context.Context, key repository.ResultKey, payload []byte) error
}

// Deps are the collaborators of a Processor. Model, Resolver and Cache are optional.
type Deps struct {
	Extractor textextract.Extractor
	Model     embed.Model
	Resolver  llm.FieldResolver
	Cache     ResultCache
	Logger    *slog.Logger
}

type Processor struct {
	opts      Options
	optsFP    string
	extractor textextract.Extractor
	pre       *preprocess.Preprocessor
	gen       *candidate.Generator
	scorer    *score.Scorer
	engine    *decision.Engine
	cache     ResultCache
	logger    *slog.Logger
}

func New(opts Options, deps Deps) (*Processor, error) {
	if deps.Extractor == nil {
		return nil, errors.New("pipeline: text extractor is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxConcurrentDocs <= 0 {
		opts.MaxConcurrentDocs = constants.DefaultMaxConcurrentDocs
	}
	scorer, err := score.New(opts.scoreConfig())
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	engine, err := decision.New(opts.decisionConfig(), deps.Resolver, logger)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	fp := opts.fingerprint()
	if deps.Model != nil {
		fp += fmt.Sprintf(" emb=%T/%d", deps.Model, deps.Model.Dimension())
	}
	return &Processor{
		opts:      opts,
		optsFP:    fp,
		extractor: deps.Extractor,
		pre:       preprocess.New(opts.Preprocess),
		gen:       candidate.New(opts.candidateConfig(), deps.Model, logger),
		scorer:    scorer,
		engine:    engine,
		cache:     deps.Cache,
		logger:    logger,
	}, nil
}

func (p *Processor) Options() Options { return p.opts }

// Process runs one document. Only unreadable documents, invalid schemas and context
// cancellation are errors; a field that cannot be resolved ends as a null value.
func (p *Processor) Process(ctx context.Context, req Request) (Report, error) {
	start := time.Now()
	rep := Report{Path: req.Path, Label: req.Label}
	logger := common.LoggerFromContext(common.WithDocument(ctx, req.Path), p.logger)

	if err := req.Schema.Validate(); err != nil {
		return p.fail(rep, start, fmt.Errorf("%w: %w", ErrSchemaInvalid, err))
	}

	// the content hash is only needed to key the result cache; without one the
	// extractor is the only component that touches the document
	var key repository.ResultKey
	if p.cache != nil {
		hash, err := contentHash(req.Path)
		if err != nil {
			return p.fail(rep, start, fmt.Errorf("%w: %w", ErrDocumentRead, err))
		}
		rep.ContentHash = hash
		key = repository.ResultKey{ContentHash: hash, Schema: req.Schema.Fingerprint() + req.Label, Options: p.optsFP}

		if out, ok := p.cached(ctx, key, logger); ok {
			rep.Result, rep.Decisions, rep.LLMFields = out.Result, out.Decisions, out.LLMFields
			rep.Cached = true
			rep.Elapsed = time.Since(start)
			logger.Info("pipeline.document.cached", "elapsed_ms", rep.Elapsed.Milliseconds())
			return rep, nil
		}
	}

	raw, err := p.extractor.Extract(ctx, req.Path)
	if err != nil {
		if ctx.Err() != nil {
			return p.fail(rep, start, ctx.Err())
		}
		return p.fail(rep, start, fmt.Errorf("%w: %w", ErrDocumentRead, err))
	}
	blocks := p.pre.Process(raw)

	cands, err := p.gen.Generate(ctx, candidate.Input{Blocks: blocks, Schema: req.Schema, Label: req.Label})
	if err != nil {
		return p.fail(rep, start, err)
	}
	ranked := p.scorer.RankAll(cands)

	rep.Decisions = p.engine.Decide(ctx, decision.Input{
		Schema:  req.Schema,
		Ranked:  ranked,
		Label:   req.Label,
		Excerpt: excerpt(blocks),
	})
	rep.Result = entity.NewExtractionResult(req.Schema, rep.Decisions)
	for _, d := range rep.Decisions {
		if d.Path == entity.PathLLMResolved || d.Path == entity.PathUnresolved {
			rep.LLMFields++
		}
	}
	rep.Elapsed = time.Since(start)

	p.store(ctx, key, rep, logger)
	logger.Info("pipeline.document.ok",
		"label", req.Label,
		"raw_blocks", len(raw),
		"blocks", len(blocks),
		"fields", req.Schema.Len(),
		"llm_fields", rep.LLMFields,
		"elapsed_ms", rep.Elapsed.Milliseconds(),
	)
	return rep, nil
}

func (p *Processor) fail(rep Report, start time.Time, err error) (Report, error) {
	rep.Err = err
	rep.Elapsed = time.Since(start)
	p.logger.Error("pipeline.document.failed", "path", rep.Path, "error", err, "elapsed_ms", rep.Elapsed.Milliseconds())
	return rep, err
}

func (p *Processor) cached(ctx context.Context, key repository.ResultKey, logger *slog.Logger) (cachedOutcome, bool) {
	var out cachedOutcome
	if p.cache == nil {
		return out, false
	}
	payload, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("pipeline.cache.get_failed", "error", err)
		return out, false
	}
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		logger.Warn("pipeline.cache.decode_failed", "error", err)
		return out, false
	}
	return out, true
}

func (p *Processor) store(ctx context.Context, key repository.ResultKey, rep Report, logger *slog.Logger) {
	if p.cache == nil {
		return
	}
	payload, err := json.Marshal(cachedOutcome{Result: rep.Result, Decisions: rep.Decisions, LLMFields: rep.LLMFields})
	if err != nil {
		logger.Warn("pipeline.cache.encode_failed", "error", err)
		return
	}
	if err := p.cache.Put(ctx, key, payload); err != nil {
		logger.Warn("pipeline.cache.put_failed", "error", err)
	}
}

func contentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// excerpt is the document text in reading order, capped for the LLM prompt.
func excerpt(blocks []entity.NormalizedBlock) string {
	var b strings.Builder
	for _, nb := range blocks {
		if b.Len() >= constants.MaxExcerptChars*4 {
			break
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(nb.Text)
	}
	return llm.Excerpt(b.String(), constants.MaxExcerptChars)
}
