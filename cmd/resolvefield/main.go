package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/common"
	"github.com/joseph-ayodele/pdf-fields/internal/entity"
	"github.com/joseph-ayodele/pdf-fields/internal/llm"
	"github.com/joseph-ayodele/pdf-fields/internal/llm/openai"
	"github.com/joseph-ayodele/pdf-fields/internal/preprocess"
	"github.com/joseph-ayodele/pdf-fields/internal/textextract"
)

// resolvefield sends one field of one PDF straight to the LLM fallback, repeatedly, to
// check answer stability and the error taxonomy against the live API.
func main() {
	var (
		field = flag.String("field", "", "field name (required)")
		desc  = flag.String("desc", "", "field description")
		label = flag.String("label", "", "document label")
		times = flag.Int("times", 3, "number of calls")
	)
	flag.Parse()

	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log)

	if flag.NArg() != 1 || *field == "" {
		logger.Error("usage: resolvefield -field <name> [-desc <description>] [-label <label>] [-times N] <file.pdf>")
		os.Exit(2)
	}
	if !cfg.LLMEnabled() {
		logger.Error("OPENAI_API_KEY env var is required")
		os.Exit(2)
	}
	path := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	extractor, err := textextract.New(textextract.Config{
		Backend:   cfg.Extractor.Backend,
		Pdftotext: cfg.Extractor.Pdftotext,
		Timeout:   cfg.Extractor.Timeout,
	}, logger)
	if err != nil {
		logger.Error("build extractor", "error", err)
		os.Exit(2)
	}
	raw, err := extractor.Extract(ctx, path)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err)
		os.Exit(1)
	}
	blocks := preprocess.New(preprocess.DefaultConfig()).Process(raw)
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}

	client := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
	}, logger)

	spec := entity.FieldSpec{Name: *field, Description: *desc}
	req := llm.ResolveRequest{
		Field:     spec,
		FieldType: constants.DetectFieldType(spec.Name, spec.Description),
		Label:     *label,
		Excerpt:   llm.Excerpt(strings.Join(texts, "\n"), constants.MaxExcerptChars),
	}

	failures := 0
	for i := 1; i <= *times; i++ {
		start := time.Now()
		resp, err := client.ResolveField(ctx, req)
		dur := time.Since(start)
		if err != nil {
			failures++
			logger.Error("resolve failed",
				"attempt", i,
				"kind", errorKind(err),
				"error", err,
				"duration_ms", dur.Milliseconds(),
			)
			continue
		}
		logger.Info("resolve ok",
			"attempt", i,
			"field", spec.Name,
			"value", resp.Value,
			"duration_ms", dur.Milliseconds(),
		)
	}
	if failures == *times {
		os.Exit(1)
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, llm.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, llm.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, llm.ErrNoAnswer):
		return "no_answer"
	case errors.Is(err, llm.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}
