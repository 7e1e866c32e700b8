package pipeline

import (
	"fmt"
	"time"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/candidate"
	"github.com/joseph-ayodele/pdf-fields/internal/common"
	"github.com/joseph-ayodele/pdf-fields/internal/decision"
	"github.com/joseph-ayodele/pdf-fields/internal/preprocess"
	"github.com/joseph-ayodele/pdf-fields/internal/score"
)

// Options is the full tuning of a Processor. It is copied at construction and never
// mutated afterwards.
type Options struct {
	Thresholds        decision.Thresholds
	Weights           score.Weights
	ValidationPenalty float64
	TopK              int
	FieldWorkers      int
	MaxConcurrentDocs int
	LLMConcurrency    int
	FieldTimeout      time.Duration
	Preprocess        preprocess.Config
}

func DefaultOptions() Options {
	sc := score.DefaultConfig()
	return Options{
		Thresholds:        decision.DefaultThresholds(),
		Weights:           sc.Weights,
		ValidationPenalty: sc.ValidationPenalty,
		TopK:              constants.DefaultTopK,
		FieldWorkers:      constants.DefaultFieldWorkers,
		MaxConcurrentDocs: constants.DefaultMaxConcurrentDocs,
		LLMConcurrency:    constants.DefaultLLMConcurrency,
		FieldTimeout:      constants.DefaultFieldTimeout,
		Preprocess:        preprocess.DefaultConfig(),
	}
}

// OptionsFromConfig maps the environment configuration onto pipeline options.
func OptionsFromConfig(cfg *common.Config) Options {
	o := DefaultOptions()
	p := cfg.Pipeline
	o.Thresholds = decision.Thresholds{High: p.HighThreshold, Low: p.LowThreshold}
	o.Weights = score.Weights{Regex: p.RegexWeight, Semantic: p.SemanticWeight, Positional: p.PositionalWeight}
	o.ValidationPenalty = p.ValidationPenalty
	o.TopK = p.TopK
	o.FieldWorkers = p.FieldWorkers
	o.MaxConcurrentDocs = p.MaxConcurrentDocs
	o.LLMConcurrency = cfg.LLM.Concurrency
	o.FieldTimeout = cfg.LLM.FieldTimeout
	return o
}

func (o Options) candidateConfig() candidate.Config {
	c := candidate.DefaultConfig()
	c.TopK = o.TopK
	c.Workers = o.FieldWorkers
	return c
}

func (o Options) scoreConfig() score.Config {
	return score.Config{Weights: o.Weights, ValidationPenalty: o.ValidationPenalty}
}

func (o Options) decisionConfig() decision.Config {
	return decision.Config{
		Thresholds:     o.Thresholds,
		LLMConcurrency: o.LLMConcurrency,
		FieldTimeout:   o.FieldTimeout,
	}
}

// fingerprint covers every option that changes the outcome of a document; concurrency
// settings are left out.
func (o Options) fingerprint() string {
	return fmt.Sprintf("th=%g/%g w=%g/%g/%g pen=%g k=%d pre=%g/%g/%g/%g",
		o.Thresholds.High, o.Thresholds.Low,
		o.Weights.Regex, o.Weights.Semantic, o.Weights.Positional,
		o.ValidationPenalty, o.TopK,
		o.Preprocess.LineTolerance, o.Preprocess.MaxGap, o.Preprocess.StackGap, o.Preprocess.SizeTolerance,
	)
}
