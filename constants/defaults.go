package constants

import "time"

// Decision thresholds.
const (
	DefaultHighThreshold = 0.85
	DefaultLowThreshold  = 0.60
)

// Score weights; they must sum to 1.0. A full pattern match next to its label reaches
// DefaultHighThreshold without help from the embedding model.
const (
	DefaultRegexWeight      = 0.60
	DefaultSemanticWeight   = 0.10
	DefaultPositionalWeight = 0.30

	DefaultValidationPenalty = 0.4

	// share of the regex weight earned by a typed value embedded in longer text,
	// as in "nascido em 1 de janeiro de 1990"
	DefaultEmbeddedMatchCredit = 0.6
)

// Candidate generation.
const (
	DefaultTopK             = 5
	DefaultMaxLabelDistance = 150.0 // points
	DefaultLabelMatchRatio  = 0.6
	DefaultTokenSimilarity  = 0.8
	LabelContextWeight      = 0.3 // share of the document label in the semantic query
)

// LLM fallback.
const (
	DefaultLLMModel       = "gpt-5-mini"
	DefaultLLMBaseURL     = "https://api.openai.com/v1"
	DefaultLLMTimeout     = 30 * time.Second
	DefaultFieldTimeout   = 30 * time.Second
	DefaultLLMConcurrency = 4
	DefaultLLMMaxRetries  = 2
	MaxExcerptChars       = 3000
	MaxSnippets           = 3
)

// Embeddings.
const (
	DefaultEmbeddingModel   = "text-embedding-3-small"
	DefaultHashEmbeddingDim = 256
	EmbeddingBatchSize      = 100

	DefaultEmbeddingCacheSize = 20000 // vectors kept by the in-process cache
)

// Pipeline fan-out.
const (
	DefaultMaxConcurrentDocs = 4
	DefaultFieldWorkers      = 8
)

// Background jobs.
const (
	DefaultJobRetention    = 15 * time.Minute
	DefaultMaxFinishedJobs = 1024
)
