package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/pdf-fields/internal/common"
	"github.com/joseph-ayodele/pdf-fields/internal/embed"
	"github.com/joseph-ayodele/pdf-fields/internal/llm/openai"
	"github.com/joseph-ayodele/pdf-fields/internal/repository"
	"github.com/joseph-ayodele/pdf-fields/internal/textextract"
)

// Setup is a Processor wired from configuration plus the resources it owns.
type Setup struct {
	Processor *Processor
	DB        *repository.DB // nil when no cache is configured
	cleanup   []func()
}

// Close releases the embedding queue and the cache connection.
func (s *Setup) Close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

// NewFromConfig builds the text extractor, embedding model, LLM resolver and optional
// result cache described by cfg. A missing OPENAI_API_KEY disables the LLM fallback.
func NewFromConfig(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*Setup, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Setup{}

	extractor, err := textextract.New(textextract.Config{
		Backend:   cfg.Extractor.Backend,
		Pdftotext: cfg.Extractor.Pdftotext,
		Timeout:   cfg.Extractor.Timeout,
	}, logger)
	if err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", err.Error(), common.ErrInvalidInput)
	}

	var client *openai.Client
	if cfg.LLMEnabled() {
		client = openai.NewClient(openai.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Temperature:    cfg.LLM.Temperature,
			Timeout:        cfg.LLM.Timeout,
			MaxRetries:     cfg.LLM.MaxRetries,
			EmbeddingModel: cfg.Embedding.Model,
		}, logger)
		logger.Info("pipeline.setup.llm", "model", cfg.LLM.Model)
	} else {
		logger.Warn("pipeline.setup.llm_disabled", "reason", "OPENAI_API_KEY not set; low-confidence fields stay unresolved")
	}

	var model embed.Model
	switch cfg.Embedding.Provider {
	case "openai":
		if client == nil {
			return nil, common.NewAppError("CONFIG_ERROR", "openai embeddings need OPENAI_API_KEY", common.ErrInvalidInput)
		}
		model = client
	default:
		model = embed.NewHashModel(cfg.Embedding.Dimension)
	}
	if cfg.Embedding.Serialize {
		q := embed.NewQueue(model, cfg.Pipeline.FieldWorkers, logger)
		s.cleanup = append(s.cleanup, q.Close)
		model = q
	}
	model = embed.NewCache(model, cfg.Embedding.CacheSize)

	deps := Deps{Extractor: extractor, Model: model, Logger: logger}
	if client != nil {
		deps.Resolver = client
	}

	if cfg.Cache.Driver != "" {
		db, err := repository.Open(ctx, repository.Config{
			Driver:      cfg.Cache.Driver,
			DSN:         cfg.Cache.DSN,
			MaxConns:    int32(cfg.Pipeline.MaxConcurrentDocs) + 2,
			DialTimeout: 5 * time.Second,
		}, logger)
		if err != nil {
			s.Close()
			return nil, common.NewAppError("CACHE_ERROR", "open result cache", fmt.Errorf("%w: %w", common.ErrDatabase, err))
		}
		s.DB = db
		s.cleanup = append(s.cleanup, db.Close)
		results, err := repository.NewResultRepository(ctx, db, logger)
		if err != nil {
			s.Close()
			return nil, common.NewAppError("CACHE_ERROR", "prepare result cache", fmt.Errorf("%w: %w", common.ErrDatabase, err))
		}
		deps.Cache = results
	}

	proc, err := New(OptionsFromConfig(cfg), deps)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Processor = proc
	return s, nil
}
