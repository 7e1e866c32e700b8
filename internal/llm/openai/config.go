package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joseph-ayodele/pdf-fields/constants"
)

// Config for the OpenAI client.
type Config struct {
	APIKey         string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL        string        // default https://api.openai.com/v1
	Model          string        // chat model, e.g. "gpt-5-mini"
	Temperature    float32       // 0..2
	Timeout        time.Duration // http client timeout
	MaxRetries     int           // retries on 429, 5xx and network errors
	RetryBackoff   time.Duration // first backoff step, doubled per retry
	EmbeddingModel string        // e.g. "text-embedding-3-small"
	EmbeddingDim   int           // expected vector size; 0 means taken from the first reply
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = constants.DefaultLLMBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = constants.DefaultLLMModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultLLMTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = constants.DefaultEmbeddingModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}
