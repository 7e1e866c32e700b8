package common

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/pdf-fields/constants"
)

// Config holds all application configuration
type Config struct {
	Pipeline  PipelineConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Extractor ExtractorConfig
	Server    ServerConfig
	Cache     CacheConfig
	Log       LogConfig
}

// PipelineConfig holds the scoring and decision parameters
type PipelineConfig struct {
	HighThreshold     float64 `validate:"gte=0,lte=1"`
	LowThreshold      float64 `validate:"gte=0,lte=1,ltefield=HighThreshold"`
	RegexWeight       float64 `validate:"gte=0,lte=1"`
	SemanticWeight    float64 `validate:"gte=0,lte=1"`
	PositionalWeight  float64 `validate:"gte=0,lte=1"`
	ValidationPenalty float64 `validate:"gte=0,lte=1"`
	TopK              int     `validate:"min=1,max=50"`
	FieldWorkers      int     `validate:"min=1,max=64"`
	MaxConcurrentDocs int     `validate:"min=1,max=64"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	APIKey       string
	BaseURL      string        `validate:"required,url"`
	Model        string        `validate:"required"`
	Temperature  float32       `validate:"gte=0,lte=2"`
	Timeout      time.Duration `validate:"gt=0"`
	FieldTimeout time.Duration `validate:"gt=0"`
	Concurrency  int           `validate:"min=1,max=32"`
	MaxRetries   int           `validate:"min=0,max=10"`
}

// EmbeddingConfig selects the embedding provider
type EmbeddingConfig struct {
	Provider  string `validate:"oneof=hash openai"`
	Model     string
	Dimension int  `validate:"min=8,max=4096"`
	Serialize bool // wrap the model in a single-worker queue
	CacheSize int  `validate:"min=1"`
}

// ExtractorConfig selects the PDF text backend
type ExtractorConfig struct {
	Backend   string `validate:"oneof=auto native pdftotext"`
	Pdftotext string `validate:"required"`
	Timeout   time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string `validate:"required"`
	GRPCAddr        string `validate:"required"`
	ShutdownTimeout time.Duration
	UploadDir       string
	MaxUploadBytes  int64 `validate:"min=1"`
	JobRetention    time.Duration
	MaxFinishedJobs int `validate:"min=1"`
}

// CacheConfig holds the optional result cache settings
type CacheConfig struct {
	Driver string `validate:"omitempty,oneof=sqlite pgx"`
	DSN    string `validate:"required_with=Driver"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json text"`
}

// LoadConfig loads configuration from environment variables, reading a .env file first if present
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Pipeline: PipelineConfig{
			HighThreshold:     getEnvAsFloat64("T_HIGH", constants.DefaultHighThreshold),
			LowThreshold:      getEnvAsFloat64("T_LOW", constants.DefaultLowThreshold),
			RegexWeight:       getEnvAsFloat64("WEIGHT_REGEX", constants.DefaultRegexWeight),
			SemanticWeight:    getEnvAsFloat64("WEIGHT_SEMANTIC", constants.DefaultSemanticWeight),
			PositionalWeight:  getEnvAsFloat64("WEIGHT_POSITIONAL", constants.DefaultPositionalWeight),
			ValidationPenalty: getEnvAsFloat64("VALIDATION_PENALTY", constants.DefaultValidationPenalty),
			TopK:              getEnvAsInt("TOP_K", constants.DefaultTopK),
			FieldWorkers:      getEnvAsInt("FIELD_WORKERS", constants.DefaultFieldWorkers),
			MaxConcurrentDocs: getEnvAsInt("MAX_CONCURRENT_DOCS", constants.DefaultMaxConcurrentDocs),
		},
		LLM: LLMConfig{
			APIKey:       getEnv("OPENAI_API_KEY", ""),
			BaseURL:      getEnv("OPENAI_BASE_URL", constants.DefaultLLMBaseURL),
			Model:        getEnv("OPENAI_MODEL", constants.DefaultLLMModel),
			Temperature:  getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:      getEnvAsDuration("OPENAI_TIMEOUT", constants.DefaultLLMTimeout),
			FieldTimeout: getEnvAsDuration("LLM_FIELD_TIMEOUT", constants.DefaultFieldTimeout),
			Concurrency:  getEnvAsInt("LLM_CONCURRENCY", constants.DefaultLLMConcurrency),
			MaxRetries:   getEnvAsInt("OPENAI_MAX_RETRIES", constants.DefaultLLMMaxRetries),
		},
		Embedding: EmbeddingConfig{
			Provider:  strings.ToLower(getEnv("EMBEDDING_PROVIDER", "hash")),
			Model:     getEnv("EMBEDDING_MODEL", constants.DefaultEmbeddingModel),
			Dimension: getEnvAsInt("EMBEDDING_DIM", constants.DefaultHashEmbeddingDim),
			Serialize: getEnvAsBool("EMBEDDING_SERIALIZE", false),
			CacheSize: getEnvAsInt("EMBEDDING_CACHE_SIZE", constants.DefaultEmbeddingCacheSize),
		},
		Extractor: ExtractorConfig{
			Backend:   strings.ToLower(getEnv("TEXT_BACKEND", "auto")),
			Pdftotext: getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Timeout:   getEnvAsDuration("TEXT_TIMEOUT", 2*time.Minute),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:        getEnv("GRPC_ADDR", ":9090"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
			UploadDir:       getEnv("UPLOAD_DIR", os.TempDir()),
			MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_BYTES", 32<<20)),
			JobRetention:    getEnvAsDuration("JOB_RETENTION", constants.DefaultJobRetention),
			MaxFinishedJobs: getEnvAsInt("MAX_FINISHED_JOBS", constants.DefaultMaxFinishedJobs),
		},
		Cache: CacheConfig{
			Driver: strings.ToLower(getEnv("CACHE_DRIVER", "")),
			DSN:    getEnv("CACHE_DSN", ""),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// weightEpsilon absorbs float rounding from env parsing ("0.6" + "0.1" + "0.3").
const weightEpsilon = 1e-6

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return NewAppError("CONFIG_ERROR", err.Error(), ErrInvalidInput)
	}
	p := c.Pipeline
	if sum := p.RegexWeight + p.SemanticWeight + p.PositionalWeight; math.Abs(sum-1) > weightEpsilon {
		return NewAppError("CONFIG_ERROR", "WEIGHT_REGEX + WEIGHT_SEMANTIC + WEIGHT_POSITIONAL must sum to 1.0", ErrInvalidInput)
	}
	if c.Embedding.Provider == "openai" && c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required for EMBEDDING_PROVIDER=openai", ErrInvalidInput)
	}
	return nil
}

// LLMEnabled reports whether the LLM fallback can be wired.
func (c *Config) LLMEnabled() bool {
	return c.LLM.APIKey != ""
}
