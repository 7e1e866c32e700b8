package textextract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/pdf-fields/internal/entity"
)

// ErrNoText is returned when a backend opened the document but found no text layer.
var ErrNoText = errors.New("no extractable text")

// Extractor turns a PDF on disk into positioned text blocks.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]entity.TextBlock, error)
}

// Config selects and tunes the backends.
type Config struct {
	Backend   string        // "auto" (native then pdftotext), "native", "pdftotext"
	Pdftotext string        // binary name or absolute path; if empty -> "pdftotext"
	Timeout   time.Duration // per-document cap for the external command; 0 = none
}

// New builds the extractor chain described by cfg.
func New(cfg Config, logger *slog.Logger) (Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	native := NewNative(logger)
	poppler := NewPoppler(PopplerConfig{Binary: cfg.Pdftotext, Timeout: cfg.Timeout}, execRunner{logger: logger}, logger)

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "auto":
		return NewChain(logger, native, poppler), nil
	case "native":
		return native, nil
	case "pdftotext":
		return poppler, nil
	default:
		return nil, fmt.Errorf("unknown text backend %q", cfg.Backend)
	}
}

// Chain tries each backend in order until one yields text.
type Chain struct {
	backends []Extractor
	logger   *slog.Logger
}

func NewChain(logger *slog.Logger, backends ...Extractor) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{backends: backends, logger: logger}
}

func (c *Chain) Extract(ctx context.Context, path string) ([]entity.TextBlock, error) {
	var errs []error
	for i, b := range c.backends {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		blocks, err := b.Extract(ctx, path)
		if err == nil && len(blocks) > 0 {
			if i > 0 {
				c.logger.Info("textextract.fallback.ok", "path", path, "backend", fmt.Sprintf("%T", b), "blocks", len(blocks))
			}
			return blocks, nil
		}
		if err == nil {
			err = ErrNoText
		}
		c.logger.Warn("textextract.backend.failed", "path", path, "backend", fmt.Sprintf("%T", b), "error", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNoText
	}
	return nil, errors.Join(errs...)
}

// renumber assigns sequential ids in extraction order.
func renumber(blocks []entity.TextBlock) []entity.TextBlock {
	for i := range blocks {
		blocks[i].ID = i
	}
	return blocks
}
