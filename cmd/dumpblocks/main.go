package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/joseph-ayodele/pdf-fields/internal/common"
	"github.com/joseph-ayodele/pdf-fields/internal/entity"
	"github.com/joseph-ayodele/pdf-fields/internal/preprocess"
	"github.com/joseph-ayodele/pdf-fields/internal/textextract"
)

// dumpblocks prints the raw and normalized text blocks of one PDF as JSON.
func main() {
	backend := flag.String("backend", "", "text backend: auto, native or pdftotext (defaults to TEXT_BACKEND)")
	flag.Parse()

	cfg := common.LoadConfig()
	cfg.Log.Format = "text"
	logger := common.NewLogger(cfg.Log)

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "dumpblocks [-backend auto|native|pdftotext] <file.pdf>")
		os.Exit(2)
	}
	path := flag.Arg(0)
	if *backend != "" {
		cfg.Extractor.Backend = *backend
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
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

	start := time.Now()
	raw, err := extractor.Extract(ctx, path)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}
	blocks := preprocess.New(preprocess.DefaultConfig()).Process(raw)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		Path       string                   `json:"path"`
		TextBlocks []entity.TextBlock       `json:"text_blocks"`
		Normalized []entity.NormalizedBlock `json:"normalized_blocks"`
	}{path, raw, blocks}); err != nil {
		logger.Error("encode output", "error", err)
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		"path", path,
		"raw_blocks", len(raw),
		"blocks", len(blocks),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}
