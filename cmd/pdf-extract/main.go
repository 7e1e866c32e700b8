package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/async"
	"github.com/joseph-ayodele/pdf-fields/internal/common"
	"github.com/joseph-ayodele/pdf-fields/internal/export"
	"github.com/joseph-ayodele/pdf-fields/internal/ingest"
	"github.com/joseph-ayodele/pdf-fields/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir       = flag.String("dir", "", "directory with the PDFs to process (required)")
		schema    = flag.String("schema", "", "schema file: {filename: {label, extraction_schema}}, \"*\" is the default entry (required)")
		out       = flag.String("out", "", "output directory for the JSON results (defaults to <dir>/results)")
		xlsxPath  = flag.String("xlsx", "", "optional XLSX report path")
		watch     = flag.Bool("watch", false, "keep running and process new PDFs as they appear")
		cacheDSN  = flag.String("cache", "", "SQLite file used as result cache (overrides CACHE_DRIVER/CACHE_DSN)")
		recursive = flag.Bool("recursive", false, "descend into subdirectories")
	)
	flag.Parse()

	if *dir == "" || *schema == "" {
		printError("Error: --dir and --schema are required\n")
		flag.Usage()
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(*dir, "results")
	}

	cfg := common.LoadConfig()
	if *cacheDSN != "" {
		cfg.Cache.Driver = "sqlite"
		cfg.Cache.DSN = *cacheDSN
	}
	logger := common.NewLogger(cfg.Log)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	sf, err := ingest.LoadSchemaFile(*schema)
	if err != nil {
		logger.Error("failed to load schema file", "path", *schema, "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		logger.Error("failed to create output directory", "dir", *out, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setup, err := pipeline.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	defer setup.Close()

	if *watch {
		if err := runWatch(ctx, setup.Processor, sf, *dir, *out, logger); err != nil {
			logger.Error("watch failed", "error", err)
			os.Exit(1)
		}
		return
	}

	runID := uuid.New()
	start := time.Now()
	paths, stats, err := ingest.ScanDirectory(ctx, ingest.ScanConfig{Root: *dir, Recursive: *recursive, SkipHidden: true})
	if err != nil {
		logger.Error("failed to scan directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	reqs, skipped := ingest.BuildRequests(paths, sf)
	for _, p := range skipped {
		logger.Warn("no schema entry for document, skipping", "path", p)
	}
	logger.Info("scan complete",
		"run_id", runID,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"queued", len(reqs),
		"skipped", len(skipped),
	)

	reports := setup.Processor.Batch(ctx, reqs)

	failures, llmFields := 0, 0
	for _, rep := range reports {
		if rep.Err != nil {
			failures++
		}
		llmFields += rep.LLMFields
		if err := writeReport(*out, rep); err != nil {
			logger.Error("failed to write result", "path", rep.Path, "error", err)
		}
	}
	if err := writeJSON(filepath.Join(*out, constants.AllResultsFileName), reports); err != nil {
		logger.Error("failed to write aggregated results", "error", err)
		os.Exit(1)
	}

	if *xlsxPath != "" {
		data, err := export.NewService(logger).ReportsXLSX(reports)
		if err != nil {
			logger.Error("failed to build XLSX report", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxPath, data, 0o644); err != nil {
			logger.Error("failed to write XLSX report", "path", *xlsxPath, "error", err)
			os.Exit(1)
		}
	}

	elapsed := time.Since(start)
	logger.Info("batch processing complete",
		"run_id", runID,
		"documents", len(reports),
		"failures", failures,
		"llm_fields", llmFields,
		"elapsed_ms", elapsed.Milliseconds(),
		"output_dir", *out,
	)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Documents: %d\n", len(reports))
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Fields sent to the LLM: %d\n", llmFields)
	fmt.Printf("- Elapsed: %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("- Output: %s\n", *out)
	if failures > 0 {
		os.Exit(2)
	}
}

// runWatch processes existing and newly written PDFs until ctx ends, writing each result
// as soon as its job finishes.
func runWatch(ctx context.Context, proc *pipeline.Processor, sf *ingest.SchemaFile, dir, out string, logger *slog.Logger) error {
	q := async.NewProcessorQueue(proc, logger,
		async.WithWorkers(proc.Options().MaxConcurrentDocs),
		async.WithResultHandler(func(job async.Job, rep pipeline.Report) {
			if err := writeReport(out, rep); err != nil {
				logger.Error("failed to write result", "job_id", job.ID, "path", rep.Path, "error", err)
			}
		}),
	)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		q.Shutdown(shutdownCtx)
	}()

	logger.Info("watching for PDFs", "dir", dir, "output_dir", out)
	return ingest.Watch(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
		Logger:      logger,
	}, sf, q)
}

func writeReport(dir string, rep pipeline.Report) error {
	return writeJSON(filepath.Join(dir, constants.ResultFileName(rep.Path)), rep)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
