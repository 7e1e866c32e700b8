package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/pipeline"
)

type ScanConfig struct {
	Root       string
	Recursive  bool
	SkipHidden bool
}

type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// ScanDirectory lists the PDFs under cfg.Root in lexical order.
func ScanDirectory(ctx context.Context, cfg ScanConfig) ([]string, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(cfg.Root) == "" {
		return nil, stats, errors.New("root path is required")
	}

	var paths []string
	err := filepath.WalkDir(cfg.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == cfg.Root {
				return walkErr
			}
			stats.Failed++
			return nil
		}
		if path == cfg.Root {
			return nil
		}
		if cfg.SkipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !cfg.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		stats.Scanned++
		if !constants.IsPDF(path) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, fmt.Errorf("walk: %w", err)
	}
	return paths, stats, nil
}

// BuildRequests pairs every path with its schema entry; paths without one are returned
// separately.
func BuildRequests(paths []string, sf *SchemaFile) (reqs []pipeline.Request, skipped []string) {
	for _, p := range paths {
		e, ok := sf.Lookup(p)
		if !ok {
			skipped = append(skipped, p)
			continue
		}
		reqs = append(reqs, pipeline.Request{Path: p, Label: e.Label, Schema: e.Schema})
	}
	return reqs, skipped
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
