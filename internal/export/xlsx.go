// Package export writes batch reports as an XLSX workbook.
package export

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pdf-fields/internal/pipeline"
)

const (
	ResultsSheet   = "Results"
	DecisionsSheet = "Decisions"
)

// Service produces XLSX bytes from pipeline reports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ReportsXLSX writes one row per document in "Results" (file, label, status, then one
// column per field in first-seen order) and one row per field decision in "Decisions".
func (s *Service) ReportsXLSX(reports []pipeline.Report) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(DecisionsSheet); err != nil {
		return nil, err
	}

	var fields []string
	seen := map[string]bool{}
	for _, r := range reports {
		for _, name := range r.Result.Names() {
			if !seen[name] {
				seen[name] = true
				fields = append(fields, name)
			}
		}
	}

	head := append([]any{"File", "Label", "Status", "LLM Fields", "Elapsed (ms)", "Error"}, toAny(fields)...)
	if err := writeRow(f, ResultsSheet, 1, head); err != nil {
		return nil, err
	}
	if err := writeRow(f, DecisionsSheet, 1, []any{"File", "Field", "Path", "Score", "Origin", "Value", "Reason"}); err != nil {
		return nil, err
	}

	drow := 2
	for i, r := range reports {
		file := filepath.Base(r.Path)
		errMsg := ""
		if r.Err != nil {
			errMsg = truncate(r.Err.Error(), 240)
		}
		row := []any{file, r.Label, string(r.Status()), r.LLMFields, r.Elapsed.Milliseconds(), errMsg}
		for _, name := range fields {
			v, _ := r.Result.Get(name)
			row = append(row, v)
		}
		if err := writeRow(f, ResultsSheet, i+2, row); err != nil {
			return nil, err
		}

		for _, name := range r.Result.Names() {
			d, ok := r.Decisions[name]
			if !ok {
				continue
			}
			value := ""
			if d.Value != nil {
				value = *d.Value
			}
			if err := writeRow(f, DecisionsSheet, drow, []any{file, name, string(d.Path), d.Score, d.Origin, value, d.Reason}); err != nil {
				return nil, err
			}
			drow++
		}
	}

	_ = f.SetColWidth(ResultsSheet, "A", "A", 32)
	_ = f.SetColWidth(ResultsSheet, "B", "F", 14)
	_ = f.SetColWidth(DecisionsSheet, "A", "A", 32)
	_ = f.SetColWidth(DecisionsSheet, "B", "E", 16)
	_ = f.SetColWidth(DecisionsSheet, "F", "G", 40)
	if idx, err := f.GetSheetIndex(ResultsSheet); err == nil {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"documents", len(reports),
		"fields", len(fields),
		"decisions", drow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
