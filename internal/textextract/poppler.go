package textextract

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/pdf-fields/internal/entity"
)

// PopplerConfig configures the pdftotext backend.
type PopplerConfig struct {
	Binary  string        // binary name or absolute path; if empty -> "pdftotext"
	Timeout time.Duration // 0 = rely on the caller's context
}

// Poppler shells out to `pdftotext -bbox-layout` and emits one block per layout line.
type Poppler struct {
	cfg    PopplerConfig
	runner Runner
	logger *slog.Logger
}

func NewPoppler(cfg PopplerConfig, runner Runner, logger *slog.Logger) *Poppler {
	if cfg.Binary == "" {
		cfg.Binary = "pdftotext"
	}
	if runner == nil {
		runner = execRunner{logger: logger}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poppler{cfg: cfg, runner: runner, logger: logger}
}

func (p *Poppler) Extract(ctx context.Context, path string) ([]entity.TextBlock, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	// pdftotext -bbox-layout -enc UTF-8 <path> -
	out, errb, err := p.runner.Run(ctx, p.cfg.Binary, "-bbox-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", p.cfg.Binary, err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	blocks, err := parseBBoxLayout(out)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("textextract.poppler.ok", "path", path, "blocks", len(blocks))
	return renumber(blocks), nil
}

type bboxDoc struct {
	Pages []bboxPage `xml:"body>doc>page"`
}

type bboxPage struct {
	Flows []struct {
		Blocks []struct {
			Lines []bboxLine `xml:"line"`
		} `xml:"block"`
	} `xml:"flow"`
}

type bboxLine struct {
	XMin  float64    `xml:"xMin,attr"`
	YMin  float64    `xml:"yMin,attr"`
	XMax  float64    `xml:"xMax,attr"`
	YMax  float64    `xml:"yMax,attr"`
	Words []bboxWord `xml:"word"`
}

type bboxWord struct {
	Text string `xml:",chardata"`
}

// parseBBoxLayout decodes the XHTML written by -bbox-layout. Coordinates already use a
// top-left origin; font names are not reported, the line height stands in for the size.
func parseBBoxLayout(data []byte) ([]entity.TextBlock, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	var doc bboxDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode bbox layout: %w", err)
	}

	var blocks []entity.TextBlock
	for pi, page := range doc.Pages {
		for _, flow := range page.Flows {
			for _, blk := range flow.Blocks {
				for _, line := range blk.Lines {
					words := make([]string, 0, len(line.Words))
					for _, w := range line.Words {
						if s := strings.TrimSpace(w.Text); s != "" {
							words = append(words, s)
						}
					}
					if len(words) == 0 {
						continue
					}
					blocks = append(blocks, entity.TextBlock{
						Text: strings.Join(words, " "),
						BBox: entity.BBox{X0: line.XMin, Y0: line.YMin, X1: line.XMax, Y1: line.YMax},
						Page: pi + 1,
						Size: line.YMax - line.YMin,
					})
				}
			}
		}
	}
	return blocks, nil
}
