package textextract

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/pdf-fields/internal/entity"
)

// Native reads the text layer in-process with ledongthuc/pdf.
type Native struct {
	logger *slog.Logger
	// gap (in multiples of font size) that splits a run into two blocks
	splitGap float64
}

func NewNative(logger *slog.Logger) *Native {
	if logger == nil {
		logger = slog.Default()
	}
	return &Native{logger: logger, splitGap: 1.5}
}

func (n *Native) Extract(ctx context.Context, path string) ([]entity.TextBlock, error) {
	start := time.Now()
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			n.logger.Warn("textextract.native.close_error", "path", path, "error", cerr)
		}
	}()

	var blocks []entity.TextBlock
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		texts, perr := pageTexts(page)
		if perr != nil {
			n.logger.Warn("textextract.native.page_error", "path", path, "page", i, "error", perr)
			continue
		}
		blocks = append(blocks, n.segments(texts, i, pageHeight(page, texts))...)
	}

	n.logger.Debug("textextract.native.ok",
		"path", path,
		"pages", r.NumPage(),
		"blocks", len(blocks),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return renumber(blocks), nil
}

// pageTexts guards Content(), which panics on malformed content streams.
func pageTexts(page pdf.Page) (texts []pdf.Text, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("content stream: %v", r)
		}
	}()
	return page.Content().Text, nil
}

// segments merges glyph runs into blocks: same font and size, same baseline, and a
// horizontal gap below splitGap*size. Y is flipped to a top-left origin.
func (n *Native) segments(texts []pdf.Text, page int, height float64) []entity.TextBlock {
	var out []entity.TextBlock
	var cur *entity.TextBlock
	var lastY, lastX1 float64

	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = strings.TrimSpace(cur.Text)
		if cur.Text != "" {
			out = append(out, *cur)
		}
		cur = nil
	}

	for _, t := range texts {
		if t.S == "" || t.S == "\n" {
			continue
		}
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		x0, x1 := t.X, t.X+t.W
		y0, y1 := height-(t.Y+size), height-t.Y

		if cur != nil {
			sameLine := math.Abs(t.Y-lastY) <= size*0.3
			sameStyle := t.Font == cur.Font && math.Abs(size-cur.Size) < 0.5
			gap := x0 - lastX1
			if !sameLine || !sameStyle || gap > n.splitGap*size || gap < -size {
				flush()
			} else if strings.TrimSpace(t.S) != "" && gap > size*0.15 && !strings.HasSuffix(cur.Text, " ") {
				cur.Text += " "
			}
		}
		if cur == nil {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			cur = &entity.TextBlock{
				Page: page,
				Font: t.Font,
				Size: size,
				BBox: entity.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1},
			}
		}
		cur.Text += t.S
		cur.BBox = cur.BBox.Union(entity.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1})
		lastY, lastX1 = t.Y, x1
	}
	flush()
	return out
}

// pageHeight reads the (possibly inherited) MediaBox; without one it falls back to the
// highest glyph on the page.
func pageHeight(page pdf.Page, texts []pdf.Text) float64 {
	v := page.V
	for i := 0; i < 16 && !v.IsNull(); i++ {
		if mb := v.Key("MediaBox"); mb.Len() == 4 {
			if h := mb.Index(3).Float64() - mb.Index(1).Float64(); h > 0 {
				return h
			}
		}
		v = v.Key("Parent")
	}
	var maxY float64
	for _, t := range texts {
		maxY = math.Max(maxY, t.Y+t.FontSize)
	}
	return maxY
}
