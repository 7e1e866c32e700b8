package textextract

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func glyphs(s string, x, y, size float64, font string) []pdf.Text {
	var out []pdf.Text
	w := size * 0.5
	for _, r := range s {
		out = append(out, pdf.Text{Font: font, FontSize: size, X: x, Y: y, W: w, S: string(r)})
		x += w
	}
	return out
}

func TestNativeSegmentsMergeAndSplit(t *testing.T) {
	var texts []pdf.Text
	texts = append(texts, glyphs("CPF: 123", 50, 700, 10, "Helvetica")...)
	// far to the right on the same baseline: new block
	texts = append(texts, glyphs("UF: SP", 400, 700, 10, "Helvetica")...)
	// next line
	texts = append(texts, glyphs("Nome", 50, 680, 10, "Helvetica-Bold")...)

	blocks := NewNative(nil).segments(texts, 1, 800)
	require.Len(t, blocks, 3)

	assert.Equal(t, "CPF: 123", blocks[0].Text)
	assert.Equal(t, "UF: SP", blocks[1].Text)
	assert.Equal(t, "Nome", blocks[2].Text)
	assert.Equal(t, "Helvetica-Bold", blocks[2].Font)

	// top-left origin: y0 = height - (baseline + size)
	assert.InDelta(t, 90, blocks[0].BBox.Y0, 1e-9)
	assert.InDelta(t, 100, blocks[0].BBox.Y1, 1e-9)
	assert.Less(t, blocks[0].BBox.Y0, blocks[2].BBox.Y0)
	assert.InDelta(t, 50, blocks[0].BBox.X0, 1e-9)
	assert.InDelta(t, 90, blocks[0].BBox.X1, 1e-9)
}

func TestNativeSegmentsSkipWhitespaceOnly(t *testing.T) {
	texts := glyphs("   ", 10, 10, 10, "F")
	assert.Empty(t, NewNative(nil).segments(texts, 1, 100))
}
