package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-fields/internal/entity"
)

func blk(id int, text string, page int, x0, y0, x1, y1 float64) entity.TextBlock {
	return entity.TextBlock{ID: id, Text: text, Page: page, Size: 10, BBox: entity.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1}}
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "endereço: rua das flores, 10", NormalizeText("  Endereço:\tRua   das Flores, 10 "))
	assert.Equal(t, "endereco: rua sao joao", Fold("ENDEREÇO: Rua São João"))
	assert.Equal(t, []string{"cpf", "123", "456", "789", "00"}, Tokenize("CPF: 123.456.789-00"))
}

func TestHashStableForEqualNormalizedText(t *testing.T) {
	assert.Equal(t, Hash(NormalizeText("Página  1")), Hash(NormalizeText("PÁGINA 1")))
	assert.NotEqual(t, Hash("a"), Hash("b"))
}

func TestProcessReadingOrderAndLineGrouping(t *testing.T) {
	blocks := []entity.TextBlock{
		blk(0, "Nome:", 1, 50, 120, 80, 130),
		blk(1, "123.456.789-00", 1, 85, 100.5, 160, 110), // same line as "CPF:" with slight y jitter
		blk(2, "CPF:", 1, 50, 100, 78, 110),
		blk(3, "Maria Silva", 1, 300, 120, 360, 130), // same line as "Nome:" but far away
	}

	out := New(Config{}).Process(blocks)
	require.Len(t, out, 3)

	assert.Equal(t, "CPF: 123.456.789-00", out[0].Text)
	assert.Equal(t, "cpf: 123.456.789-00", out[0].Normalized)
	assert.Equal(t, []int{1, 2}, out[0].BlockIDs)
	assert.Equal(t, entity.BBox{X0: 50, Y0: 100, X1: 160, Y1: 110}, out[0].BBox)

	assert.Equal(t, "Nome:", out[1].Text)
	assert.Equal(t, "Maria Silva", out[2].Text)
	for i, nb := range out {
		assert.Equal(t, i, nb.ID)
	}
}

func TestProcessStacksWrappedLines(t *testing.T) {
	blocks := []entity.TextBlock{
		blk(0, "Rua das Flores, 100,", 1, 50, 100, 200, 110),
		blk(1, "apto 12", 1, 50, 111, 100, 121), // 1pt below, overlapping horizontally
		blk(2, "Telefone", 1, 50, 140, 100, 150),
	}
	out := New(DefaultConfig()).Process(blocks)
	require.Len(t, out, 2)
	assert.Equal(t, "Rua das Flores, 100, apto 12", out[0].Text)
	assert.Equal(t, "Telefone", out[1].Text)
}

func TestProcessDoesNotMergeAcrossFontSizes(t *testing.T) {
	title := blk(0, "FICHA", 1, 50, 100, 90, 120)
	title.Size = 20
	out := New(DefaultConfig()).Process([]entity.TextBlock{title, blk(1, "Cadastral", 1, 95, 100, 150, 110)})
	assert.Len(t, out, 2)
}

func TestProcessDeduplicatesBoilerplateAcrossPages(t *testing.T) {
	blocks := []entity.TextBlock{
		blk(0, "ACME S.A. - Confidencial", 1, 50, 20, 200, 30),
		blk(1, "CPF: 123.456.789-00", 1, 50, 100, 200, 110),
		blk(2, "ACME  S.A. - CONFIDENCIAL", 2, 50, 20, 200, 30),
	}
	out := New(DefaultConfig()).Process(blocks)
	require.Len(t, out, 2)
	assert.Equal(t, []int{0, 2}, out[0].BlockIDs)
	assert.Equal(t, []int{1, 2}, out[0].Pages)
	assert.Equal(t, 1, out[0].Page)
}

func TestProcessDeterministic(t *testing.T) {
	blocks := []entity.TextBlock{
		blk(0, "b", 1, 100, 10, 110, 20),
		blk(1, "a", 1, 10, 10, 20, 20),
		blk(2, "c", 2, 10, 10, 20, 20),
	}
	p := New(DefaultConfig())
	assert.Equal(t, p.Process(blocks), p.Process(blocks))
	assert.Nil(t, p.Process(nil))
}
