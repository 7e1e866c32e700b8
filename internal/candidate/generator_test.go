package candidate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-fields/internal/entity"
	"github.com/joseph-ayodele/pdf-fields/internal/preprocess"
)

// keywordModel embeds a text as the indicator vector of the concepts it mentions.
type keywordModel struct {
	concepts [][]string
	err      error
}

func (k keywordModel) Dimension() int { return len(k.concepts) }

func (k keywordModel) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if k.err != nil {
		return nil, k.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(k.concepts))
		folded := preprocess.Fold(t)
		for c, words := range k.concepts {
			for _, w := range words {
				if strings.Contains(folded, w) {
					v[c] = 1
				}
			}
		}
		out[i] = v
	}
	return out, nil
}

var testModel = keywordModel{concepts: [][]string{
	{"cpf", "123."},
	{"nasc", "birth", "janeiro"},
	{"telefone", "phone", "(81)"},
}}

func nb(id int, text string, x0, y0, x1, y1 float64) entity.NormalizedBlock {
	return entity.NormalizedBlock{
		ID:         id,
		Text:       text,
		Normalized: preprocess.NormalizeText(text),
		BlockIDs:   []int{id},
		Pages:      []int{1},
		Page:       1,
		BBox:       entity.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1},
	}
}

func byOrigin(cs []entity.Candidate, o entity.Origin) []entity.Candidate {
	var out []entity.Candidate
	for _, c := range cs {
		if c.Origin == o {
			out = append(out, c)
		}
	}
	return out
}

func TestGenerateLabeledRegexValue(t *testing.T) {
	g := New(DefaultConfig(), testModel, nil)
	blocks := []entity.NormalizedBlock{
		nb(0, "Ficha Cadastral", 50, 40, 200, 60),
		nb(1, "CPF: 123.456.789-00", 50, 100, 200, 110),
	}
	out, err := g.Generate(context.Background(), Input{
		Blocks: blocks,
		Schema: entity.NewSchema("cpf", "national ID format XXX.XXX.XXX-XX"),
	})
	require.NoError(t, err)

	cs := out["cpf"]
	regex := byOrigin(cs, entity.OriginRegex)
	require.Len(t, regex, 1)
	assert.Equal(t, "123.456.789-00", regex[0].RawValue)
	assert.Equal(t, 1, regex[0].GroupID)
	assert.Equal(t, []int{1}, regex[0].SourceBlockIDs)
	assert.Equal(t, 0.0, regex[0].LabelDistance)
	assert.Greater(t, regex[0].Similarity, 0.9)

	pos := byOrigin(cs, entity.OriginPositional)
	require.Len(t, pos, 1)
	assert.Equal(t, "123.456.789-00", pos[0].RawValue)

	sem := byOrigin(cs, entity.OriginSemantic)
	require.NotEmpty(t, sem)
	assert.Equal(t, "CPF: 123.456.789-00", sem[0].RawValue)
}

func TestGenerateValueBelowLabel(t *testing.T) {
	g := New(DefaultConfig(), testModel, nil)
	blocks := []entity.NormalizedBlock{
		nb(0, "Data de Nascimento", 50, 100, 150, 110),
		nb(1, "nascido em 1 de janeiro de 1990", 50, 113, 250, 123),
		nb(2, "Observações gerais", 50, 400, 150, 410),
	}
	out, err := g.Generate(context.Background(), Input{
		Blocks: blocks,
		Schema: entity.NewSchema("data_nascimento", "birth date DD/MM/YYYY"),
	})
	require.NoError(t, err)

	cs := out["data_nascimento"]
	assert.Empty(t, byOrigin(cs, entity.OriginRegex))

	pos := byOrigin(cs, entity.OriginPositional)
	require.Len(t, pos, 1)
	assert.Equal(t, "nascido em 1 de janeiro de 1990", pos[0].RawValue)
	assert.InDelta(t, 3.0/150.0, pos[0].LabelDistance, 1e-9)

	for _, c := range byOrigin(cs, entity.OriginSemantic) {
		if c.GroupID == 2 {
			t.Fatalf("unrelated group became a semantic candidate: %+v", c)
		}
		if c.GroupID == 0 {
			assert.Equal(t, 1.0, c.LabelDistance, "a bare label is not its own value")
		}
	}
}

func TestGenerateRightOfLabelOnSameLine(t *testing.T) {
	g := New(DefaultConfig(), nil, nil)
	blocks := []entity.NormalizedBlock{
		nb(0, "Telefone", 50, 100, 100, 110),
		nb(1, "(81) 98765-4321", 160, 100, 240, 110),
		nb(2, "Rodapé", 50, 700, 100, 710),
	}
	out, err := g.Generate(context.Background(), Input{Blocks: blocks, Schema: entity.NewSchema("telefone", "")})
	require.NoError(t, err)

	cs := out["telefone"]
	assert.Empty(t, byOrigin(cs, entity.OriginSemantic), "no model, no semantic candidates")
	pos := byOrigin(cs, entity.OriginPositional)
	require.Len(t, pos, 1)
	assert.Equal(t, 1, pos[0].GroupID)
	assert.InDelta(t, 60.0/150.0, pos[0].LabelDistance, 1e-9)

	regex := byOrigin(cs, entity.OriginRegex)
	require.Len(t, regex, 1)
	assert.Equal(t, pos[0].LabelDistance, regex[0].LabelDistance)
}

func TestGenerateEveryFieldPresent(t *testing.T) {
	g := New(DefaultConfig(), testModel, nil)
	out, err := g.Generate(context.Background(), Input{
		Blocks: []entity.NormalizedBlock{nb(0, "nada aqui", 0, 0, 10, 10)},
		Schema: entity.NewSchema("cnpj", "", "email", ""),
	})
	require.NoError(t, err)
	require.Contains(t, out, "cnpj")
	require.Contains(t, out, "email")
	assert.NotNil(t, out["cnpj"])
	assert.Empty(t, out["cnpj"])

	out, err = g.Generate(context.Background(), Input{Schema: entity.NewSchema("cnpj", "")})
	require.NoError(t, err)
	assert.Empty(t, out["cnpj"])
}

func TestGenerateDegradesWhenEmbeddingFails(t *testing.T) {
	g := New(DefaultConfig(), keywordModel{err: errors.New("model down")}, nil)
	out, err := g.Generate(context.Background(), Input{
		Blocks: []entity.NormalizedBlock{nb(0, "CPF: 123.456.789-00", 0, 0, 100, 10)},
		Schema: entity.NewSchema("cpf", ""),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, byOrigin(out["cpf"], entity.OriginRegex))
	assert.Empty(t, byOrigin(out["cpf"], entity.OriginSemantic))
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(DefaultConfig(), nil, nil).Generate(ctx, Input{
		Blocks: []entity.NormalizedBlock{nb(0, "x", 0, 0, 1, 1)},
		Schema: entity.NewSchema("a", "", "b", ""),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLabelSimilarityMixesDocumentLabel(t *testing.T) {
	model := keywordModel{concepts: [][]string{{"cpf"}, {"ficha"}}}
	g := New(DefaultConfig(), model, nil)
	blocks := []entity.NormalizedBlock{nb(0, "cpf", 0, 0, 10, 10), nb(1, "ficha cpf", 0, 50, 10, 60)}

	out, err := g.Generate(context.Background(), Input{Blocks: blocks, Schema: entity.NewSchema("cpf", ""), Label: "ficha"})
	require.NoError(t, err)
	sims := map[int]float64{}
	for _, c := range out["cpf"] {
		sims[c.GroupID] = c.Similarity
	}
	assert.InDelta(t, 0.7, sims[0], 1e-6)
	assert.Greater(t, sims[1], sims[0])
}

func TestFindLabelsFuzzy(t *testing.T) {
	g := New(DefaultConfig(), nil, nil)
	blocks := []entity.NormalizedBlock{
		nb(0, "Endereco: Rua A, 10", 0, 0, 10, 10),
		nb(1, "Assinatura conforme consta no endereço cadastrado", 0, 20, 10, 30),
		nb(2, "ENDEREÇO", 0, 40, 10, 50),
	}
	ls := g.findLabels(entity.FieldSpec{Name: "endereço"}, blocks)
	require.Len(t, ls, 2)
	assert.Equal(t, "Rua A, 10", ls[0].remainder)
	assert.Equal(t, 2, ls[1].idx)
	assert.Equal(t, "", ls[1].remainder)
}
