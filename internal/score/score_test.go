package score

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/entity"
)

var cpfField = entity.FieldSpec{Name: "cpf", Description: "national ID format XXX.XXX.XXX-XX"}

func mustScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := New(DefaultConfig())
	require.NoError(t, err)
	return s
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Weights: Weights{Regex: 0.5, Semantic: 0.5, Positional: 0.5}})
	assert.Error(t, err)
	_, err = New(Config{Weights: Weights{Regex: 1.2, Semantic: -0.2}})
	assert.Error(t, err)
	_, err = New(Config{Weights: Weights{Regex: 1}, ValidationPenalty: 1.5})
	assert.Error(t, err)
}

func TestScoreCombinesSignals(t *testing.T) {
	s := mustScorer(t)
	sc := s.Score(entity.Candidate{
		Field:         cpfField,
		RawValue:      "123.456.789-00",
		Origin:        entity.OriginRegex,
		Similarity:    0.8,
		LabelDistance: 0,
	})
	assert.True(t, sc.RegexSignal)
	assert.True(t, sc.ValidationPassed)
	assert.InDelta(t, 0.60+0.10*0.8+0.30, sc.Score, 1e-9)
	assert.GreaterOrEqual(t, sc.Score, constants.DefaultHighThreshold)
}

func TestScoreRegexSignalFromShape(t *testing.T) {
	s := mustScorer(t)
	sc := s.Score(entity.Candidate{Field: cpfField, RawValue: "12345678900", Origin: entity.OriginPositional, LabelDistance: 1})
	assert.True(t, sc.RegexSignal)
	assert.False(t, sc.EmbeddedMatch)
	assert.InDelta(t, 0.60, sc.Score, 1e-9)
	assert.GreaterOrEqual(t, sc.Score, constants.DefaultLowThreshold)
}

func TestLabeledPatternMatchAcceptedWithoutSemantics(t *testing.T) {
	s := mustScorer(t)
	sc := s.Score(entity.Candidate{Field: cpfField, RawValue: "123.456.789-00", Origin: entity.OriginRegex, LabelDistance: 0})
	assert.InDelta(t, 0.90, sc.Score, 1e-9)
	assert.GreaterOrEqual(t, sc.Score, constants.DefaultHighThreshold)
}

func TestScoreEmbeddedMatch(t *testing.T) {
	s := mustScorer(t)
	dob := entity.FieldSpec{Name: "data_nascimento", Description: "birth date DD/MM/YYYY"}
	sc := s.Score(entity.Candidate{
		Field:         dob,
		RawValue:      "nascido em 1 de janeiro de 1990",
		Origin:        entity.OriginPositional,
		LabelDistance: 0.02,
	})
	assert.False(t, sc.RegexSignal)
	assert.True(t, sc.EmbeddedMatch)
	assert.True(t, sc.ValidationPassed)
	assert.InDelta(t, 0.60*0.6+0.30*0.98, sc.Score, 1e-9)
	assert.GreaterOrEqual(t, sc.Score, constants.DefaultLowThreshold)
	assert.Less(t, sc.Score, constants.DefaultHighThreshold)

	plain := s.Score(entity.Candidate{Field: dob, RawValue: "Data de Nascimento", Origin: entity.OriginPositional, LabelDistance: 0.02})
	assert.False(t, plain.EmbeddedMatch)
}

func TestScoreValidationPenalty(t *testing.T) {
	s := mustScorer(t)
	sc := s.Score(entity.Candidate{
		Field:         entity.FieldSpec{Name: "data_nascimento"},
		RawValue:      "Data de Nascimento",
		Origin:        entity.OriginSemantic,
		Similarity:    1,
		LabelDistance: 1,
	})
	assert.False(t, sc.ValidationPassed)
	assert.InDelta(t, 0.10*0.6, sc.Score, 1e-9)
}

func TestScoreAlwaysInUnitRange(t *testing.T) {
	s := mustScorer(t)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		c := entity.Candidate{
			Field:         cpfField,
			RawValue:      "123.456.789-00",
			Origin:        entity.Origin(rng.Intn(3)),
			Similarity:    rng.Float64()*4 - 2,
			LabelDistance: rng.Float64()*4 - 2,
		}
		sc := s.Score(c)
		assert.GreaterOrEqual(t, sc.Score, 0.0)
		assert.LessOrEqual(t, sc.Score, 1.0)
		assert.Equal(t, sc, s.Score(c))
	}
}

func TestRankTieBreaks(t *testing.T) {
	s := mustScorer(t)
	field := entity.FieldSpec{Name: "observacao"}
	base := entity.Candidate{Field: field, Similarity: 0.5, LabelDistance: 0.5}

	mk := func(raw string, o entity.Origin, group int) entity.Candidate {
		c := base
		c.RawValue, c.Origin, c.GroupID = raw, o, group
		return c
	}
	cands := []entity.Candidate{
		mk("longer value", entity.OriginPositional, 0),
		mk("short", entity.OriginPositional, 3),
		mk("short", entity.OriginPositional, 1),
		mk("longer value", entity.OriginSemantic, 2),
	}
	ranked := s.Rank(cands)
	require.Len(t, ranked, 4)
	for i := 1; i < len(ranked); i++ {
		assert.Equal(t, ranked[0].Score, ranked[i].Score)
	}
	assert.Equal(t, entity.OriginSemantic, ranked[0].Origin)
	assert.Equal(t, 1, ranked[1].GroupID)
	assert.Equal(t, 3, ranked[2].GroupID)
	assert.Equal(t, "longer value", ranked[3].RawValue)

	shuffled := slices.Clone(cands)
	slices.Reverse(shuffled)
	assert.Equal(t, ranked, s.Rank(shuffled))
}

func TestRegexBeatsSemanticWithSameContext(t *testing.T) {
	s := mustScorer(t)
	regex := s.Score(entity.Candidate{Field: cpfField, RawValue: "123.456.789-00", Origin: entity.OriginRegex, Similarity: 0.6, LabelDistance: 0.2})
	semantic := s.Score(entity.Candidate{Field: cpfField, RawValue: "CPF: 123.456.789-00", Origin: entity.OriginSemantic, Similarity: 0.6, LabelDistance: 0.2})
	assert.GreaterOrEqual(t, regex.Score, semantic.Score)
	assert.Equal(t, -1, Compare(regex, semantic))
}

func TestRankAllKeepsEmptyFields(t *testing.T) {
	out := mustScorer(t).RankAll(map[string][]entity.Candidate{"cpf": {}, "nome": nil})
	assert.Contains(t, out, "cpf")
	assert.Contains(t, out, "nome")
	assert.Empty(t, out["nome"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		ft    constants.FieldType
		value string
		want  bool
	}{
		{constants.FieldCPF, "123.456.789-00", true},
		{constants.FieldCPF, "123.456.789", false},
		{constants.FieldCNPJ, "12.345.678/0001-95", true},
		{constants.FieldCEP, "CEP 50000-123", true},
		{constants.FieldCEP, "5000", false},
		{constants.FieldUF, "pe", true},
		{constants.FieldUF, "São Paulo", true},
		{constants.FieldUF, "XX", false},
		{constants.FieldCity, "São José dos Campos", true},
		{constants.FieldCity, "Cidade: Recife", true},
		{constants.FieldCity, "Recife 123", false},
		{constants.FieldAddress, "Rua das Flores, 100", true},
		{constants.FieldAddress, "Rua das Flores", false},
		{constants.FieldEmail, "a@b.com", true},
		{constants.FieldEmail, "a@b", false},
		{constants.FieldDate, "1 de janeiro de 1990", true},
		{constants.FieldDate, "31/02/1990", false},
		{constants.FieldPhone, "(81) 98765-4321", true},
		{constants.FieldPhone, "+55 81 98765-4321", true},
		{constants.FieldPhone, "98765", false},
		{constants.FieldCurrency, "R$ 1.234,56", true},
		{constants.FieldCurrency, "mil reais", false},
		{constants.FieldNumber, "nº 42", true},
		{constants.FieldText, "qualquer", true},
		{constants.FieldText, "  ", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.ft)+"/"+tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.ft, tt.value))
		})
	}
}
