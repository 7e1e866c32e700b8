package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/pdf-fields/constants"
)

func values(ms []Match) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Value
	}
	return out
}

func TestFind(t *testing.T) {
	tests := []struct {
		ft   constants.FieldType
		text string
		want []string
	}{
		{constants.FieldCPF, "CPF: 123.456.789-00", []string{"123.456.789-00"}},
		{constants.FieldCNPJ, "CNPJ 12.345.678/0001-95", []string{"12.345.678/0001-95"}},
		{constants.FieldEmail, "Contato: Maria.Silva@Example.com.br", []string{"Maria.Silva@Example.com.br"}},
		{constants.FieldPhone, "Tel: (81) 98765-4321", []string{"(81) 98765-4321"}},
		{constants.FieldCEP, "CEP 50000-123", []string{"50000-123"}},
		{constants.FieldUF, "Recife - PE", []string{"PE"}},
		{constants.FieldCity, "Cidade: Recife - PE", []string{"Recife"}},
		{constants.FieldAddress, "Endereço: Rua das Flores, 100, apto 12", []string{"Rua das Flores, 100"}},
		{constants.FieldDate, "emitido 10/03/2021", []string{"10/03/2021"}},
		{constants.FieldCurrency, "Total R$ 1.234,56 ou R$ 10,00", []string{"R$ 1.234,56", "R$ 10,00"}},
		{constants.FieldText, "anything 123", nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.ft), func(t *testing.T) {
			got := values(Find(tt.ft, tt.text))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Subset(t, got, tt.want)
			assert.Equal(t, tt.want[0], got[0])
		})
	}
}

func TestFindOffsetsPointIntoText(t *testing.T) {
	text := "CPF: 123.456.789-00"
	ms := Find(constants.FieldCPF, text)
	if assert.Len(t, ms, 1) {
		assert.Equal(t, ms[0].Value, text[ms[0].Start:ms[0].End])
	}
}

func TestFullMatch(t *testing.T) {
	assert.True(t, FullMatch(constants.FieldCPF, "12345678900"))
	assert.False(t, FullMatch(constants.FieldCPF, "CPF: 123.456.789-00"))
	assert.True(t, FullMatch(constants.FieldUF, "SP"))
	assert.False(t, FullMatch(constants.FieldUF, "sp"))
	assert.True(t, FullMatch(constants.FieldCurrency, "1.234,56"))
	assert.True(t, FullMatch(constants.FieldDate, "1990-01-01"))
	assert.False(t, FullMatch(constants.FieldText, "x"))
	assert.False(t, HasPatterns(constants.FieldText))
}

func TestFindDropsNestedHits(t *testing.T) {
	got := values(Find(constants.FieldCurrency, "Total R$ 1.234,56"))
	assert.Equal(t, []string{"R$ 1.234,56"}, got)
}
