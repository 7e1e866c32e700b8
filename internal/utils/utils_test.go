package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"01/01/1990", "01/01/1990"},
		{"1/2/90", "01/02/1990"},
		{"05-11-23", "05/11/2023"},
		{"1990-01-31", "31/01/1990"},
		{"nascido em 1 de janeiro de 1990", "01/01/1990"},
		{"Emitido em 15 de Março de 2021.", "15/03/2021"},
		{"1º de jan. de 2000", "01/01/2000"},
		{"Born January 1, 1990", "01/01/1990"},
		{"Due: Dec 25th 2024", "25/12/2024"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatDMY(d))
		})
	}
}

func TestParseDateRejects(t *testing.T) {
	for _, in := range []string{"31/02/2020", "00/10/2020", "12 ruas 2020", "sem data", "13/13/13"} {
		_, err := ParseDate(in)
		assert.Error(t, err, in)
	}
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "data nascimento", Humanize("data_nascimento"))
	assert.Equal(t, "birth date", Humanize("birthDate"))
	assert.Equal(t, "cpf", Humanize("cpf"))
	assert.Equal(t, "nome completo", Humanize(" nome--completo "))
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "12345678900", Digits("123.456.789-00"))
	assert.Equal(t, "", Digits("abc"))
	assert.Equal(t, "x", StrOrEmpty(Ptr("x")))
	assert.Equal(t, "", StrOrEmpty(nil))
}
