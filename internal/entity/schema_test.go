package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaUnmarshalPreservesOrder(t *testing.T) {
	var s Schema
	err := json.Unmarshal([]byte(`{"nome":"full name","cpf":"national ID","data_nascimento":"birth date"}`), &s)
	require.NoError(t, err)
	assert.Equal(t, []string{"nome", "cpf", "data_nascimento"}, s.Names())
	assert.Equal(t, "national ID", s.Fields[1].Description)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `{"nome":"full name","cpf":"national ID","data_nascimento":"birth date"}`, string(out))
}

func TestSchemaUnmarshalRejectsNonObject(t *testing.T) {
	var s Schema
	assert.Error(t, json.Unmarshal([]byte(`["cpf"]`), &s))
	assert.Error(t, json.Unmarshal([]byte(`{"cpf": 12}`), &s))
}

func TestSchemaValidate(t *testing.T) {
	assert.Error(t, Schema{}.Validate())
	assert.Error(t, NewSchema(" ", "blank").Validate())
	assert.Error(t, NewSchema("cpf", "a", "cpf", "b").Validate())
	assert.NoError(t, NewSchema("cpf", "a", "cnpj", "b").Validate())
}

func TestExtractionResultJSON(t *testing.T) {
	schema := NewSchema("b", "", "a", "", "c", "")
	v := "x"
	res := NewExtractionResult(schema, map[string]Decision{
		"b": {Value: &v, Path: PathAccepted},
		"a": {Path: PathUnresolved},
	})

	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Equal(t, `{"b":"x","a":null,"c":null}`, string(out))

	var back ExtractionResult
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, []string{"b", "a", "c"}, back.Names())
	got, ok := back.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "x", got)
	_, ok = back.Get("a")
	assert.False(t, ok)
}
