package llm

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/entity"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr error
	}{
		{name: "plain", content: `{"value":"123.456.789-00"}`, want: "123.456.789-00"},
		{name: "fenced", content: "```json\n{\"value\": \" Maria \"}\n```", want: "Maria"},
		{name: "number coerced", content: `{"value": 1990}`, want: "1990"},
		{name: "extra keys dropped", content: `{"value":"x","confidence":0.9}`, want: "x"},
		{name: "null", content: `{"value":null}`, wantErr: ErrNoAnswer},
		{name: "empty string", content: `{"value":""}`, wantErr: ErrNoAnswer},
		{name: "null literal string", content: `{"value":"null","note":1}`, wantErr: ErrNoAnswer},
		{name: "not json", content: `the value is 42`, wantErr: ErrMalformedResponse},
		{name: "wrong type", content: `{"value":["a"]}`, wantErr: ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := ParseAnswer(tt.content, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAPIErrorTaxonomy(t *testing.T) {
	unauthorized := NewAPIError(http.StatusUnauthorized, []byte(`{"error":{"message":"bad key"}}`))
	assert.ErrorIs(t, unauthorized, ErrUnauthorized)
	assert.Equal(t, "bad key", unauthorized.Message)
	assert.False(t, unauthorized.Retryable())

	assert.ErrorIs(t, NewAPIError(http.StatusForbidden, nil), ErrUnauthorized)
	assert.ErrorIs(t, NewAPIError(http.StatusTooManyRequests, nil), ErrRateLimited)
	assert.ErrorIs(t, NewAPIError(http.StatusBadGateway, []byte("upstream")), ErrTransport)
	assert.ErrorIs(t, NewAPIError(http.StatusBadRequest, nil), ErrTransport)

	assert.True(t, IsRetryable(NewAPIError(http.StatusTooManyRequests, nil)))
	assert.True(t, IsRetryable(NewAPIError(http.StatusServiceUnavailable, nil)))
	assert.False(t, IsRetryable(NewAPIError(http.StatusBadRequest, nil)))
	assert.True(t, IsRetryable(errors.Join(ErrTransport, errors.New("reset"))))
	assert.False(t, IsRetryable(ErrMalformedResponse))
	assert.False(t, IsRetryable(nil))
}

func TestBuildUserPrompt(t *testing.T) {
	req := ResolveRequest{
		Field:     entity.FieldSpec{Name: "cpf", Description: "national ID"},
		FieldType: constants.FieldCPF,
		Label:     "ficha cadastral",
		Snippets:  []string{"a", "b", "c", "d"},
		Excerpt:   strings.Repeat("x", constants.MaxExcerptChars+50),
		Extracted: map[string]string{"nome": "Maria", "cidade": "Recife"},
	}
	p := BuildUserPrompt(req)

	assert.Contains(t, p, "Document type: ficha cadastral")
	assert.Contains(t, p, "Field: cpf (national ID)")
	assert.Contains(t, p, "Expected value type: cpf")
	assert.Contains(t, p, "- c\n")
	assert.NotContains(t, p, "- d\n")
	assert.Less(t, strings.Index(p, "cidade"), strings.Index(p, "nome"))
	assert.NotContains(t, p, strings.Repeat("x", constants.MaxExcerptChars+1))
}

func TestCleanCodeBlock(t *testing.T) {
	assert.Equal(t, `{"a":1}`, CleanCodeBlock("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, CleanCodeBlock(` {"a":1} `))
}
