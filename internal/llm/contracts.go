package llm

import (
	"context"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/entity"
)

// ResolveRequest is the context sent to the model for one unresolved field.
type ResolveRequest struct {
	Field     entity.FieldSpec
	FieldType constants.FieldType
	Label     string   // document type, e.g. "ficha cadastral"
	Snippets  []string // best local candidates, highest score first
	Excerpt   string   // leading document text
	Extracted map[string]string
}

// ResolveResponse carries the answer and the validated JSON it came from.
type ResolveResponse struct {
	Value string
	Raw   []byte
}

// FieldResolver is the fallback the decision engine depends on.
type FieldResolver interface {
	ResolveField(ctx context.Context, req ResolveRequest) (ResolveResponse, error)
}
