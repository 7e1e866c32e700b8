package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestAppErrorChain(t *testing.T) {
	err := fmt.Errorf("setup: %w", NewAppError("CACHE_ERROR", "open result cache", ErrDatabase))

	assert.Equal(t, "CACHE_ERROR", ErrorCode(err))
	assert.ErrorIs(t, err, ErrDatabase)
	assert.EqualError(t, err, "setup: CACHE_ERROR: open result cache: database error")
	assert.Equal(t, "", ErrorCode(errors.New("plain")))
}

func TestGRPCErrorHelpers(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
		msg  string
	}{
		{InvalidArgumentError("pdf_path is required"), codes.InvalidArgument, "pdf_path is required"},
		{NotFoundError("missing.pdf"), codes.NotFound, "missing.pdf"},
		{FailedPreconditionError("no text layer"), codes.FailedPrecondition, "no text layer"},
		{InternalErrorf("encode response: %v", "boom"), codes.Internal, "encode response: boom"},
	}
	for _, tt := range tests {
		st, ok := status.FromError(tt.err)
		assert.True(t, ok)
		assert.Equal(t, tt.code, st.Code())
		assert.Equal(t, tt.msg, st.Message())
	}
}
