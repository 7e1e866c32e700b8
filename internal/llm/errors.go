package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized      = errors.New("llm: unauthorized")
	ErrRateLimited       = errors.New("llm: rate limited")
	ErrTransport         = errors.New("llm: transport error")
	ErrMalformedResponse = errors.New("llm: malformed response")
	ErrNoAnswer          = errors.New("llm: no answer")
)

// APIError is a non-2xx reply from the provider.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

// NewAPIError extracts the provider message from an OpenAI-style error body when present.
func NewAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Body: body}
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error.Message != "" {
		e.Message = payload.Error.Message
	} else {
		e.Message = strings.TrimSpace(truncate(string(body), 256))
	}
	return e
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm api status %d", e.StatusCode)
	}
	return fmt.Sprintf("llm api status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrTransport
	}
}

// Retryable reports whether the request may succeed when sent again.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable is true for rate limits, 5xx and network failures; never for
// cancellation of the caller's context.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return errors.Is(err, ErrTransport)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
