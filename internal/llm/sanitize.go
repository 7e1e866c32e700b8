package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// CleanCodeBlock strips a surrounding markdown code fence (``` or ```json).
func CleanCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// CoerceAnswer is the lenient pass: it keeps only the "value" key, turns numbers and
// booleans into strings, and maps "", "null" and "n/a" to null.
func CoerceAnswer(raw []byte) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("coerce: decode: %w", err)
	}
	var out any
	switch t := m["value"].(type) {
	case nil:
	case string:
		s := strings.TrimSpace(t)
		switch strings.ToLower(s) {
		case "", "null", "none", "n/a":
		default:
			out = s
		}
	case float64:
		out = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		out = strconv.FormatBool(t)
	default:
		return nil, fmt.Errorf("coerce: unsupported value type %T", t)
	}
	return json.Marshal(map[string]any{"value": out})
}

// ParseAnswer validates a model reply and returns the answer value. A reply that fails
// the answer schema gets one lenient pass before it is rejected.
func ParseAnswer(content string, logger *slog.Logger) (string, []byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	raw := []byte(CleanCodeBlock(content))
	schema := BuildAnswerJSONSchema()

	if err := ValidateJSONAgainstSchema(schema, raw); err != nil {
		cleaned, cErr := CoerceAnswer(raw)
		if cErr != nil {
			return "", raw, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			return "", raw, fmt.Errorf("%w: %w", ErrMalformedResponse, vErr)
		}
		logger.Debug("llm.answer.lenient_applied", "original", truncate(string(raw), 200))
		raw = cleaned
	}

	var ans struct {
		Value *string `json:"value"`
	}
	if err := json.Unmarshal(raw, &ans); err != nil {
		return "", raw, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if ans.Value == nil || strings.TrimSpace(*ans.Value) == "" {
		return "", raw, ErrNoAnswer
	}
	return strings.TrimSpace(*ans.Value), raw, nil
}
