package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pdf-fields/internal/common"
	"github.com/joseph-ayodele/pdf-fields/internal/llm"
)

// ResolveField implements llm.FieldResolver using chat/completions in JSON mode.
func (c *Client) ResolveField(ctx context.Context, req llm.ResolveRequest) (llm.ResolveResponse, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
		ctx = common.WithRequestID(ctx, rid)
	}
	start := time.Now()

	c.logger.Info("llm.resolve.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"field", req.Field.Name,
		"field_type", req.FieldType,
		"snippets", len(req.Snippets),
		"excerpt_len", len(req.Excerpt),
	)

	schema := llm.BuildAnswerJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": llm.BuildUserPrompt(req) + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	raw, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		c.logger.Error("llm.resolve.http_error",
			"req_id", rid, "field", req.Field.Name, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ResolveResponse{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.resolve.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ResolveResponse{}, fmt.Errorf("%w: decode openai response: %w", llm.ErrMalformedResponse, err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.resolve.no_choices",
			"req_id", rid, "elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ResolveResponse{}, fmt.Errorf("%w: no choices in openai response", llm.ErrMalformedResponse)
	}

	value, content, err := llm.ParseAnswer(cc.Choices[0].Message.Content, c.logger)
	if err != nil {
		c.logger.Warn("llm.resolve.no_value",
			"req_id", rid, "field", req.Field.Name, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ResolveResponse{Raw: content}, err
	}

	c.logger.Info("llm.resolve.ok",
		"req_id", rid,
		"field", req.Field.Name,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return llm.ResolveResponse{Value: value, Raw: content}, nil
}

// post sends body to the API path; rate limits, 5xx and network errors are retried.
func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	return llm.PostJSON(ctx, c.http, url, body, headers, llm.RetryPolicy{
		MaxRetries: c.cfg.MaxRetries,
		Backoff:    c.cfg.RetryBackoff,
	}, c.logger)
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

var _ llm.FieldResolver = (*Client)(nil)
