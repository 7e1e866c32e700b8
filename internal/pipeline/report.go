package pipeline

import (
	"encoding/json"
	"time"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/entity"
)

// Report is the outcome of one document.
type Report struct {
	Path        string
	Label       string
	Result      entity.ExtractionResult
	Decisions   map[string]entity.Decision
	LLMFields   int // fields routed to the LLM band
	Elapsed     time.Duration
	ContentHash string // set only when a result cache is configured
	Cached      bool
	Err         error
}

func (r Report) Status() constants.DocumentStatus {
	switch {
	case r.Err != nil:
		return constants.DocumentStatusFailed
	case r.Cached:
		return constants.DocumentStatusCached
	default:
		return constants.DocumentStatusOK
	}
}

type reportJSON struct {
	Path        string                     `json:"path"`
	Label       string                     `json:"label,omitempty"`
	Status      constants.DocumentStatus   `json:"status"`
	Result      *entity.ExtractionResult   `json:"result,omitempty"`
	Decisions   map[string]entity.Decision `json:"decisions,omitempty"`
	LLMFields   int                        `json:"llm_fields"`
	ElapsedMS   int64                      `json:"elapsed_ms"`
	ContentHash string                     `json:"content_hash,omitempty"`
	Error       string                     `json:"error,omitempty"`
}

func (r Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		Path:        r.Path,
		Label:       r.Label,
		Status:      r.Status(),
		Decisions:   r.Decisions,
		LLMFields:   r.LLMFields,
		ElapsedMS:   r.Elapsed.Milliseconds(),
		ContentHash: r.ContentHash,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	} else {
		out.Result = &r.Result
	}
	return json.Marshal(out)
}

// cachedOutcome is what the result cache stores for a document.
type cachedOutcome struct {
	Result    entity.ExtractionResult    `json:"result"`
	Decisions map[string]entity.Decision `json:"decisions"`
	LLMFields int                        `json:"llm_fields"`
}
