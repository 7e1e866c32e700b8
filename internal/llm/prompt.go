package llm

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/joseph-ayodele/pdf-fields/constants"
)

// BuildSystemPrompt is the fixed instruction set for single-field extraction.
func BuildSystemPrompt() string {
	return strings.Join([]string{
		"You are a precise document extraction assistant.",
		"Extract exactly one field from the document text you are given.",
		"Return ONLY a JSON object of the form {\"value\": \"...\"} that matches the provided JSON Schema.",
		"Copy the value as it appears in the document and format it according to the field description when possible.",
		"If the field is not present in the document, return {\"value\": null}. Never invent values.",
	}, " ")
}

// BuildUserPrompt packages the field, the document label, the best local candidates,
// already extracted fields and the leading document text.
func BuildUserPrompt(req ResolveRequest) string {
	var b strings.Builder
	if label := strings.TrimSpace(req.Label); label != "" {
		b.WriteString("Document type: ")
		b.WriteString(label)
		b.WriteString("\n")
	}
	b.WriteString("Field: ")
	b.WriteString(req.Field.Name)
	if d := strings.TrimSpace(req.Field.Description); d != "" {
		b.WriteString(" (")
		b.WriteString(d)
		b.WriteString(")")
	}
	b.WriteString("\n")
	if req.FieldType != "" && req.FieldType != constants.FieldText {
		b.WriteString("Expected value type: ")
		b.WriteString(string(req.FieldType))
		b.WriteString("\n")
	}

	if n := min(len(req.Snippets), constants.MaxSnippets); n > 0 {
		b.WriteString("\nCandidate snippets (may be wrong):\n")
		for _, s := range req.Snippets[:n] {
			b.WriteString("- ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}

	if len(req.Extracted) > 0 {
		keys := make([]string, 0, len(req.Extracted))
		for k := range req.Extracted {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		b.WriteString("\nAlready extracted fields:\n")
		for _, k := range keys {
			v, _ := json.Marshal(req.Extracted[k])
			b.WriteString("- ")
			b.WriteString(k)
			b.WriteString(": ")
			b.Write(v)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nDocument text (first ~3k chars):\n")
	b.WriteString(Excerpt(req.Excerpt, constants.MaxExcerptChars))
	return b.String()
}

// Excerpt cuts s to at most n runes.
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
