package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Path is the terminal state a field reached in the decision engine.
type Path string

const (
	PathAccepted    Path = "accepted"
	PathNormalized  Path = "normalized"
	PathLLMResolved Path = "llm_resolved"
	PathUnresolved  Path = "unresolved"
)

// Decision is the final outcome for one field of one document.
type Decision struct {
	Field  FieldSpec `json:"field"`
	Value  *string   `json:"value"`
	Path   Path      `json:"path"`
	Score  float64   `json:"score"`
	Origin string    `json:"origin,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

// ExtractionResult maps field names to values in schema order. A nil value is unresolved.
type ExtractionResult struct {
	names  []string
	values map[string]*string
}

// NewExtractionResult builds the result from decisions; the schema fixes the order.
func NewExtractionResult(schema Schema, decisions map[string]Decision) ExtractionResult {
	r := ExtractionResult{
		names:  schema.Names(),
		values: make(map[string]*string, schema.Len()),
	}
	for _, name := range r.names {
		if d, ok := decisions[name]; ok && d.Value != nil {
			v := *d.Value
			r.values[name] = &v
		} else {
			r.values[name] = nil
		}
	}
	return r
}

func (r ExtractionResult) Names() []string { return append([]string(nil), r.names...) }

func (r ExtractionResult) Len() int { return len(r.names) }

// Get returns the value and whether it was resolved.
func (r ExtractionResult) Get(name string) (string, bool) {
	v := r.values[name]
	if v == nil {
		return "", false
	}
	return *v, true
}

func (r ExtractionResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		if v := r.values[name]; v != nil {
			vb, err := json.Marshal(*v)
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *ExtractionResult) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("extraction result must be a JSON object")
	}
	r.names = nil
	r.values = map[string]*string{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := kt.(string)
		var v *string
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		r.names = append(r.names, name)
		r.values[name] = v
	}
	_, err = dec.Token()
	return err
}
