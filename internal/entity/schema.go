package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FieldSpec is one schema entry: the field name and its natural-language description.
type FieldSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Schema is the ordered list of fields to extract from a document.
// Its JSON form is an object {name: description}; key order is preserved.
type Schema struct {
	Fields []FieldSpec
}

// NewSchema builds a Schema from alternating name/description pairs.
func NewSchema(pairs ...string) Schema {
	var s Schema
	for i := 0; i+1 < len(pairs); i += 2 {
		s.Fields = append(s.Fields, FieldSpec{Name: pairs[i], Description: pairs[i+1]})
	}
	return s
}

func (s Schema) Len() int { return len(s.Fields) }

// Names returns the field names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Validate rejects empty schemas, blank names and duplicate names.
func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return errors.New("schema has no fields")
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for i, f := range s.Fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return fmt.Errorf("field %d has an empty name", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate field %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Fingerprint is a stable textual form of the schema used in cache keys.
func (s Schema) Fingerprint() string {
	var b strings.Builder
	for _, f := range s.Fields {
		b.WriteString(f.Name)
		b.WriteByte(0)
		b.WriteString(f.Description)
		b.WriteByte(0)
	}
	return b.String()
}

func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Description)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		s.Fields = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("schema must be a JSON object of field name to description")
	}
	var fields []FieldSpec
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := kt.(string)
		var desc string
		if err := dec.Decode(&desc); err != nil {
			return fmt.Errorf("field %q: description must be a string: %w", name, err)
		}
		fields = append(fields, FieldSpec{Name: name, Description: desc})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	s.Fields = fields
	return nil
}
