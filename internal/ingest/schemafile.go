// Package ingest discovers PDFs on disk and pairs them with their extraction schema.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/pdf-fields/internal/entity"
)

// DefaultEntryKey names the schema file entry used for PDFs without their own entry.
const DefaultEntryKey = "*"

// schemaFileSchema describes {"file.pdf": {"label": "...", "extraction_schema": {"field": "desc"}}}.
// "schema" is accepted as an alias of "extraction_schema".
const schemaFileSchema = `{
  "type": "object",
  "minProperties": 1,
  "additionalProperties": {
    "type": "object",
    "properties": {
      "label": {"type": "string"},
      "extraction_schema": {"$ref": "#/definitions/fields"},
      "schema": {"$ref": "#/definitions/fields"}
    },
    "oneOf": [
      {"required": ["extraction_schema"]},
      {"required": ["schema"]}
    ]
  },
  "definitions": {
    "fields": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {"type": "string"}
    }
  }
}`

var compiledSchemaFile = jsonschema.MustCompileString("schema-file.json", schemaFileSchema)

// SchemaEntry is the label and schema of one document.
type SchemaEntry struct {
	Label  string        `json:"label"`
	Schema entity.Schema `json:"extraction_schema"`
}

type rawEntry struct {
	Label            string         `json:"label"`
	ExtractionSchema *entity.Schema `json:"extraction_schema"`
	Schema           *entity.Schema `json:"schema"`
}

// SchemaFile maps PDF file names to their entries.
type SchemaFile struct {
	entries map[string]SchemaEntry
}

// NewSchemaFile builds a schema file holding a single default entry.
func NewSchemaFile(def SchemaEntry) *SchemaFile {
	return &SchemaFile{entries: map[string]SchemaEntry{DefaultEntryKey: def}}
}

func LoadSchemaFile(path string) (*SchemaFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return ParseSchemaFile(data)
}

// ParseSchemaFile validates data against the schema file shape and then against the
// field rules of entity.Schema.
func ParseSchemaFile(data []byte) (*SchemaFile, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode schema file: %w", err)
	}
	if err := compiledSchemaFile.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema file does not match the expected shape: %w", err)
	}

	var raw map[string]rawEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode schema file: %w", err)
	}
	sf := &SchemaFile{entries: make(map[string]SchemaEntry, len(raw))}
	for name, r := range raw {
		s := r.ExtractionSchema
		if s == nil {
			s = r.Schema
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("entry %q: %w", name, err)
		}
		sf.entries[name] = SchemaEntry{Label: r.Label, Schema: *s}
	}
	return sf, nil
}

// Lookup finds the entry for a PDF by base name, falling back to the "*" entry.
func (sf *SchemaFile) Lookup(path string) (SchemaEntry, bool) {
	if e, ok := sf.entries[filepath.Base(path)]; ok {
		return e, true
	}
	e, ok := sf.entries[DefaultEntryKey]
	return e, ok
}

// Names returns the explicit entry names, sorted.
func (sf *SchemaFile) Names() []string {
	out := make([]string, 0, len(sf.entries))
	for name := range sf.entries {
		if name != DefaultEntryKey {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
