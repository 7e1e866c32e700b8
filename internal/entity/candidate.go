package entity

// Origin tags the strategy that produced a Candidate.
type Origin int

const (
	OriginRegex Origin = iota
	OriginSemantic
	OriginPositional
)

func (o Origin) String() string {
	switch o {
	case OriginRegex:
		return "regex"
	case OriginSemantic:
		return "semantic"
	case OriginPositional:
		return "positional"
	default:
		return "unknown"
	}
}

func (o Origin) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Candidate is a proposed raw value for a field.
type Candidate struct {
	Field          FieldSpec `json:"field"`
	RawValue       string    `json:"raw_value"`
	SourceBlockIDs []int     `json:"source_block_ids"`
	GroupID        int       `json:"group_id"`
	Origin         Origin    `json:"origin"`
	// Similarity of the source group to the field query, for every origin.
	Similarity float64 `json:"similarity"`
	// LabelDistance is the normalized distance to the nearest matching label; 1 means none.
	LabelDistance float64 `json:"label_distance"`
}

// ScoredCandidate is a Candidate with its combined confidence and the signals behind it.
type ScoredCandidate struct {
	Candidate
	Score            float64 `json:"score"`
	RegexSignal      bool    `json:"regex_signal"`
	EmbeddedMatch    bool    `json:"embedded_match,omitempty"` // a typed value inside longer text
	SemanticSignal   float64 `json:"semantic_signal"`
	PositionalSignal float64 `json:"positional_signal"`
	ValidationPassed bool    `json:"validation_passed"`
}
