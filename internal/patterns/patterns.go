// Package patterns is the per field type regex library shared by candidate
// generation and validation.
package patterns

import (
	"regexp"

	"github.com/joseph-ayodele/pdf-fields/constants"
)

const ufAlt = `AC|AL|AP|AM|BA|CE|DF|ES|GO|MA|MT|MS|MG|PA|PB|PR|PE|PI|RJ|RN|RS|RO|RR|SC|SP|SE|TO`

const streetTypes = `rua|avenida|av\.?|travessa|alameda|rodovia|rod\.?|estrada|praça|praca|largo`

// Match is one regex hit. Value is the "v" capture group when the pattern has one,
// otherwise the whole match.
type Match struct {
	Value string
	Start int
	End   int
}

var library = map[constants.FieldType][]*regexp.Regexp{
	constants.FieldCPF:   {regexp.MustCompile(`\d{3}\.?\d{3}\.?\d{3}-?\d{2}`)},
	constants.FieldCNPJ:  {regexp.MustCompile(`\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}`)},
	constants.FieldEmail: {regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)},
	constants.FieldPhone: {regexp.MustCompile(`\(?\d{2}\)?\s?\d{4,5}-?\d{4}`)},
	constants.FieldCEP:   {regexp.MustCompile(`\b\d{5}-?\d{3}\b`)},
	constants.FieldUF:    {regexp.MustCompile(`\b(?:` + ufAlt + `)\b`)},
	constants.FieldCity: {
		regexp.MustCompile(`(?P<v>[A-Za-zÀ-ÿ]+(?:\s+[A-Za-zÀ-ÿ]+)*)\s*[,\-]\s*(?:` + ufAlt + `)\b`),
	},
	constants.FieldAddress: {
		regexp.MustCompile(`(?i)(?P<v>\b(?:` + streetTypes + `)\s+[\p{L}\d.\- ]+?\s*,?\s*\d+[\p{L}\d\-/]*)`),
	},
	constants.FieldDate: {
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{2,4}\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	},
	constants.FieldCurrency: {
		regexp.MustCompile(`R\$\s?\d{1,3}(?:\.\d{3})*,\d{2}`),
		regexp.MustCompile(`R\$\s?\d+[.,]\d{2}`),
	},
	constants.FieldNumber: {regexp.MustCompile(`\d+`)},
}

// full-value shapes used by validation; a value matching one of these is a regex signal
// even when it was found by another strategy.
var shapes = map[constants.FieldType][]*regexp.Regexp{
	constants.FieldCPF:      {regexp.MustCompile(`^\d{3}\.?\d{3}\.?\d{3}-?\d{2}$`)},
	constants.FieldCNPJ:     {regexp.MustCompile(`^\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}$`)},
	constants.FieldEmail:    {regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)},
	constants.FieldPhone:    {regexp.MustCompile(`^(?:\+?55\s?)?\(?\d{2}\)?\s?\d{4,5}-?\d{4}$`)},
	constants.FieldCEP:      {regexp.MustCompile(`^\d{5}-?\d{3}$`)},
	constants.FieldUF:       {regexp.MustCompile(`^(?:` + ufAlt + `)$`)},
	constants.FieldCity:     {regexp.MustCompile(`^[A-Za-zÀ-ÿ]+(?:[\s'\-][A-Za-zÀ-ÿ]+)*$`)},
	constants.FieldAddress:  {regexp.MustCompile(`(?i)^(?:` + streetTypes + `)\s+.+\d+`)},
	constants.FieldDate:     {regexp.MustCompile(`^\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}$`), regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)},
	constants.FieldCurrency: {regexp.MustCompile(`^(?:R\$\s?)?\d{1,3}(?:\.\d{3})*,\d{2}$`), regexp.MustCompile(`^(?:R\$\s?)?\d+[.,]\d{2}$`)},
	constants.FieldNumber:   {regexp.MustCompile(`^\d+$`)},
}

// Find runs every pattern of ft against text in library order. A hit inside the span of
// an earlier hit is dropped. Text fields have no patterns.
func Find(ft constants.FieldType, text string) []Match {
	var out []Match
	for _, re := range library[ft] {
		vi := re.SubexpIndex("v")
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if vi > 0 && loc[2*vi] >= 0 {
				start, end = loc[2*vi], loc[2*vi+1]
			}
			if covered(out, start, end) {
				continue
			}
			out = append(out, Match{Value: text[start:end], Start: start, End: end})
		}
	}
	return out
}

func covered(ms []Match, start, end int) bool {
	for _, m := range ms {
		if start >= m.Start && end <= m.End {
			return true
		}
	}
	return false
}

// FullMatch reports whether the whole value has the shape of ft.
func FullMatch(ft constants.FieldType, value string) bool {
	for _, re := range shapes[ft] {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

// HasPatterns is false for types matched only semantically or positionally.
func HasPatterns(ft constants.FieldType) bool { return len(library[ft]) > 0 }
