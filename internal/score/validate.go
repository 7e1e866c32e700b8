package score

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/preprocess"
	"github.com/joseph-ayodele/pdf-fields/internal/utils"
)

var (
	reCEPToken   = regexp.MustCompile(`\b\d{5}-?\d{3}\b`)
	reStreetNum  = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:rua|avenida|av\.?|travessa|alameda|rodovia|rod\.?|estrada|praça|praca|largo)\s.*\d`)
	reDecimal    = regexp.MustCompile(`\d+[.,]\d{2}\b`)
	reLabelStrip = regexp.MustCompile(`^[^:]{1,40}:\s*`)
)

// Validate reports whether value has the shape expected for ft.
func Validate(ft constants.FieldType, value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return false
	}
	switch ft {
	case constants.FieldCPF:
		return len(utils.Digits(v)) == 11
	case constants.FieldCNPJ:
		return len(utils.Digits(v)) == 14
	case constants.FieldCEP:
		return reCEPToken.MatchString(v)
	case constants.FieldUF:
		return UFCode(v) != ""
	case constants.FieldCity:
		return isCityName(reLabelStrip.ReplaceAllString(v, ""))
	case constants.FieldAddress:
		return reStreetNum.MatchString(v)
	case constants.FieldEmail:
		at := strings.LastIndexByte(v, '@')
		return at > 0 && strings.Contains(v[at+1:], ".")
	case constants.FieldDate:
		_, err := utils.ParseDate(v)
		return err == nil
	case constants.FieldPhone:
		d := utils.Digits(v)
		if len(d) > 11 && strings.HasPrefix(d, "55") {
			d = d[2:]
		}
		return len(d) == 10 || len(d) == 11
	case constants.FieldCurrency:
		return reDecimal.MatchString(v)
	case constants.FieldNumber:
		return strings.IndexFunc(v, unicode.IsDigit) >= 0
	default:
		return true
	}
}

// UFCode maps a two-letter code or a state name to its code; "" when unknown.
func UFCode(v string) string {
	v = strings.TrimSpace(reLabelStrip.ReplaceAllString(strings.TrimSpace(v), ""))
	if code := strings.ToUpper(v); len(code) == 2 {
		if _, ok := constants.UFCodes[code]; ok {
			return code
		}
	}
	if code, ok := constants.StateNames[preprocess.Fold(v)]; ok {
		return code
	}
	return ""
}

func isCityName(v string) bool {
	letters := 0
	for _, r := range v {
		switch {
		case unicode.IsLetter(r):
			letters++
		case r == ' ' || r == '-' || r == '\'' || r == '.':
		default:
			return false
		}
	}
	return letters >= 3
}
