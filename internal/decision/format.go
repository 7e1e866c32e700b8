package decision

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/patterns"
	"github.com/joseph-ayodele/pdf-fields/internal/preprocess"
	"github.com/joseph-ayodele/pdf-fields/internal/score"
	"github.com/joseph-ayodele/pdf-fields/internal/utils"
)

var (
	reLabelPrefix = regexp.MustCompile(`^[^:\d]{1,40}:\s*`)
	reAmount      = regexp.MustCompile(`\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{2})?|\d+(?:[.,]\d{1,2})?`)
)

type formatter func(raw string) (string, bool)

var formatters = map[constants.FieldType]formatter{
	constants.FieldCPF:      digitMask(11, "###.###.###-##"),
	constants.FieldCNPJ:     digitMask(14, "##.###.###/####-##"),
	constants.FieldCEP:      formatCEP,
	constants.FieldUF:       formatUF,
	constants.FieldPhone:    formatPhone,
	constants.FieldDate:     formatDate,
	constants.FieldEmail:    formatEmail,
	constants.FieldCurrency: formatCurrency,
	constants.FieldNumber:   formatNumber,
}

// Format applies the canonical shape of ft to raw. City, address and free text only lose
// a leading "Label:" prefix and extra whitespace; any value a formatter does not
// recognize falls back to that same cleanup.
func Format(ft constants.FieldType, raw string) string {
	if f, ok := formatters[ft]; ok {
		if v, ok := f(raw); ok {
			return v
		}
	}
	return cleanText(raw)
}

func cleanText(raw string) string {
	return preprocess.CollapseSpace(reLabelPrefix.ReplaceAllString(preprocess.CollapseSpace(raw), ""))
}

func digitMask(n int, mask string) formatter {
	return func(raw string) (string, bool) {
		d := utils.Digits(raw)
		if len(d) != n {
			return "", false
		}
		var b strings.Builder
		i := 0
		for _, r := range mask {
			if r == '#' {
				b.WriteByte(d[i])
				i++
				continue
			}
			b.WriteRune(r)
		}
		return b.String(), true
	}
}

func formatCEP(raw string) (string, bool) {
	ms := patterns.Find(constants.FieldCEP, raw)
	if len(ms) == 0 {
		return "", false
	}
	d := utils.Digits(ms[0].Value)
	return d[:5] + "-" + d[5:], true
}

func formatUF(raw string) (string, bool) {
	if code := score.UFCode(cleanText(raw)); code != "" {
		return code, true
	}
	if ms := patterns.Find(constants.FieldUF, raw); len(ms) > 0 {
		return ms[len(ms)-1].Value, true
	}
	return "", false
}

func formatPhone(raw string) (string, bool) {
	d := utils.Digits(raw)
	if len(d) > 11 && strings.HasPrefix(d, "55") {
		d = d[2:]
	}
	switch len(d) {
	case 11:
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:], true
	case 10:
		return "(" + d[:2] + ") " + d[2:6] + "-" + d[6:], true
	}
	return "", false
}

func formatDate(raw string) (string, bool) {
	t, err := utils.ParseDate(raw)
	if err != nil {
		return "", false
	}
	return utils.FormatDMY(t), true
}

func formatEmail(raw string) (string, bool) {
	if ms := patterns.Find(constants.FieldEmail, raw); len(ms) > 0 {
		return strings.ToLower(ms[0].Value), true
	}
	return "", false
}

func formatNumber(raw string) (string, bool) {
	d := utils.Digits(raw)
	return d, d != ""
}

// formatCurrency renders the first amount as "R$ 1.234,56". When both separators appear
// the last one is the decimal separator; a lone separator followed by exactly two digits
// is decimal, otherwise it groups thousands.
func formatCurrency(raw string) (string, bool) {
	m := reAmount.FindString(raw)
	if m == "" {
		return "", false
	}
	intPart, frac := m, "00"
	if i := strings.LastIndexAny(m, ".,"); i >= 0 {
		tail := m[i+1:]
		bothSeps := strings.Contains(m, ".") && strings.Contains(m, ",")
		if bothSeps || len(tail) <= 2 {
			intPart, frac = m[:i], tail
			if len(frac) == 1 {
				frac += "0"
			}
		}
	}
	intPart = utils.Digits(intPart)
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return "", false
	}
	return "R$ " + groupThousands(n) + "," + frac, true
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}
