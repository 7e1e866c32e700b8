package utils

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ErrNoDate = errors.New("no date found")

var months = map[string]time.Month{
	"janeiro": time.January, "fevereiro": time.February, "marco": time.March, "abril": time.April,
	"maio": time.May, "junho": time.June, "julho": time.July, "agosto": time.August,
	"setembro": time.September, "outubro": time.October, "novembro": time.November, "dezembro": time.December,
	"jan": time.January, "fev": time.February, "mar": time.March, "abr": time.April,
	"mai": time.May, "jun": time.June, "jul": time.July, "ago": time.August,
	"set": time.September, "out": time.October, "nov": time.November, "dez": time.December,
	"january": time.January, "february": time.February, "march": time.March, "april": time.April,
	"may": time.May, "june": time.June, "july": time.July, "august": time.August,
	"september": time.September, "october": time.October, "november": time.November, "december": time.December,
	"feb": time.February, "apr": time.April, "aug": time.August, "sep": time.September,
	"sept": time.September, "oct": time.October, "dec": time.December,
}

var (
	reISODate     = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	reNumericDate = regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{2,4})\b`)
	// 1 de janeiro de 1990, 1º de jan. de 1990, 01 janeiro 1990
	rePtDate = regexp.MustCompile(`\b(\d{1,2})º?\s*(?:de\s+)?([a-z]{3,9})\.?\s*(?:de\s+)?(\d{4})\b`)
	// January 1, 1990 / Jan 1st 1990
	reEnDate = regexp.MustCompile(`\b([a-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
)

// ParseDate finds the first date in s: ISO (YYYY-MM-DD), numeric day-first
// (DD/MM/YYYY, DD-MM-YY, DD.MM.YYYY) or a long Portuguese or English date.
// Two-digit years up to 50 are 20xx, the rest 19xx. Invalid calendar days are rejected.
func ParseDate(s string) (time.Time, error) {
	if m := reISODate.FindStringSubmatch(s); m != nil {
		return makeDate(m[1], m[2], m[3])
	}
	if m := reNumericDate.FindStringSubmatch(s); m != nil {
		return makeDate(m[3], m[2], m[1])
	}
	folded := foldLower(s)
	for _, m := range rePtDate.FindAllStringSubmatch(folded, -1) {
		if mon, ok := months[m[2]]; ok {
			return makeDate(m[3], strconv.Itoa(int(mon)), m[1])
		}
	}
	for _, m := range reEnDate.FindAllStringSubmatch(folded, -1) {
		if mon, ok := months[m[1]]; ok {
			return makeDate(m[3], strconv.Itoa(int(mon)), m[2])
		}
	}
	return time.Time{}, ErrNoDate
}

// FormatDMY renders t as DD/MM/YYYY.
func FormatDMY(t time.Time) string { return t.Format("02/01/2006") }

// ParseYMD parses an ISO calendar date at midnight UTC.
func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func makeDate(ys, ms, ds string) (time.Time, error) {
	y, err1 := strconv.Atoi(ys)
	m, err2 := strconv.Atoi(ms)
	d, err3 := strconv.Atoi(ds)
	if err := errors.Join(err1, err2, err3); err != nil {
		return time.Time{}, err
	}
	if len(ys) <= 2 {
		if y <= 50 {
			y += 2000
		} else {
			y += 1900
		}
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, ErrNoDate
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, ErrNoDate
	}
	return t, nil
}

func foldLower(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
