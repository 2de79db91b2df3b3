package extractor

import (
	"regexp"
	"strings"
	"time"

	"github.com/IshaanNene/radarbr/internal/types"
)

var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.RFC822Z,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006 15h04",
	"02/01/2006",
	"02.01.2006",
	"2006/01/02",
}

var (
	dateTokenRe = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}(\s+\d{1,2}[h:]\d{2})?`)
	brTimeRe    = regexp.MustCompile(`(?i)(\d{1,2})\s*h\s*(\d{2})`)
)

// NormalizeDate parses common publisher date strings. Zone-less dates are
// read as Brasília time. It returns RFC 3339, or the trimmed input when no
// layout matches.
func NormalizeDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return strings.TrimSpace(s)
	}
	return t.Format(time.RFC3339)
}

// ParseDate tries the known layouts against s and against the first
// dd/mm/yyyy token found inside it.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	candidates := []string{s}
	if tok := dateTokenRe.FindString(s); tok != "" && tok != s {
		candidates = append(candidates, tok)
	}
	for _, c := range candidates {
		c = brTimeRe.ReplaceAllString(c, "${1}h${2}")
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, c, types.Brasilia); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
