package discovery

import (
	"regexp"
	"strings"
	"time"
)

// dateLayouts are tried in order. Day-first wins over month-first for
// ambiguous numeric dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2/1/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
	regexp.MustCompile(`\d{2}/\d{2}/\d{4}`),
	regexp.MustCompile(`[A-Za-z]+ \d{1,2}, \d{4}`),
}

// ParseDate parses a date from scraped text. When the whole text is not a
// date, the first date-like substring is tried. Returns nil when nothing
// parses.
func ParseDate(text string) *time.Time {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	if t, ok := parseLayouts(text); ok {
		return &t
	}

	for _, re := range datePatterns {
		if m := re.FindString(text); m != "" {
			if t, ok := parseLayouts(m); ok {
				return &t
			}
		}
	}

	return nil
}

func parseLayouts(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
