// Package parse normalizes user-supplied request values.
package parse

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	spaceRe   = regexp.MustCompile(`\s+`)
	minutesRe = regexp.MustCompile(`^\d+$`)
	clockRe   = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

const maxMinutes = math.MaxInt64 / int64(time.Minute)

// dobLayouts are the accepted date of birth spellings, tried in order.
var dobLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// Name trims a person's name and collapses inner whitespace.
func Name(raw string) (string, error) {
	s := strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
	if s == "" {
		return "", fmt.Errorf("name is empty")
	}
	return s, nil
}

// DOB parses a date of birth in one of the common layouts and returns it as YYYY-MM-DD.
func DOB(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unable to parse date of birth: %q", raw)
}

// Duration accepts a Go duration ("30m", "1h") or a bare number of minutes ("45").
func Duration(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if minutesRe.MatchString(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n > maxMinutes {
			return 0, fmt.Errorf("unable to parse duration: %q", raw)
		}
		return time.Duration(n) * time.Minute, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("unable to parse duration: %q", raw)
	}
	return d, nil
}

// Clock parses "HH:MM" into an offset from midnight.
func Clock(raw string) (time.Duration, error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, fmt.Errorf("unable to parse clock time: %q", raw)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if h > 24 || mm > 59 || (h == 24 && mm != 0) {
		return 0, fmt.Errorf("clock time out of range: %q", raw)
	}
	return time.Duration(h)*time.Hour + time.Duration(mm)*time.Minute, nil
}
