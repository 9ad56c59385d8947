package listing

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Layouts accepted for announcement dates.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate parses an announcement date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// CalculateDaysLeft returns the number of calendar days between today's
// local midnight and the end date's local midnight. It is negative iff end
// falls strictly before today.
func CalculateDaysLeft(end, today time.Time) int {
	end = end.In(today.Location())
	a := midnight(today)
	b := midnight(end)
	// Calendar arithmetic through UTC keeps DST transitions out of the count.
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// DaysLeft parses end and calls CalculateDaysLeft.
func DaysLeft(end string, today time.Time) (int, error) {
	t, err := ParseDate(end, today.Location())
	if err != nil {
		return 0, err
	}
	return CalculateDaysLeft(t, today), nil
}

// DeadlineLabel renders a short human label for a days-left value.
func DeadlineLabel(days int) string {
	switch {
	case days < 0:
		return "Closed"
	case days == 0:
		return "Closes today"
	case days == 1:
		return "1 day left"
	}
	return humanize.Comma(int64(days)) + " days left"
}
