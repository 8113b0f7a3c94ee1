package leagues

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseError reports a schedule row whose date or time could not be read.
type ParseError struct {
	Date  string
	Clock string
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unrecognised kickoff %q %q: %s", e.Date, e.Clock, e.Msg)
}

// ParseKickoff combines a date bar and a fixture clock into a kickoff time in loc.
//
// Accepted dates are "TODAY", "TOMORROW" and "[Weekday] Month Day, Year" with a short or
// long month name; the weekday is ignored. The clock is "HH:MM" in 24-hour form.
func ParseKickoff(date, clock string, now time.Time, loc *time.Location) (time.Time, error) {
	fail := func(msg string) (time.Time, error) {
		return time.Time{}, &ParseError{Date: date, Clock: clock, Msg: msg}
	}

	today := now.In(loc)
	var year int
	var month time.Month
	var day int

	upper := strings.ToUpper(strings.TrimSpace(date))
	switch {
	case strings.Contains(upper, "TODAY"):
		year, month, day = today.Date()
	case strings.Contains(upper, "TOMORROW"):
		year, month, day = today.AddDate(0, 0, 1).Date()
	case strings.Contains(upper, ","):
		parts := strings.Split(upper, ",")
		tokens := strings.Fields(parts[len(parts)-2])
		if len(tokens) == 3 {
			tokens = tokens[1:]
		}
		if len(tokens) != 2 {
			return fail("expected month and day")
		}
		m, ok := parseMonth(tokens[0])
		if !ok {
			return fail("unknown month " + tokens[0])
		}
		d, err := strconv.Atoi(tokens[1])
		if err != nil || d < 1 || d > 31 {
			return fail("bad day " + tokens[1])
		}
		y, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
		if err != nil {
			return fail("bad year")
		}
		year, month, day = y, m, d
	default:
		return fail("unsupported date format")
	}

	t, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return fail("bad time")
	}

	kickoff := time.Date(year, month, day, t.Hour(), t.Minute(), 0, 0, loc)
	if kickoff.Day() != day {
		return fail("day out of range for month")
	}
	return kickoff, nil
}

func parseMonth(token string) (time.Month, bool) {
	if len(token) < 3 {
		return 0, false
	}
	for m := time.January; m <= time.December; m++ {
		name := strings.ToUpper(m.String())
		if token == name || token == name[:3] {
			return m, true
		}
	}
	return 0, false
}
