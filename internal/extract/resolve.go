package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidTime marks a clock token that does not parse after separator
// normalization or whose hour/minute are out of range. Callers discard
// the one candidate on this error; it never aborts a batch.
var ErrInvalidTime = errors.New("invalid time token")

var (
	clockRe = regexp.MustCompile(`^(\d{2})[h:.](\d{2})$`)
	dateRe  = regexp.MustCompile(`\b(\d{2})/(\d{2})/(\d{4})\b`)
)

// ParseClock parses a displayed clock token ("06h00", "06:00", "06.00")
// into hour and minute. The three separators are interchangeable.
func ParseClock(token string) (hour, minute int, err error) {
	m := clockRe.FindStringSubmatch(token)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, token)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, token)
	}
	return hour, minute, nil
}

// FindDate scans an OCR blob for an explicit DD/MM/YYYY date and returns
// it as midnight in loc. Schedule images usually carry the date in a
// header line; when absent the acquisition day is used instead.
func FindDate(text string, loc *time.Location) (time.Time, bool) {
	for _, m := range dateRe.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])

		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
		// time.Date normalizes out-of-range components (32/01 becomes
		// 01/02); reject any token that did not survive round-tripping.
		if d.Day() != day || int(d.Month()) != month || d.Year() != year {
			continue
		}
		return d, true
	}
	return time.Time{}, false
}

// Resolve converts a displayed clock token into an absolute UTC instant.
// The wall clock is interpreted on date (midnight in the configured
// zone) when non-zero, otherwise on now's date in that zone.
func Resolve(token string, date time.Time, now time.Time, loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseClock(token)
	if err != nil {
		return time.Time{}, err
	}

	var year int
	var month time.Month
	var day int
	if date.IsZero() {
		year, month, day = now.In(loc).Date()
	} else {
		year, month, day = date.In(loc).Date()
	}

	return time.Date(year, month, day, hour, minute, 0, 0, loc).UTC(), nil
}
