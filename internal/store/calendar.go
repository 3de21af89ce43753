package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	ical "github.com/arran4/golang-ical"

	appLog "sportcal/internal/log"
	"sportcal/internal/model"
)

// generatedTimeProp is the non-standard metadata line recording when the
// calendar was last written. It sits inside VCALENDAR, just before the
// closing tag, where iCalendar consumers ignore unknown X- properties.
const generatedTimeProp = "X-GENERATED-TIME"

// decodeCalendar parses a persisted ICS payload back into events.
// Individual VEVENTs that lack a UID or a parsable DTSTART are logged
// and skipped; only a payload the parser rejects outright is an error.
func decodeCalendar(data []byte) ([]model.Event, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty calendar payload")
	}

	cal, err := ical.ParseCalendarWithOptions(bytes.NewReader(data),
		ical.WithUnknownPropertyHandler(ical.AcceptUnknownPropertyHandler))
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		ev, err := decodeVEvent(ve)
		if err != nil {
			appLog.Warn("skipping stored event", "reason", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func decodeVEvent(ve *ical.VEvent) (model.Event, error) {
	var out model.Event

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, errors.New("missing or invalid DTSTART")
	}
	out.Start = start.UTC()

	// DTEND carries the duration; a VEVENT without one round-trips as a
	// zero-duration event rather than being dropped.
	if end, err := ve.GetEndAt(); err == nil && end.After(start) {
		out.Duration = end.Sub(start)
	}

	return out, nil
}

// encodeCalendar renders events into the persisted ICS form: one VEVENT
// per event carrying UID, SUMMARY, DTSTART, DTEND and DESCRIPTION, plus
// the X-GENERATED-TIME trailer. Every output line is sanitized to strip
// emoji and other symbols OCR sneaks into titles.
func encodeCalendar(events []model.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)

	for _, ev := range events {
		ve := cal.AddEvent(ev.UID)
		ve.SetDtStampTime(now.UTC())
		ve.SetStartAt(ev.Start.UTC())
		ve.SetEndAt(ev.End().UTC())
		ve.SetSummary(ev.Summary)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
	}

	serialized := cal.Serialize(ical.WithNewLineWindows)

	lines := strings.Split(serialized, "\r\n")
	out := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		if line == "END:VCALENDAR" {
			out = append(out, generatedTimeProp+":"+now.UTC().Format(time.RFC3339))
		}
		if line == "" {
			continue
		}
		out = append(out, sanitizeLine(line))
	}
	return strings.Join(out, "\r\n") + "\r\n"
}

// sanitizeLine drops emoji, pictographs and control characters while
// keeping letters in any script; accented Portuguese titles must survive
// the round trip.
func sanitizeLine(line string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20:
			return -1
		case r < 0x7f:
			return r
		case unicode.IsLetter(r) || unicode.IsMark(r):
			return r
		default:
			return -1
		}
	}, line)
}

func ensureParentDir(path string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
