package model

import (
	"strings"
	"time"
	"unicode"
)

// Candidate is a provisionally parsed schedule record extracted from one
// OCR line. It has not been time-resolved or classified yet; only
// TimeText and Title are guaranteed non-empty.
type Candidate struct {
	TimeText string // displayed wall-clock token, e.g. "06h00"
	Title    string
	Comment  string // free text; continuation lines accumulate here
	Channel  string
}

// AppendComment adds continuation-line text to the candidate's comment.
func (c *Candidate) AppendComment(text string) {
	if c.Comment == "" {
		c.Comment = text
		return
	}
	c.Comment += " | " + text
}

// Event is a fully resolved, deduplicatable schedule entry. Events are
// immutable after construction; the store only inserts or discards them.
type Event struct {
	UID         string
	Summary     string
	Start       time.Time // absolute instant, UTC
	Duration    time.Duration
	Description string
}

// End returns the event's end instant.
func (e Event) End() time.Time {
	return e.Start.Add(e.Duration)
}

// EventUID derives the deterministic identity key for an event: a slug
// of the title plus the day (in UTC) the event starts on. Re-running
// extraction over the same source day yields the same UID, which is what
// makes cross-run deduplication work.
func EventUID(title string, start time.Time) string {
	return Slug(title) + "-" + start.UTC().Format("20060102") + "@sportcal"
}

// Slug lowercases s and collapses every run of non-alphanumeric runes
// into a single hyphen. Accented letters are kept: they are significant
// in Portuguese titles and stable across runs of the same OCR output.
func Slug(s string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if hyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			hyphen = false
			b.WriteRune(r)
		} else {
			hyphen = true
		}
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}
