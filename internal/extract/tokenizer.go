package extract

import (
	"regexp"
	"strings"
	"unicode"

	"sportcal/internal/model"
)

// DefaultMinLineLength is the noise threshold applied when the caller
// does not configure one. OCR output is full of stray one- and
// two-character lines.
const DefaultMinLineLength = 5

var (
	// timeTokenRe matches the displayed clock token that opens a
	// schedule entry line: two-digit hour, h/:/. separator, two-digit
	// minute. Range validation is the resolver's job, not the tokenizer's.
	timeTokenRe = regexp.MustCompile(`^(\d{2}[h:.]\d{2})\b`)

	// fieldSepRe splits the remainder of an entry line into fields:
	// either a pipe (with surrounding space) or a run of two or more
	// whitespace characters. Single spaces stay inside a field.
	fieldSepRe = regexp.MustCompile(`\s*\|\s*|\s{2,}`)
)

// TokenizeStats reports what the tokenizer did with the input block.
type TokenizeStats struct {
	Lines      int // physical lines seen
	Skipped    int // lines discarded as noise
	Candidates int // schedule entries emitted
}

// Tokenizer converts one OCR text block into candidate schedule records.
// It is a small state machine: a line opening with a time token starts a
// new record; any other line is a continuation of the currently open
// record's comment, or noise when no record is open.
type Tokenizer struct {
	// MinLineLength is the minimum trimmed line length; shorter lines
	// are discarded. Zero means DefaultMinLineLength.
	MinLineLength int
}

// Tokenize never fails: a line the grammar cannot place is counted as
// skipped, and malformed input degrades to an empty candidate list.
func (t Tokenizer) Tokenize(text string) ([]model.Candidate, TokenizeStats) {
	minLen := t.MinLineLength
	if minLen <= 0 {
		minLen = DefaultMinLineLength
	}

	var (
		stats      TokenizeStats
		candidates []model.Candidate
		open       = -1 // index of the record accepting continuations
	)

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		stats.Lines++

		if len([]rune(line)) < minLen {
			stats.Skipped++
			continue
		}

		loc := timeTokenRe.FindStringIndex(line)
		if loc == nil {
			// Continuation line: belongs to the open record, if any.
			if open >= 0 {
				candidates[open].AppendComment(line)
			} else {
				stats.Skipped++
			}
			continue
		}

		cand, ok := splitEntry(line[:loc[1]], line[loc[1]:])
		if !ok {
			stats.Skipped++
			continue
		}

		candidates = append(candidates, cand)
		open = len(candidates) - 1
		stats.Candidates++
	}

	return candidates, stats
}

// splitEntry splits the post-time-token remainder of an entry line into
// title, comment and channel. Returns false when the title is missing or
// is OCR noise.
func splitEntry(timeText, rest string) (model.Candidate, bool) {
	fields := fieldSepRe.Split(strings.TrimSpace(rest), 3)

	cand := model.Candidate{TimeText: timeText}
	switch len(fields) {
	case 1:
		cand.Title = fields[0]
	case 2:
		cand.Title = fields[0]
		cand.Channel = fields[1]
	default:
		cand.Title = fields[0]
		cand.Comment = fields[1]
		cand.Channel = fields[2]
	}

	cand.Title = strings.TrimSpace(cand.Title)
	if !plausibleTitle(cand.Title) {
		return model.Candidate{}, false
	}
	return cand, true
}

// plausibleTitle rejects empty titles and the isolated symbols OCR
// emits for table borders and stray marks.
func plausibleTitle(title string) bool {
	if title == "" {
		return false
	}
	runes := []rune(title)
	if len(runes) == 1 {
		r := runes[0]
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
