package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sportcal/internal/config"
	"sportcal/internal/extract"
	"sportcal/internal/fetch"
	appLog "sportcal/internal/log"
	"sportcal/internal/model"
	"sportcal/internal/store"
)

// Report summarizes one run. Every recoverable condition surfaces here
// as a count; only acquisition failure and store write failure make the
// run itself fail.
type Report struct {
	Lines        int
	SkippedLines int
	Candidates   int
	InvalidTimes int
	Added        int
	Expired      int
	StoreSize    int
}

// Runner wires the extraction pipeline end to end: acquire text,
// tokenize, resolve and classify candidates, then merge into the rolling
// calendar store. Strictly sequential; the store is loaded once at the
// start and written once at the end.
type Runner struct {
	Config *config.Config
	Source fetch.Source

	// Now is swapped out in tests; defaults to time.Now.
	Now func() time.Time
}

func (r *Runner) Run(ctx context.Context) (Report, error) {
	var rep Report

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	loc, err := r.Config.Location()
	if err != nil {
		return rep, fmt.Errorf("resolve timezone %q: %w", r.Config.Timezone, err)
	}

	text, err := r.Source.Text(ctx)
	if err != nil {
		return rep, err
	}

	tok := extract.Tokenizer{MinLineLength: r.Config.MinLineLength}
	candidates, stats := tok.Tokenize(text)
	rep.Lines = stats.Lines
	rep.SkippedLines = stats.Skipped
	rep.Candidates = stats.Candidates

	// One explicit date in the image header governs the whole block;
	// without it, every entry lands on the acquisition day.
	runNow := now()
	scheduleDate, hasDate := extract.FindDate(text, loc)
	if hasDate {
		appLog.Debug("explicit schedule date found", "date", scheduleDate.Format("2006-01-02"))
	}

	classifier := extract.NewClassifier(r.Config.Keywords)

	events := make([]model.Event, 0, len(candidates))
	for _, cand := range candidates {
		start, err := extract.Resolve(cand.TimeText, scheduleDate, runNow, loc)
		if err != nil {
			rep.InvalidTimes++
			appLog.Warn("discarding candidate with unresolvable time",
				"time_text", cand.TimeText, "title", cand.Title)
			continue
		}

		categories := classifier.Categories(cand.Title + " " + cand.Comment)

		events = append(events, model.Event{
			UID:         model.EventUID(cand.Title, start),
			Summary:     cand.Title,
			Start:       start,
			Duration:    r.Config.EventDuration(),
			Description: buildDescription(cand, categories),
		})
	}

	st, loadErr := store.Load(r.Config.CalendarPath)
	if loadErr != nil {
		// Corrupt or unreadable previous store: start fresh, loudly.
		appLog.Warn("previous calendar unusable, starting from empty store", "reason", loadErr)
	}

	rep.Added, rep.Expired = st.Merge(events, runNow, r.Config.Retention())

	if err := st.Save(r.Config.CalendarPath, runNow); err != nil {
		return rep, err
	}
	rep.StoreSize = st.Len()

	appLog.Info("run completed",
		"lines", rep.Lines,
		"skipped_lines", rep.SkippedLines,
		"candidates", rep.Candidates,
		"invalid_times", rep.InvalidTimes,
		"added", rep.Added,
		"expired", rep.Expired,
		"store_size", rep.StoreSize,
	)
	return rep, nil
}

// buildDescription assembles the calendar entry description from the
// candidate's free-text fields and the matched sport categories.
func buildDescription(cand model.Candidate, categories []string) string {
	var parts []string
	if cand.Comment != "" {
		parts = append(parts, cand.Comment)
	}
	if cand.Channel != "" {
		parts = append(parts, "Canal: "+cand.Channel)
	}
	if len(categories) > 0 {
		parts = append(parts, "Esportes: "+strings.Join(categories, ", "))
	}
	return strings.Join(parts, " | ")
}
