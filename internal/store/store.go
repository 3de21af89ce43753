package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"sportcal/internal/model"
)

// LoadError reports an unreadable or malformed persisted calendar. It is
// always surfaced to the caller for logging, but the load still yields a
// usable empty store: a corrupt file must never prevent a fresh run.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("store: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// WriteError reports a failed final persistence. Unlike load failures it
// is fatal: silently dropping the update would desynchronize every
// future run against the file on disk.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store: write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Store is the rolling set of canonical events surviving across runs.
// It is keyed by UID; no two stored events share one. A Store is only
// ever open for the lifetime of a single process invocation: loaded
// once, merged in memory, written once.
type Store struct {
	events map[string]model.Event
}

func New() *Store {
	return &Store{events: make(map[string]model.Event)}
}

func (s *Store) Len() int { return len(s.events) }

// Contains reports whether an event with the given UID is stored.
func (s *Store) Contains(uid string) bool {
	_, ok := s.events[uid]
	return ok
}

// Events returns the stored events ordered by start instant (UID as a
// tiebreaker), so serialized output is stable across runs.
func (s *Store) Events() []model.Event {
	out := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].UID < out[j].UID
	})
	return out
}

// Merge applies retention expiry to the current contents, then inserts
// the given events in order, skipping any whose UID is already present
// (first seen wins). Events whose start is not after now-retention are
// never inserted either; an entry that would expire on the next run has
// no business entering the store.
func (s *Store) Merge(events []model.Event, now time.Time, retention time.Duration) (added, expired int) {
	cutoff := now.Add(-retention)

	for uid, ev := range s.events {
		if !ev.Start.After(cutoff) {
			delete(s.events, uid)
			expired++
		}
	}

	for _, ev := range events {
		if !ev.Start.After(cutoff) {
			continue
		}
		if _, ok := s.events[ev.UID]; ok {
			continue
		}
		s.events[ev.UID] = ev
		added++
	}

	return added, expired
}

// Load reads the persisted calendar at path. A missing file yields an
// empty store and no error; an unreadable or malformed one yields an
// empty store plus a *LoadError the caller logs as a warning. The
// returned store is always usable.
func Load(path string) (*Store, error) {
	s := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, &LoadError{Path: path, Err: err}
	}

	events, err := decodeCalendar(data)
	if err != nil {
		return s, &LoadError{Path: path, Err: err}
	}

	for _, ev := range events {
		if _, ok := s.events[ev.UID]; ok {
			continue
		}
		s.events[ev.UID] = ev
	}
	return s, nil
}

// Save serializes the store and writes it atomically (temp file in the
// same directory, then rename). now is recorded in the calendar's
// X-GENERATED-TIME metadata line. Any failure is a *WriteError.
func (s *Store) Save(path string, now time.Time) error {
	payload := encodeCalendar(s.Events(), now)

	dir, err := ensureParentDir(path)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".sportcal-calendar-*.tmp")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write([]byte(payload)); err != nil {
		tmp.Close()
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
