package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sportcal/internal/config"
	"sportcal/internal/fetch"
)

const scheduleFixture = `AGENDA ESPORTIVA 19/08/2025
06h00 Jogos de 1 Rodada | XSPORTS
07:30 Brasileirão Série B  Avaí x Goiás  SPORTV
com narração de Fulano
?
10.00 WTA 500 Monterrey | ESPN
25h99 Linha quebrada | FOO
`

type staticSource struct {
	text string
}

func (s staticSource) Text(context.Context) (string, error) {
	return s.text, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.CalendarPath = filepath.Join(t.TempDir(), "calendar.ics")
	cfg.Normalize()
	return cfg
}

func fixedNow() time.Time {
	return time.Date(2025, 8, 19, 12, 0, 0, 0, time.UTC)
}

func TestRunExtractsAndMerges(t *testing.T) {
	cfg := testConfig(t)
	runner := &Runner{
		Config: cfg,
		Source: staticSource{text: scheduleFixture},
		Now:    fixedNow,
	}

	rep, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rep.Candidates != 4 {
		t.Errorf("candidates = %d, want 4", rep.Candidates)
	}
	if rep.InvalidTimes != 1 {
		t.Errorf("invalid times = %d, want 1 (25h99)", rep.InvalidTimes)
	}
	if rep.Added != 3 {
		t.Errorf("added = %d, want 3", rep.Added)
	}
	// Header line and "?" are noise.
	if rep.SkippedLines != 2 {
		t.Errorf("skipped lines = %d, want 2", rep.SkippedLines)
	}
	if rep.StoreSize != 3 {
		t.Errorf("store size = %d, want 3", rep.StoreSize)
	}

	data, err := os.ReadFile(cfg.CalendarPath)
	if err != nil {
		t.Fatalf("read calendar: %v", err)
	}
	// Unfold ICS continuation lines before matching substrings.
	content := strings.ReplaceAll(string(data), "\r\n ", "")

	// 06h00 on 19/08 in São Paulo is 09:00 UTC.
	if !strings.Contains(content, "DTSTART:20250819T090000Z") {
		t.Errorf("calendar missing expected start instant:\n%s", content)
	}
	if !strings.Contains(content, "Jogos de 1 Rodada") {
		t.Errorf("calendar missing event summary:\n%s", content)
	}
	if !strings.Contains(content, "X-GENERATED-TIME:") {
		t.Errorf("calendar missing generation timestamp:\n%s", content)
	}
	if !strings.Contains(content, "Canal: XSPORTS") {
		t.Errorf("calendar missing channel in description:\n%s", content)
	}
	// The continuation line rode along into the Brasileirão event.
	if !strings.Contains(content, "narração de Fulano") {
		t.Errorf("calendar missing continuation comment:\n%s", content)
	}
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	cfg := testConfig(t)
	runner := &Runner{
		Config: cfg,
		Source: staticSource{text: scheduleFixture},
		Now:    fixedNow,
	}

	first, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if second.Added != 0 {
		t.Errorf("second run added = %d, want 0", second.Added)
	}
	if second.StoreSize != first.StoreSize {
		t.Errorf("store size changed across identical runs: %d -> %d", first.StoreSize, second.StoreSize)
	}
}

func TestRunRecoversFromCorruptStore(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(cfg.CalendarPath, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &Runner{
		Config: cfg,
		Source: staticSource{text: scheduleFixture},
		Now:    fixedNow,
	}

	rep, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run must survive a corrupt previous store: %v", err)
	}
	if rep.Added != 3 {
		t.Errorf("added = %d, want 3 from a fresh store", rep.Added)
	}
}

// rateLimitedSource simulates an upstream that rate-limits n times.
type rateLimitedSource struct {
	remaining int
	text      string
}

func (s *rateLimitedSource) Text(context.Context) (string, error) {
	if s.remaining > 0 {
		s.remaining--
		return "", &fetch.Error{Op: "test", RateLimited: true, Err: errors.New("429")}
	}
	return s.text, nil
}

func TestRunFailsAfterRetryExhaustionWithoutStoreWrite(t *testing.T) {
	cfg := testConfig(t)

	src := fetch.NewRetrier(&rateLimitedSource{remaining: 5}, 5, time.Millisecond, 0)
	runner := &Runner{Config: cfg, Source: src, Now: fixedNow}

	if _, err := runner.Run(context.Background()); err == nil {
		t.Fatal("want error after retry exhaustion")
	}

	if _, err := os.Stat(cfg.CalendarPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("store must not be written when acquisition fails")
	}
}

func TestRunRecoversWithinRetryBudget(t *testing.T) {
	cfg := testConfig(t)

	src := fetch.NewRetrier(&rateLimitedSource{remaining: 2, text: scheduleFixture}, 5, time.Millisecond, 0)
	runner := &Runner{Config: cfg, Source: src, Now: fixedNow}

	rep, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Added != 3 {
		t.Errorf("added = %d, want 3", rep.Added)
	}
}
