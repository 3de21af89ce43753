package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// KeywordRule maps one lowercase keyword to a canonical sport category.
// Rules are matched in list order; the order matters when a caller wants
// a single category per line.
type KeywordRule struct {
	Keyword  string `yaml:"keyword" json:"keyword"`
	Category string `yaml:"category" json:"category"`
}

// TelegramConfig holds Bot API credentials for the telegram source.
type TelegramConfig struct {
	// Token is the Bot API token.
	Token string `yaml:"token" json:"token"`
	// ChannelID is the numeric chat ID of the schedule channel the bot
	// is a member of.
	ChannelID int64 `yaml:"channel_id" json:"channel_id"`
}

// WebConfig holds parameters for the headless-browser source.
type WebConfig struct {
	// URL is the schedule page to screenshot.
	URL string `yaml:"url" json:"url"`
	// WaitSelector, if set, is a CSS selector the page must render
	// before the screenshot is taken.
	WaitSelector string `yaml:"wait_selector" json:"wait_selector"`
	// Width and Height are viewport dimensions in pixels.
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// OCRConfig configures the external OCR engine invocation.
type OCRConfig struct {
	// Binary is the tesseract executable name or path.
	Binary string `yaml:"binary" json:"binary"`
	// Language is the tesseract language pack (e.g. "por").
	Language string `yaml:"language" json:"language"`
}

// SourceConfig selects and configures the acquisition source.
type SourceConfig struct {
	// Mode is one of "file", "telegram", "web".
	Mode string `yaml:"mode" json:"mode"`
	// Path is the OCR text file for file mode.
	Path string `yaml:"path" json:"path"`

	Telegram TelegramConfig `yaml:"telegram" json:"telegram"`
	Web      WebConfig      `yaml:"web" json:"web"`
	OCR      OCRConfig      `yaml:"ocr" json:"ocr"`
}

// RetryConfig bounds the rate-limit retry loop around acquisition.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget, including the first try.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
	// BaseDelayMS is the base backoff delay in milliseconds.
	BaseDelayMS int `yaml:"base_delay_ms" json:"base_delay_ms"`
	// MaxJitterMS is the upper bound of the random jitter added to the
	// base delay, in milliseconds.
	MaxJitterMS int `yaml:"max_jitter_ms" json:"max_jitter_ms"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the status server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA zone the broadcast schedule displays its
	// wall-clock times in (e.g. "America/Sao_Paulo").
	Timezone string `yaml:"timezone" json:"timezone"`

	// CalendarPath is where the rolling .ics store lives.
	CalendarPath string `yaml:"calendar_path" json:"calendar_path"`

	// RetentionDays is the maximum event age before expiry on merge.
	RetentionDays int `yaml:"retention_days" json:"retention_days"`

	// EventDurationMinutes is the duration assigned to every extracted
	// event; the source schedule never carries end times.
	EventDurationMinutes int `yaml:"event_duration_minutes" json:"event_duration_minutes"`

	// MinLineLength is the tokenizer's noise threshold: shorter OCR
	// lines are discarded outright.
	MinLineLength int `yaml:"min_line_length" json:"min_line_length"`

	// RefreshCron is a cron-style schedule string (e.g. "0 */6 * * *")
	// for daemon mode. Empty means one-shot runs only.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Listen is the optional status server address. Empty disables it.
	Listen string `yaml:"listen" json:"listen"`

	Source SourceConfig `yaml:"source" json:"source"`
	Retry  RetryConfig  `yaml:"retry" json:"retry"`

	// Keywords is the ordered keyword -> category table used by the
	// classifier. Keys are lowercased on load.
	Keywords []KeywordRule `yaml:"keywords" json:"keywords"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// status endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultKeywords is the stock keyword table, matching the sports the
// schedule account actually posts. Substring containment is intentional:
// OCR output frequently mangles word boundaries.
func DefaultKeywords() []KeywordRule {
	return []KeywordRule{
		{Keyword: "futebol", Category: "Futebol"},
		{Keyword: "brasileirão", Category: "Futebol"},
		{Keyword: "brasileirao", Category: "Futebol"},
		{Keyword: "libertadores", Category: "Futebol"},
		{Keyword: "futsal", Category: "Futsal"},
		{Keyword: "tênis", Category: "Tênis"},
		{Keyword: "tenis", Category: "Tênis"},
		{Keyword: "wta", Category: "Tênis"},
		{Keyword: "atp", Category: "Tênis"},
		{Keyword: "vôlei", Category: "Vôlei"},
		{Keyword: "volei", Category: "Vôlei"},
		{Keyword: "surf", Category: "Surfe"},
		{Keyword: "basquete", Category: "Basquete"},
		{Keyword: "nba", Category: "Basquete"},
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:             "America/Sao_Paulo",
		CalendarPath:         "./calendar.ics",
		RetentionDays:        30,
		EventDurationMinutes: 120,
		MinLineLength:        5,
		RefreshCron:          "",
		Listen:               "",
		Source: SourceConfig{
			Mode: "file",
			OCR: OCRConfig{
				Binary:   "tesseract",
				Language: "por",
			},
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelayMS: 1000,
			MaxJitterMS: 500,
		},
		Keywords: DefaultKeywords(),
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = "America/Sao_Paulo"
	}
	if c.CalendarPath == "" {
		c.CalendarPath = "./calendar.ics"
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
	if c.EventDurationMinutes <= 0 {
		c.EventDurationMinutes = 120
	}
	if c.MinLineLength <= 0 {
		c.MinLineLength = 5
	}

	switch c.Source.Mode {
	case "file", "telegram", "web":
		// ok
	case "":
		c.Source.Mode = "file"
	default:
		// Unknown mode; fall back to file so a typo cannot silently
		// start hitting the network.
		c.Source.Mode = "file"
	}
	if c.Source.OCR.Binary == "" {
		c.Source.OCR.Binary = "tesseract"
	}
	if c.Source.OCR.Language == "" {
		c.Source.OCR.Language = "por"
	}

	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 5
	}
	if c.Retry.BaseDelayMS <= 0 {
		c.Retry.BaseDelayMS = 1000
	}
	if c.Retry.MaxJitterMS < 0 {
		c.Retry.MaxJitterMS = 0
	}

	if len(c.Keywords) == 0 {
		c.Keywords = DefaultKeywords()
	}
	for i := range c.Keywords {
		c.Keywords[i].Keyword = strings.ToLower(strings.TrimSpace(c.Keywords[i].Keyword))
	}
}

// Retention returns the expiry window as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// EventDuration returns the default event duration.
func (c *Config) EventDuration() time.Duration {
	return time.Duration(c.EventDurationMinutes) * time.Minute
}

// Location resolves the configured IANA zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".sportcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}
