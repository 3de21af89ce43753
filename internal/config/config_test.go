package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sportcal.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Timezone != "America/Sao_Paulo" {
		t.Errorf("Timezone = %q", cfg.Timezone)
	}
	if cfg.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", cfg.RetentionDays)
	}
	if cfg.EventDurationMinutes != 120 {
		t.Errorf("EventDurationMinutes = %d, want 120", cfg.EventDurationMinutes)
	}
	if cfg.MinLineLength != 5 {
		t.Errorf("MinLineLength = %d, want 5", cfg.MinLineLength)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("Retry.MaxAttempts = %d, want 5", cfg.Retry.MaxAttempts)
	}
	if len(cfg.Keywords) == 0 {
		t.Error("default keyword table is empty")
	}

	// The default config must have been persisted for the next run.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config not written: %v", err)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sportcal.yaml")

	cfg := DefaultConfig()
	cfg.Timezone = "America/Bahia"
	cfg.RetentionDays = 7
	cfg.Source.Mode = "telegram"
	cfg.Source.Telegram.Token = "test-token"
	cfg.Source.Telegram.ChannelID = -100123
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Timezone != "America/Bahia" {
		t.Errorf("Timezone = %q", loaded.Timezone)
	}
	if loaded.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d", loaded.RetentionDays)
	}
	if loaded.Source.Mode != "telegram" {
		t.Errorf("Source.Mode = %q", loaded.Source.Mode)
	}
	if loaded.Source.Telegram.ChannelID != -100123 {
		t.Errorf("ChannelID = %d", loaded.Source.Telegram.ChannelID)
	}
}

func TestNormalize(t *testing.T) {
	cfg := &Config{
		Source: SourceConfig{Mode: "carrier-pigeon"},
		Keywords: []KeywordRule{
			{Keyword: "  WTA ", Category: "Tênis"},
		},
	}
	cfg.Normalize()

	if cfg.Source.Mode != "file" {
		t.Errorf("unknown source mode normalized to %q, want file", cfg.Source.Mode)
	}
	if cfg.Keywords[0].Keyword != "wta" {
		t.Errorf("keyword not lowercased/trimmed: %q", cfg.Keywords[0].Keyword)
	}
	if cfg.Retention() != 30*24*time.Hour {
		t.Errorf("Retention = %v, want 720h", cfg.Retention())
	}
	if cfg.EventDuration() != 2*time.Hour {
		t.Errorf("EventDuration = %v, want 2h", cfg.EventDuration())
	}
	if cfg.Source.OCR.Binary != "tesseract" || cfg.Source.OCR.Language != "por" {
		t.Errorf("OCR defaults not applied: %+v", cfg.Source.OCR)
	}
}
