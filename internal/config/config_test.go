package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REPORT_LLM_TIMEOUT", "")
	t.Setenv("REPORT_SESSION_TTL", "")
	t.Setenv("SPEECH_ASR_LANGUAGE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Store.DatabaseURL != "" {
		t.Fatalf("expected memory store by default, got %q", cfg.Store.DatabaseURL)
	}
	if cfg.Report.CallTimeout != 2*time.Minute {
		t.Fatalf("unexpected call timeout: %s", cfg.Report.CallTimeout)
	}
	if cfg.Report.Officer != "Beamter Mustermann" {
		t.Fatalf("unexpected officer default: %s", cfg.Report.Officer)
	}
	if cfg.Speech.ASRLanguage != "de-DE" {
		t.Fatalf("unexpected ASR language: %s", cfg.Speech.ASRLanguage)
	}
}

func TestLoadPortWithHost(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
}

func TestLoadRejectsInvalidTimeout(t *testing.T) {
	t.Setenv("REPORT_LLM_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid REPORT_LLM_TIMEOUT")
	}
}

func TestLoadRejectsNonPositiveMaxConns(t *testing.T) {
	t.Setenv("DATABASE_MAX_CONNS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for DATABASE_MAX_CONNS=0")
	}
}

func TestAIConfigEnabledRequiresModel(t *testing.T) {
	cfg := AIConfig{APIKey: "key"}
	if cfg.Enabled() {
		t.Fatal("expected disabled without model")
	}
	cfg.Model = "doubao"
	if !cfg.Enabled() {
		t.Fatal("expected enabled with api key and model")
	}
}
