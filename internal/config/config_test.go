package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Addr != ":8787" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.MountPath() != "/questionnaire" {
		t.Fatalf("MountPath() = %q", cfg.MountPath())
	}
	if cfg.ConfigPath() != filepath.Join("data", "config.json") {
		t.Fatalf("ConfigPath() = %q", cfg.ConfigPath())
	}
	if !cfg.SyncWrites {
		t.Fatal("expected SyncWrites by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("QUESTIONNAIRE_DATA_DIR", "/srv/questionnaire")
	t.Setenv("QUESTIONNAIRE_PROFILE_FILE", "/var/log/profiles.jsonl")
	t.Setenv("QUESTIONNAIRE_BASE_PATH", "/")
	t.Setenv("QUESTIONNAIRE_SYNC_WRITES", "false")
	t.Setenv("QUESTIONNAIRE_MAX_BODY_BYTES", "not-a-number")

	cfg := Load()
	if cfg.ConfigPath() != filepath.Join("/srv/questionnaire", "config.json") {
		t.Fatalf("ConfigPath() = %q", cfg.ConfigPath())
	}
	if cfg.ProfilePath() != "/var/log/profiles.jsonl" {
		t.Fatalf("ProfilePath() = %q", cfg.ProfilePath())
	}
	if cfg.MountPath() != "" {
		t.Fatalf("MountPath() = %q, want root mount", cfg.MountPath())
	}
	if cfg.SyncWrites {
		t.Fatal("expected SyncWrites=false")
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Fatalf("MaxBodyBytes = %d, want fallback", cfg.MaxBodyBytes)
	}
}

func TestLoadFileOverlaysSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	settings := "basePath: /survey\nhistoryDir: /tmp/history\nmaxBodyBytes: 2048\n"
	if err := os.WriteFile(path, []byte(settings), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	cfg, err := LoadFile(path, Load())
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.BasePath != "/survey" || cfg.HistoryDir != "/tmp/history" || cfg.MaxBodyBytes != 2048 {
		t.Fatalf("unexpected overlay: %+v", cfg)
	}
	if cfg.Addr != ":8787" {
		t.Fatalf("expected untouched Addr, got %q", cfg.Addr)
	}
}

func TestLoadFileRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("basePath: [unclosed"), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, err := LoadFile(path, Load()); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), Load()); err == nil {
		t.Fatal("expected read error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.DataDir = " "
	cfg.BasePath = "survey"
	cfg.MaxBodyBytes = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"data dir", "base path", "max body"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}
