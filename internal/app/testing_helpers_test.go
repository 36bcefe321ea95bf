package app

import (
	"os"
	"path/filepath"
	"testing"

	"questionnaire/api/internal/config"
	"questionnaire/api/internal/history"
	"questionnaire/api/internal/store"
)

const shellHTML = "<!doctype html><div id=\"root\"></div>"

type testEnv struct {
	cfg      config.Config
	configs  *store.ConfigStore
	profiles *store.ProfileLog
	service  *Service
	server   *HTTPServer
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	root := t.TempDir()
	staticDir := filepath.Join(root, "dist")
	if err := os.MkdirAll(filepath.Join(staticDir, "assets"), 0o755); err != nil {
		t.Fatalf("mkdir static: %v", err)
	}
	files := map[string]string{
		"index.html":       shellHTML,
		"app.js":           "console.log('app')",
		"assets/style.css": "body{}",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(staticDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	cfg := config.Config{
		BasePath:      "/questionnaire",
		CORSOrigin:    "*",
		DataDir:       filepath.Join(root, "data"),
		ConfigFile:    "config.json",
		ProfileFile:   "profiles.jsonl",
		StaticDir:     staticDir,
		ShellDocument: "index.html",
		HistoryAuthor: "tester",
		MaxBodyBytes:  1 << 16,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	configs, err := store.OpenConfigStore(cfg.ConfigPath(), store.Options{})
	if err != nil {
		t.Fatalf("OpenConfigStore() error = %v", err)
	}
	profiles, err := store.OpenProfileLog(cfg.ProfilePath(), store.Options{})
	if err != nil {
		t.Fatalf("OpenProfileLog() error = %v", err)
	}
	t.Cleanup(func() { _ = profiles.Close() })

	svc := New(cfg, configs, profiles)
	if cfg.HistoryDir != "" {
		h, err := history.Open(cfg.HistoryDir)
		if err != nil {
			t.Fatalf("history.Open() error = %v", err)
		}
		svc.EnableHistory(h)
	}
	return &testEnv{
		cfg:      cfg,
		configs:  configs,
		profiles: profiles,
		service:  svc,
		server:   NewHTTPServer(svc, cfg.CORSOrigin),
	}
}
