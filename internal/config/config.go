package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr       string `yaml:"addr"`
	BasePath   string `yaml:"basePath"`
	CORSOrigin string `yaml:"corsOrigin"`
	// Storage
	DataDir     string `yaml:"dataDir"`
	ConfigFile  string `yaml:"configFile"`
	ProfileFile string `yaml:"profileFile"`
	SyncWrites  bool   `yaml:"syncWrites"`
	// Static SPA bundle
	StaticDir     string `yaml:"staticDir"`
	ShellDocument string `yaml:"shellDocument"`
	// Config history, disabled when HistoryDir is empty
	HistoryDir    string `yaml:"historyDir"`
	HistoryAuthor string `yaml:"historyAuthor"`

	MaxBodyBytes int64 `yaml:"maxBodyBytes"`
}

func Load() Config {
	return Config{
		Addr:          getenv("API_ADDR", ":8787"),
		BasePath:      getenv("QUESTIONNAIRE_BASE_PATH", "/questionnaire"),
		CORSOrigin:    getenv("QUESTIONNAIRE_CORS_ORIGIN", "*"),
		DataDir:       getenv("QUESTIONNAIRE_DATA_DIR", "./data"),
		ConfigFile:    getenv("QUESTIONNAIRE_CONFIG_FILE", "config.json"),
		ProfileFile:   getenv("QUESTIONNAIRE_PROFILE_FILE", "profiles.jsonl"),
		SyncWrites:    getenvBool("QUESTIONNAIRE_SYNC_WRITES", true),
		StaticDir:     getenv("QUESTIONNAIRE_STATIC_DIR", "./dist"),
		ShellDocument: getenv("QUESTIONNAIRE_SHELL_DOCUMENT", "index.html"),
		// empty by default, history disabled if not configured
		HistoryDir:    getenv("QUESTIONNAIRE_HISTORY_DIR", ""),
		HistoryAuthor: getenv("QUESTIONNAIRE_HISTORY_AUTHOR", "questionnaire-api"),
		MaxBodyBytes:  int64(getenvInt("QUESTIONNAIRE_MAX_BODY_BYTES", 1<<20)),
	}
}

// LoadFile overlays the YAML settings file at path onto base. Keys missing
// from the file keep their value from base.
func LoadFile(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read settings file: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return base, fmt.Errorf("parse settings file: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data dir is required"))
	}
	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		errs = append(errs, fmt.Errorf("base path %q must start with /", c.BasePath))
	}
	if strings.TrimSpace(c.ConfigFile) == "" || strings.TrimSpace(c.ProfileFile) == "" {
		errs = append(errs, errors.New("config and profile file names are required"))
	}
	if strings.TrimSpace(c.ShellDocument) == "" {
		errs = append(errs, errors.New("shell document is required"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("max body bytes must be positive"))
	}
	return errors.Join(errs...)
}

// MountPath is BasePath without a trailing slash; the root mount is "".
func (c Config) MountPath() string {
	return strings.TrimRight(c.BasePath, "/")
}

func (c Config) ConfigPath() string {
	return c.dataPath(c.ConfigFile)
}

func (c Config) ProfilePath() string {
	return c.dataPath(c.ProfileFile)
}

func (c Config) dataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
