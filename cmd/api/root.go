package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"questionnaire/api/internal/config"
	"questionnaire/api/internal/store"
)

// rootOptions holds flag values. Only flags set on the command line override
// the environment and settings file.
type rootOptions struct {
	settings    string
	addr        string
	basePath    string
	dataDir     string
	staticDir   string
	historyDir  string
	corsOrigin  string
	syncWrites  bool
	maxBodySize int64
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	defaults := config.Load()

	cmd := &cobra.Command{
		Use:          "questionnaire-api",
		Short:        "Serve the questionnaire SPA and its file-backed API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts, defaults)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.settings, "settings", os.Getenv("QUESTIONNAIRE_SETTINGS"), "YAML settings file")
	flags.StringVar(&opts.addr, "addr", defaults.Addr, "listen address")
	flags.StringVar(&opts.basePath, "base-path", defaults.BasePath, "mount point of the app")
	flags.StringVar(&opts.dataDir, "data-dir", defaults.DataDir, "directory holding the config document and profile log")
	flags.StringVar(&opts.staticDir, "static-dir", defaults.StaticDir, "directory with the built SPA")
	flags.StringVar(&opts.historyDir, "history-dir", defaults.HistoryDir, "git repository for config history (empty disables)")
	flags.StringVar(&opts.corsOrigin, "cors-origin", defaults.CORSOrigin, "Access-Control-Allow-Origin value")
	flags.BoolVar(&opts.syncWrites, "sync-writes", defaults.SyncWrites, "fsync after every write")
	flags.Int64Var(&opts.maxBodySize, "max-body-bytes", defaults.MaxBodyBytes, "request body limit")

	cmd.AddCommand(newProfileCommand(opts, defaults))
	return cmd
}

func newProfileCommand(opts *rootOptions, defaults config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect the profile log",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "find <uuid>",
		Short: "Print the first stored profile containing uuid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts, defaults)
			if err != nil {
				return err
			}
			line, err := store.FindInLog(cfg.ProfilePath(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no profile matches %q", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(line))
			return nil
		},
	})
	return cmd
}

// resolveConfig layers environment defaults, the optional settings file and
// explicitly set flags, in that order.
func resolveConfig(cmd *cobra.Command, opts *rootOptions, defaults config.Config) (config.Config, error) {
	cfg := defaults
	if opts.settings != "" {
		loaded, err := config.LoadFile(opts.settings, cfg)
		if err != nil {
			return config.Config{}, err
		}
		log.Printf("Loaded settings from %s", opts.settings)
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = opts.addr
	}
	if flags.Changed("base-path") {
		cfg.BasePath = opts.basePath
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = opts.dataDir
	}
	if flags.Changed("static-dir") {
		cfg.StaticDir = opts.staticDir
	}
	if flags.Changed("history-dir") {
		cfg.HistoryDir = opts.historyDir
	}
	if flags.Changed("cors-origin") {
		cfg.CORSOrigin = opts.corsOrigin
	}
	if flags.Changed("sync-writes") {
		cfg.SyncWrites = opts.syncWrites
	}
	if flags.Changed("max-body-bytes") {
		cfg.MaxBodyBytes = opts.maxBodySize
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
