package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/rectoverso/internal/api"
	"github.com/jackzampolin/rectoverso/internal/config"
	"github.com/jackzampolin/rectoverso/internal/home"
	"github.com/jackzampolin/rectoverso/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "rectoverso",
	Short: "Turn scanned study sheets into flashcards",
	Long: `Rectoverso turns scanned double-sided study material into Front/Back
flashcards.

A run:
  - OCRs the PDF in page batches (Mistral OCR)
  - drops layout noise with configurable patterns
  - pairs fronts with backs (by position, leading numbers, or an LLM)
  - merges the pairs into a deduplicated XLSX store

The store can then be pushed to Anki through AnkiConnect.`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.rectoverso/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "rectoverso home directory (default: ~/.rectoverso)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml, json or table",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn or error (default: log_level from config)",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		f, err := api.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		api.SetOutputFormat(string(f))
		return nil
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(configCmd)
}

// appEnv is what most commands need: home layout, configuration and a logger.
type appEnv struct {
	home   *home.Dir
	config *config.Config
	cfgMgr *config.Manager
	logger *slog.Logger
}

// loadEnv resolves the home directory, loads configuration and builds the
// stderr logger.
func loadEnv(cmd *cobra.Command) (*appEnv, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}

	mgr, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := mgr.Get()

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger, err := newLogger(cmd.ErrOrStderr(), level)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	if f := mgr.ConfigFile(); f != "" {
		logger.Debug("config loaded", "file", f)
	}

	return &appEnv{home: h, config: cfg, cfgMgr: mgr, logger: logger}, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q", level)
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// output writes data to the command's stdout in the --output format.
func output(cmd *cobra.Command, data any) error {
	return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), data)
}

// storePath resolves --store, then store.path, then the home default.
func (e *appEnv) storePath(flag string) string {
	if flag != "" {
		return flag
	}
	return e.home.ResolveStorePath(e.config.Store.Path)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
