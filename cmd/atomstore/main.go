package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/atomstore/internal/config"
	"github.com/vango-dev/atomstore/internal/errors"
	"github.com/vango-dev/atomstore/internal/logging"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "atomstore",
		Short: "Run and inspect reactive atom stores",
		Long: `atomstore drives a reactive store from scenario files.

A scenario declares atoms, computed cells derived from them and a list
of steps that write, undo and check values. Commands:

  • run a scenario and print the propagation trace
  • render the dependency graph as Mermaid
  • serve a live store over HTTP with a WebSocket event stream`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Config file or directory (default: ./atomstore.yaml if present)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(
		runCmd(&flags),
		graphCmd(&flags),
		serveCmd(&flags),
		initCmd(),
		opsCmd(),
		versionCmd(),
	)
	return rootCmd
}

// load resolves the configuration and builds the logger it describes.
// Command line flags override the file.
func (f *globalFlags) load(stderr io.Writer) (*config.Config, *slog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case f.config == "":
		cfg, err = config.LoadOrDefault(".")
	case isDir(f.config):
		cfg, err = config.LoadOrDefault(f.config)
	default:
		cfg, err = config.LoadFile(f.config)
	}
	if err != nil {
		return nil, nil, err
	}

	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewWriter(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

func relPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(wd, path); err == nil {
		return rel
	}
	return path
}
