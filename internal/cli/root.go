// Package cli holds the logwarden command tree.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Wikid82/logwarden/internal/config"
	"github.com/Wikid82/logwarden/internal/logger"
	"github.com/Wikid82/logwarden/internal/version"
)

var (
	cfgFile string
	debug   bool
)

// NewRootCommand creates the root command. Running it without a subcommand
// starts the service.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "logwarden",
		Short: "Tail log files, analyze new lines and raise alerts",
		Long: `logwarden watches log files, stores every new line once, asks an AI provider
to classify it and raises alerts when configured rules match the verdict.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "application config file (default $LOGWARDEN_CONFIG_FILE)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newRescanCommand())
	rootCmd.AddCommand(newRulesCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", version.Name, version.Full())
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// loadConfig reads configuration and sets up logging to stdout plus a rotated
// file under cfg.LogDir.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadFrom(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if debug {
		cfg.Debug = true
	}

	var out io.Writer = os.Stdout
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return config.Config{}, fmt.Errorf("ensure log directory: %w", err)
		}
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, version.Name+".log"),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	logger.Init(cfg.Debug, out)

	if !cfg.ConfigFileFound {
		logger.Log().WithField("path", cfg.ConfigFile).Warn("config file not found, running with defaults")
	}
	return cfg, nil
}
