package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/config"
)

// rootFlags holds the persistent flags every subcommand shares, in the
// teacher's "-config path to YAML" convention (cmd/glyphoxa/main.go's
// `-config` flag) adapted onto Cobra (pack-grounded:
// USA-RedDragon/DMRHub's cmd/root.go NewCommand/RunE/Annotations shape).
type rootFlags struct {
	configPath string
}

// NewRootCommand builds the psdecode root command: no RunE of its own,
// just the "decode" and "serve" subcommands and shared --config flag.
func NewRootCommand(version, commit string) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:     "psdecode",
		Short:   "Decode audio with the PocketSphinx-derived recognition core",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		SilenceErrors:     true,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "psdecode.yaml", "path to the YAML configuration file")

	cmd.AddCommand(newDecodeCommand(flags))
	cmd.AddCommand(newServeCommand(flags))
	return cmd
}

// loadConfig reads and validates the YAML config at flags.configPath and
// installs a slog.Logger at its configured level, mirroring the teacher's
// newLogger/cfg.Server.LogLevel pairing (cmd/glyphoxa/main.go).
func loadConfig(flags *rootFlags) (*config.DecoderConfig, *slog.Logger, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("psdecode: config file %q not found: %w", flags.configPath, err)
		}
		return nil, nil, err
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
