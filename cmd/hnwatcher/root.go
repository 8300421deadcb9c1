package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"HNWatcher/internal/app"
	"HNWatcher/internal/config"
	"HNWatcher/internal/logging"
)

type rootOptions struct {
	configPath string
	topN       int
	logLevel   string
	source     string
}

func newRootCommand() *cobra.Command {
	return buildRootCommand(&rootOptions{})
}

func buildRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hnwatcher",
		Short:         "Record stories as they enter the Hacker News top N",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())

			application, err := app.New(cmd.Context(), cfg, logger, app.Options{Stdout: cmd.OutOrStdout()})
			if err != nil {
				return fmt.Errorf("startup: %w", err)
			}
			defer func() {
				if err := application.Close(); err != nil {
					logger.Warn("shutdown", "error", err)
				}
			}()
			return application.Run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML or TOML config file (defaults to $HNWATCHER_CONFIG)")
	flags.IntVar(&opts.topN, "n", 10, "Number of top stories to track")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	flags.StringVar(&opts.source, "source", "", "Override source.kind (firebase, html)")
	return cmd
}

// resolveConfig loads the config file and lets explicitly set flags win over it.
func resolveConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("n") {
		cfg.Poll.TopN = opts.topN
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if flags.Changed("source") {
		cfg.Source.Kind = strings.ToLower(strings.TrimSpace(opts.source))
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
