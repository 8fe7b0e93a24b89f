// Package cli implements the shoeshelf command line: an interactive shell
// over the Sync Layer plus one-shot commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mmynk/shoeshelf/internal/config"
	"github.com/mmynk/shoeshelf/internal/enrichment"
	"github.com/mmynk/shoeshelf/internal/inventory"
	"github.com/mmynk/shoeshelf/internal/remote"
	"github.com/mmynk/shoeshelf/pkg/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Server     string
	Verbose    bool
}

// NewRootCommand creates the root command. Without a subcommand it starts
// the shell.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "shoeshelf",
		Short:         "Keep a list of shoes and look up details for it",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Server, "server", "", "server URL (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log to stderr at debug level")

	cmd.AddCommand(NewShellCommand(opts))
	cmd.AddCommand(NewDescribeCommand(opts))

	return cmd
}

// loadConfig reads the config and applies flag overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Server != "" {
		cfg.ServerURL = opts.Server
	}
	if err := cfg.ValidateClient(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(opts *RootOptions, cfg config.Config, w io.Writer) *slog.Logger {
	level := "error"
	if opts.Verbose {
		level = "debug"
	}
	return logging.New(w, level, cfg.LogFormat)
}

// newSyncer connects a Syncer to the server named in cfg.
func newSyncer(cfg config.Config, logger *slog.Logger) *inventory.Syncer {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	return inventory.New(
		remote.NewDocumentClient(httpClient, cfg.ServerURL),
		remote.NewIdentityClient(httpClient, cfg.ServerURL),
		enrichment.NewClient(httpClient, cfg.ServerURL),
		inventory.WithLogger(logger),
	)
}
