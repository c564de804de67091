package commands

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/contexta-ingest/internal/app"
	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/logging"
)

var (
	logLevel string
	noIndex  bool
)

// NewRootCmd builds the ingestctl command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingestctl",
		Short: "Run the document ingestion pipeline from the command line",
		Long: `ingestctl runs the same pipeline as the HTTP server against local files.

Configuration is read from the environment and an optional .env file.

Examples:
  ingestctl process report.pdf notes.md
  ingestctl extract --chunks spreadsheet.xlsx
  ingestctl health`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
	cmd.PersistentFlags().BoolVar(&noIndex, "no-index", false, "Skip the vector index even when one is configured")

	cmd.AddCommand(NewProcessCmd())
	cmd.AddCommand(NewExtractCmd())
	cmd.AddCommand(NewHealthCmd())
	return cmd
}

func Execute() error {
	return NewRootCmd().Execute()
}

// loadApp builds the pipeline from the environment. Logs go to stderr so stdout stays JSON.
func loadApp(ctx context.Context, cmd *cobra.Command, withIndex bool) (*app.App, error) {
	cfg := config.LoadConfig()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logging.NewWithOutput(cfg.LogLevel, cfg.LogJSON, cmd.ErrOrStderr())

	opts := []app.Option{app.WithLogger(log)}
	if !withIndex || noIndex {
		opts = append(opts, app.WithoutIndex())
	}
	return app.NewApp(ctx, cfg, opts...)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
