package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/contexta-ingest/internal/core/llm"
)

type healthReport struct {
	Status    string           `json:"status"`
	Embedding llm.HealthStatus `json:"embedding"`
	PdfToText bool             `json:"pdftotext"`
	Index     string           `json:"index,omitempty"`
}

// NewHealthCmd creates the health command.
func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the embedding service, PDF tooling and vector index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			report := healthReport{
				Status:    "OK",
				Embedding: a.Embedder.Health(ctx),
				PdfToText: a.PDF.ToolAvailable(),
				Index:     a.Ingestor.IndexName(),
			}
			if !report.Embedding.Healthy {
				report.Status = "DEGRADED"
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}
