package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// NewProcessCmd creates the process command.
func NewProcessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <file>...",
		Short: "Extract, chunk, embed and persist local files",
		Long: `Run the full ingestion pipeline on each file and print one JSON outcome per file.

Files are processed independently; one failure does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runProcess,
	}
}

func runProcess(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context(), cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	artifacts := make([]*models.UploadArtifact, 0, len(args))
	for _, path := range args {
		artifact, err := readArtifact(path)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, artifact)
	}

	outcomes, err := a.Ingestor.IngestBatch(cmd.Context(), artifacts)
	if err != nil {
		return err
	}
	if err := printJSON(cmd.OutOrStdout(), outcomes); err != nil {
		return err
	}

	ok := color.New(color.FgGreen, color.Bold).SprintFunc()
	bad := color.New(color.FgRed, color.Bold).SprintFunc()
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", bad("FAIL"), o.Filename, o.Err)
			continue
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %d chunks, %d vectors, %d persisted\n", ok("OK"),
			o.Filename, o.Result.ChunkCount, o.Result.EmbeddingsCreated, o.Result.PersistedVectorCount)
	}

	if failed := countFailures(outcomes); failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(outcomes))
	}
	return nil
}

// readArtifact loads a local file. The declared type is left empty so resolution falls back to content and extension.
func readArtifact(path string) (*models.UploadArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return &models.UploadArtifact{
		Data:     data,
		Filename: filepath.Base(path),
		Size:     int64(len(data)),
	}, nil
}

func countFailures(outcomes []models.FileOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
