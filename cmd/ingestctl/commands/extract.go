package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/contexta-ingest/internal/app"
)

var showChunks bool

type chunkSummary struct {
	Index  int    `json:"index"`
	Chars  int    `json:"chars"`
	Tokens int    `json:"tokens"`
	Text   string `json:"text,omitempty"`
}

type extractReport struct {
	File     string         `json:"file"`
	Type     string         `json:"type"`
	Strategy string         `json:"strategy"`
	Chars    int            `json:"textLength"`
	Chunks   int            `json:"chunks"`
	Preview  string         `json:"textPreview"`
	Details  []chunkSummary `json:"chunkDetails,omitempty"`
}

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Resolve, extract and chunk a file without embedding it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := extractFile(cmd.Context(), a, args[0], showChunks)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().BoolVar(&showChunks, "chunks", false, "Include every chunk's text in the output")
	return cmd
}

func extractFile(ctx context.Context, a *app.App, path string, withText bool) (*extractReport, error) {
	artifact, err := readArtifact(path)
	if err != nil {
		return nil, err
	}

	resolver := a.Ingestor.Resolver()
	if err := resolver.Admit(artifact.DeclaredType, artifact.Filename, artifact.Size); err != nil {
		return nil, err
	}
	resolved, err := resolver.Resolve(artifact.Data, artifact.DeclaredType, artifact.Filename)
	if err != nil {
		return nil, err
	}
	doc, err := a.Extractor.Extract(ctx, artifact.Data, resolved, artifact.Filename)
	if err != nil {
		return nil, err
	}

	chunks := a.Ingestor.Chunker().Split(doc.Text)
	report := &extractReport{
		File:     artifact.Filename,
		Type:     resolved,
		Strategy: doc.Strategy,
		Chars:    doc.CharCount,
		Chunks:   len(chunks),
		Preview:  previewText(doc.Text, 300),
	}
	for _, ch := range chunks {
		s := chunkSummary{Index: ch.Index, Chars: len([]rune(ch.Text)), Tokens: ch.TokenCount}
		if withText {
			s.Text = ch.Text
		}
		report.Details = append(report.Details, s)
	}
	return report, nil
}

func previewText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
