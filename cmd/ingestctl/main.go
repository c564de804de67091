package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/markdave123-py/contexta-ingest/cmd/ingestctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		_, _ = color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
