package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// New builds the root logger. Components derive their own via Named.
func New(level string, jsonFormat bool) hclog.Logger {
	return NewWithOutput(level, jsonFormat, os.Stderr)
}

func NewWithOutput(level string, jsonFormat bool, out io.Writer) hclog.Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "contexta",
		Level:      lvl,
		Output:     out,
		JSONFormat: jsonFormat,
	})
}

// OrNull returns l, or a logger that discards everything when l is nil.
func OrNull(l hclog.Logger) hclog.Logger {
	if l == nil {
		return hclog.NewNullLogger()
	}
	return l
}
