package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithOutputLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("warn", false, &buf)

	log.Named("ingestor").Info("hidden")
	log.Named("ingestor").Warn("shown", "file", "a.pdf")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "contexta.ingestor")
	assert.Contains(t, out, "file=a.pdf")
}

func TestNewWithOutputUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("chatty", true, &buf)

	log.Debug("hidden")
	log.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"@message":"shown"`)
}

func TestOrNull(t *testing.T) {
	assert.NotNil(t, OrNull(nil))
}
