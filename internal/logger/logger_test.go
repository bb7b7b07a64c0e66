package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	t.Cleanup(UnsetTestOutput)
	InitLogger(level)
	return buf
}

func TestInfoWithFields(t *testing.T) {
	buf := captureOutput(t, "info")

	Info("package installed", Fields{"name": "timestamp", "kind": "addon"})

	out := buf.String()
	assert.Contains(t, out, "package installed")
	assert.Contains(t, out, "name=timestamp")
	assert.Contains(t, out, "kind=addon")
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t, "warn")

	Debug("hidden")
	Info("also hidden")
	Warnf("shown: %d", 42)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown: 42")
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	buf := captureOutput(t, "chatty")

	Debug("hidden")
	Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
