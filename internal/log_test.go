package internal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelError, ParseLogLevel("ERROR"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("warn"))
	assert.Equal(t, LogLevelDebug, ParseLogLevel(" debug "))
	assert.Equal(t, LogLevelTrace, ParseLogLevel("TRACE"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("verbose"))
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithOutput(LogLevelWarn, &buf)

	log.Info("hidden %d", 1)
	assert.Empty(t, buf.String())

	log.WithField("stage", "anova").Warn("epsilon %.2f", 0.71)
	out := buf.String()
	assert.Contains(t, out, "epsilon 0.71")
	assert.Contains(t, out, "stage=anova")
	assert.Equal(t, LogLevelWarn, log.GetLevel())
}
