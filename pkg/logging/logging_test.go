package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/awn-app/awn/pkg/config"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerDefaultsToJSONOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "info"}, &buf)
	logger.Info("proxy", "url", "https://a.example")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "proxy", line["msg"])
	assert.Equal(t, "https://a.example", line["url"])
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	logger.Info("hidden")
	assert.Empty(t, buf.String())
	assert.Equal(t, log.WarnLevel, logger.GetLevel())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLoggerBadLevel(t *testing.T) {
	logger := NewLogger(config.LogConfig{Level: "loud", Format: "logfmt"}, &bytes.Buffer{})
	assert.Equal(t, log.InfoLevel, logger.GetLevel())
}
