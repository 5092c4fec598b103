package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Service: "catalog", Output: &buf})

	log.Info().Msg("dropped")
	log.Warn().Str("app_code", "HR1").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "catalog", entry["service"])
	assert.Equal(t, "HR1", entry["app_code"])
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "loud", Output: &buf})
	log.Debug().Msg("dropped")
	assert.Zero(t, buf.Len())
	log.Info().Msg("kept")
	assert.NotZero(t, buf.Len())
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "console", Output: &buf})
	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}
