package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestSetupWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(&buf, "debug", "json", true)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Debug().Str("component", "test").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "debug", entry["level"])
	require.Equal(t, "test", entry["component"])
	require.Equal(t, "hello", entry["message"])
}

func TestSetupWriterInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(&buf, "loud", "json", false)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Debug().Msg("hidden")
	require.Zero(t, buf.Len())
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
