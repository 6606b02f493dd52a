package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/errors"
	"github.com/RPi-WebTools/sysmon-fetcher/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer

	logger.InitWithWriter(&buf, false, false)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger.InitWithWriter(&buf, false, true)
	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger.InitWithWriter(&buf, true, false)
	logger.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, false, false)

	err := errors.New().New(errors.ErrClosedHandle)
	logger.ErrorWithCode(err).Msg("write failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "store_handle_closed", entry["error_code"])
	assert.Equal(t, "write failed", entry["message"])
}
