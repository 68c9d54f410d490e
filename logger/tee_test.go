package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeeHandler_DeliversToAll(t *testing.T) {
	t.Parallel()

	var primary, extra bytes.Buffer

	tee := teeHandler{
		slog.NewTextHandler(&primary, nil),
		slog.NewJSONHandler(&extra, nil),
	}

	logger := slog.New(tee)
	logger.Info("deployment became ready", "attempts", 4)

	assert.Contains(t, primary.String(), "deployment became ready")
	assert.Contains(t, primary.String(), "attempts=4")
	assert.Contains(t, extra.String(), `"deployment became ready"`)
	assert.Contains(t, extra.String(), `"attempts":4`)
}

func TestTeeHandler_RespectsPerHandlerLevels(t *testing.T) {
	t.Parallel()

	var infoOut, debugOut bytes.Buffer

	tee := teeHandler{
		slog.NewTextHandler(&infoOut, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&debugOut, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}

	require.True(t, tee.Enabled(t.Context(), slog.LevelDebug))

	logger := slog.New(tee)
	logger.Debug("probe attempt", "attempt", 1)

	assert.Empty(t, infoOut.String())
	assert.Contains(t, debugOut.String(), "probe attempt")
}

func TestTeeHandler_WithAttrsPropagates(t *testing.T) {
	t.Parallel()

	var primary, extra bytes.Buffer

	tee := teeHandler{
		slog.NewTextHandler(&primary, nil),
		slog.NewTextHandler(&extra, nil),
	}

	logger := slog.New(tee).With("operation_id", "op-42")
	logger.Info("waiting")

	assert.Contains(t, primary.String(), "operation_id=op-42")
	assert.Contains(t, extra.String(), "operation_id=op-42")
}

func TestConfigureLogging_ExtraHandler(t *testing.T) { //nolint:paralleltest
	var primary, extra bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem:    "waitfor",
		Output:       &primary,
		ExtraHandler: slog.NewJSONHandler(&extra, nil),
	})

	slog.Info("target became ready")

	assert.Contains(t, primary.String(), "target became ready")
	assert.Contains(t, extra.String(), "target became ready")
}
