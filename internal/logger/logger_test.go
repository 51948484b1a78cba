package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewZapLoggerLevels(t *testing.T) {
	for level, debugEnabled := range map[string]bool{"debug": true, "info": false, "bogus": false, "error": false} {
		zl, err := NewZapLogger(level)
		require.NoError(t, err)
		assert.Equal(t, debugEnabled, zl.Core().Enabled(zap.DebugLevel), "level %q", level)
	}
}

func TestTemporalLoggerFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tl := NewTemporalLogger(zap.New(core))

	tl.With("workflow", "DecideReplenishment").Info("stage done", "stage", "DECIDE", "risk", 60.0)
	tl.Error("stage failed", "error", errors.New("boom"), "dangling")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{
		"workflow": "DecideReplenishment",
		"stage":    "DECIDE",
		"risk":     60.0,
	}, entries[0].ContextMap())
	ctx := entries[1].ContextMap()
	assert.Equal(t, "boom", ctx["error"])
	assert.Contains(t, ctx, "dangling")
}
