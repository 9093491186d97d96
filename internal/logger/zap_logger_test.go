package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.Info("agent", "turn handled", map[string]interface{}{"session_id": "s1"})
	l.Warn("llm", "fallback", nil)
	l.Error("tools", "tool failed", map[string]interface{}{"error": errors.New("boom")})

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "turn handled", entries[0].Message)
	assert.Equal(t, "agent", entries[0].ContextMap()["module"])
	assert.Equal(t, map[string]interface{}{"session_id": "s1"}, entries[0].ContextMap()["details"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, map[string]interface{}{}, entries[1].ContextMap()["details"])

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	l.Debug("x", "ignored", nil)
	assert.NoError(t, l.Sync())
}
