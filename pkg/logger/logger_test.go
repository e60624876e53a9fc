package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestWithConversation(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &Logger{Logger: zap.New(core)}

	l.WithConversation("corr-1", "conv-1").Info("hello")
	l.WithConversation("", "conv-2").Info("bare")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "corr-1", entries[0].ContextMap()["correlation_id"])
	assert.Equal(t, "conv-1", entries[0].ContextMap()["conversation_id"])
	_, ok := entries[1].ContextMap()["correlation_id"]
	assert.False(t, ok)
}

func TestGlobal(t *testing.T) {
	require.NotNil(t, Global())

	prev := Global()
	defer SetGlobal(prev)

	n := Nop()
	SetGlobal(n)
	assert.Same(t, n, Global())
}
