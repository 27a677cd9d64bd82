package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.False(t, cfg.StressGC)
	assert.False(t, cfg.GCLog)
	assert.Empty(t, cfg.DebugServe)
	assert.False(t, cfg.TraceExec)
	assert.Empty(t, cfg.Path)
}

func TestParseFlagsAndPath(t *testing.T) {
	cfg, err := Parse([]string{"--stress-gc", "--gc-log", "--trace-exec", "--debug-serve=localhost:9000", "script.lox"})
	require.NoError(t, err)
	assert.True(t, cfg.StressGC)
	assert.True(t, cfg.GCLog)
	assert.True(t, cfg.TraceExec)
	assert.Equal(t, "localhost:9000", cfg.DebugServe)
	assert.Equal(t, "script.lox", cfg.Path)
}

func TestParseRejectsMultiplePositionalArgs(t *testing.T) {
	_, err := Parse([]string{"a.lox", "b.lox"})
	assert.Error(t, err)
}

func TestParseRejectsUnknownFlag(t *testing.T) {
	_, err := Parse([]string{"--not-a-real-flag"})
	assert.Error(t, err)
}
