package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerDefaults(t *testing.T) {
	logger := NewLogger(nil)

	assert.NotNil(t, logger)
	assert.Equal(t, LevelInfo, logger.level)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelWarn, ParseLevel("warn"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Format: "text", Output: &buf})

	ctx := context.Background()
	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	assert.Empty(t, buf.String())

	logger.Warn(ctx, nil, "warn message")
	assert.Contains(t, buf.String(), "warn message")
}

func TestJSONOutputFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelInfo, Format: "json", Output: &buf, Component: "site"})

	logger.Info(context.Background(), "generated", "project_id", "demo-1")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "generated", record["msg"])
	assert.Equal(t, "site", record["component"])
	assert.Equal(t, "demo-1", record["project_id"])
}

func TestErrorAttached(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelInfo, Format: "json", Output: &buf})

	logger.Error(context.Background(), errors.New("boom"), "failed")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "boom", record["error"])
}

func TestWithAndComponent(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&Config{Level: LevelInfo, Format: "json", Output: &buf})

	derived := base.With("request_id", "abc").WithComponent("server")
	derived.Info(context.Background(), "handled")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "abc", record["request_id"])
	assert.Equal(t, "server", record["component"])
}

func TestNopLogger(t *testing.T) {
	var logger Logger = NopLogger{}
	// Must not panic and must keep returning a usable logger.
	logger.Info(context.Background(), "ignored")
	assert.NotNil(t, logger.With("k", "v").WithComponent("x"))
}
