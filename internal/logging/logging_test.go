package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := Setup(Config{
		Level:  "info",
		Format: "json",
		Output: &buf,
	})

	logger.Info("test message", "key", "value")

	// Parse JSON output
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "test message", logEntry["msg"])
	assert.Equal(t, "value", logEntry["key"])
	assert.Equal(t, "INFO", logEntry["level"])
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := Setup(Config{
		Level:  "info",
		Format: "text",
		Output: &buf,
	})

	logger.Info("test message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "key=value")
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	logger := Setup(Config{
		Level:  "warn",
		Format: "text",
		Output: &buf,
	})

	logger.Info("should be dropped")
	assert.Empty(t, buf.String())

	logger.Warn("should be logged")
	assert.Contains(t, buf.String(), "should be logged")
}

func TestWithRunID(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunID(ctx, "run-123")

	runID, ok := ctx.Value(RunIDKey).(string)
	assert.True(t, ok)
	assert.Equal(t, "run-123", runID)
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{
		Level:  "info",
		Format: "json",
		Output: &buf,
	})

	ctx := context.Background()
	ctx = WithRunID(ctx, "run-123")
	ctx = WithDataset(ctx, "traces/burst.json")

	logger := Logger(ctx)
	logger.Info("test with context")

	output := buf.String()
	assert.Contains(t, output, "run-123")
	assert.Contains(t, output, "traces/burst.json")
}

func TestContextHandler_AddsContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Config{
		Level:  "info",
		Format: "json",
		Output: &buf,
	})

	ctx := WithRunID(context.Background(), "run-abc")
	logger.InfoContext(ctx, "test message")

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "test message", logEntry["msg"])
	assert.Equal(t, "run-abc", logEntry["run_id"])
}
