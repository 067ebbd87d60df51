package results

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slobench/slobench/internal/slo"
	"github.com/slobench/slobench/pkg/models"
)

func sample() []*models.RequestResult {
	return []*models.RequestResult{
		{
			PromptLen:       12,
			OutputLen:       3,
			StartTime:       1700000000.123,
			EndTime:         1700000002.456,
			SLORatio:        1.5,
			TokenTimestamps: []float64{1700000000.301, 1700000000.402, 1700000000.503},
			LifetimeEvents:  json.RawMessage(`[{"event_type":"prefill_begin","timestamp":1700000000.2}]`),
		},
		{
			PromptLen:       4,
			OutputLen:       1,
			StartTime:       1700000000.5,
			EndTime:         1700000001.0,
			SLORatio:        1.0,
			TokenTimestamps: []float64{1700000000.75},
		},
	}
}

func TestWriteLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	original := sample()

	require.NoError(t, Write(path, original))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, len(original))

	for i := range original {
		assert.Equal(t, original[i].PromptLen, loaded[i].PromptLen)
		assert.Equal(t, original[i].OutputLen, loaded[i].OutputLen)
		assert.Equal(t, original[i].StartTime, loaded[i].StartTime)
		assert.Equal(t, original[i].EndTime, loaded[i].EndTime)
		assert.Equal(t, original[i].SLORatio, loaded[i].SLORatio)
		assert.Equal(t, original[i].TokenTimestamps, loaded[i].TokenTimestamps)
		if original[i].LifetimeEvents != nil {
			assert.JSONEq(t, string(original[i].LifetimeEvents), string(loaded[i].LifetimeEvents))
		}
	}
}

func TestWrite_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "nested", "results.json")

	require.NoError(t, Write(path, sample()))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestWrite_StableFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, Write(path, sample()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.NotEmpty(t, raw)

	for _, key := range []string{"prompt_len", "output_len", "start_time", "end_time", "slo_ratio", "token_timestamps"} {
		assert.Contains(t, raw[0], key)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestPrintSummary(t *testing.T) {
	report := slo.Report{
		Tally: slo.Tally{
			TotalRequests:     4,
			RequestsAttained:  3,
			TokensAttained:    120,
			TotalOutputTokens: 160,
		},
		TotalTimeSeconds:  8.0,
		RequestsPerSecond: 0.5,
		AttainmentRate:    0.75,
		TokenGoodput:      15.0,
	}

	var buf bytes.Buffer
	PrintSummary(&buf, report)

	out := buf.String()
	assert.Contains(t, out, "Total time: 8.00 s")
	assert.Contains(t, out, "0.50 requests/s")
	assert.Contains(t, out, "75.00%")
	assert.Contains(t, out, "3 / 4")
	assert.Contains(t, out, "15.00 tokens/s")
	assert.Contains(t, out, "120 / 160")
}
