package trace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeTemp(t, "trace.json", `[
		{"emission_time_ms": 0, "prompt": "hello", "input_length": 1, "output_length": 4, "slo_ratio": 1.0},
		{"emission_time_ms": 250.5, "prompt": "world", "input_length": 2, "output_length": 8, "slo_ratio": 1.5}
	]`)

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 0.0, records[0].EmissionTimeMS)
	assert.Equal(t, "hello", records[0].Prompt)
	assert.Equal(t, 1, records[0].InputLength)
	assert.Equal(t, 4, records[0].OutputLength)
	assert.Equal(t, 1.0, records[0].SLORatio)

	// Order is preserved
	assert.Equal(t, 250.5, records[1].EmissionTimeMS)
	assert.Equal(t, 1.5, records[1].SLORatio)
}

func TestLoad_YAML(t *testing.T) {
	path := writeTemp(t, "trace.yaml", `
- emission_time_ms: 100
  prompt: hello
  input_length: 1
  output_length: 2
  slo_ratio: 1.0
`)

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 100.0, records[0].EmissionTimeMS)
	assert.Equal(t, "hello", records[0].Prompt)
}

func TestLoad_MissingField(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name:    "missing prompt",
			content: `[{"emission_time_ms": 0, "input_length": 1, "output_length": 2, "slo_ratio": 1.0}]`,
			field:   "prompt",
		},
		{
			name:    "missing emission time",
			content: `[{"prompt": "p", "input_length": 1, "output_length": 2, "slo_ratio": 1.0}]`,
			field:   "emission_time_ms",
		},
		{
			name:    "missing slo ratio",
			content: `[{"emission_time_ms": 0, "prompt": "p", "input_length": 1, "output_length": 2}]`,
			field:   "slo_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, "trace.json", tt.content)

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, IsMalformedTrace(err))

			var mte *MalformedTraceError
			require.ErrorAs(t, err, &mte)
			assert.Equal(t, 0, mte.Index)
			assert.Equal(t, tt.field, mte.Field)
		})
	}
}

func TestLoad_MissingFieldReportsRecordIndex(t *testing.T) {
	path := writeTemp(t, "trace.json", `[
		{"emission_time_ms": 0, "prompt": "ok", "input_length": 1, "output_length": 2, "slo_ratio": 1.0},
		{"emission_time_ms": 10, "prompt": "bad", "input_length": 1, "slo_ratio": 1.0}
	]`)

	_, err := Load(path)
	var mte *MalformedTraceError
	require.ErrorAs(t, err, &mte)
	assert.Equal(t, 1, mte.Index)
	assert.Equal(t, "output_length", mte.Field)
}

func TestLoad_WrongFieldType(t *testing.T) {
	path := writeTemp(t, "trace.json", `[{"emission_time_ms": "soon", "prompt": "p", "input_length": 1, "output_length": 2, "slo_ratio": 1.0}]`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsMalformedTrace(err))
}

func TestLoad_NotAnArray(t *testing.T) {
	path := writeTemp(t, "trace.json", `{"emission_time_ms": 0}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsMalformedTrace(err))
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.False(t, IsMalformedTrace(err))
}

func TestLoad_NoSemanticValidation(t *testing.T) {
	// Negative lengths are the server's concern, not the loader's
	path := writeTemp(t, "trace.json", `[{"emission_time_ms": -50, "prompt": "", "input_length": -1, "output_length": 0, "slo_ratio": 0}]`)

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, -1, records[0].InputLength)
}
