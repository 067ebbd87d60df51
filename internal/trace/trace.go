// Package trace loads pre-recorded request traces for replay. A trace is an
// ordered sequence of records; order defines relative scheduling only, not
// any execution-order guarantee.
package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record is a single trace entry. EmissionTimeMS is the planned send time in
// milliseconds relative to the run epoch. Records are immutable once loaded.
type Record struct {
	EmissionTimeMS float64 `json:"emission_time_ms" yaml:"emission_time_ms"`
	Prompt         string  `json:"prompt" yaml:"prompt"`
	InputLength    int     `json:"input_length" yaml:"input_length"`
	OutputLength   int     `json:"output_length" yaml:"output_length"`
	SLORatio       float64 `json:"slo_ratio" yaml:"slo_ratio"`
}

// MalformedTraceError reports a trace file that cannot be parsed into
// records. It is fatal: the run aborts before any request is sent.
type MalformedTraceError struct {
	Path  string
	Index int // Record index, -1 when the file as a whole is unreadable
	Field string
	Err   error
}

func (e *MalformedTraceError) Error() string {
	if e.Index >= 0 && e.Field != "" {
		return fmt.Sprintf("malformed trace %s: record %d: missing or invalid field %q", e.Path, e.Index, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("malformed trace %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("malformed trace %s", e.Path)
}

func (e *MalformedTraceError) Unwrap() error {
	return e.Err
}

// IsMalformedTrace reports whether err is a *MalformedTraceError.
func IsMalformedTrace(err error) bool {
	var mte *MalformedTraceError
	return errors.As(err, &mte)
}

// rawRecord uses pointers so missing fields are distinguishable from zero
// values. Semantic range checks (negative lengths etc.) are deliberately not
// performed here; that is the server's concern.
type rawRecord struct {
	EmissionTimeMS *float64 `json:"emission_time_ms" yaml:"emission_time_ms"`
	Prompt         *string  `json:"prompt" yaml:"prompt"`
	InputLength    *int     `json:"input_length" yaml:"input_length"`
	OutputLength   *int     `json:"output_length" yaml:"output_length"`
	SLORatio       *float64 `json:"slo_ratio" yaml:"slo_ratio"`
}

// Load reads an ordered trace from path. JSON is the native format; files
// ending in .yaml or .yml are parsed as a YAML sequence with the same field
// names.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []rawRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, &MalformedTraceError{Path: path, Index: -1, Err: err}
	}

	records := make([]Record, 0, len(raw))
	for i, r := range raw {
		if field := r.missingField(); field != "" {
			return nil, &MalformedTraceError{Path: path, Index: i, Field: field}
		}
		records = append(records, Record{
			EmissionTimeMS: *r.EmissionTimeMS,
			Prompt:         *r.Prompt,
			InputLength:    *r.InputLength,
			OutputLength:   *r.OutputLength,
			SLORatio:       *r.SLORatio,
		})
	}
	return records, nil
}

func (r *rawRecord) missingField() string {
	switch {
	case r.EmissionTimeMS == nil:
		return "emission_time_ms"
	case r.Prompt == nil:
		return "prompt"
	case r.InputLength == nil:
		return "input_length"
	case r.OutputLength == nil:
		return "output_length"
	case r.SLORatio == nil:
		return "slo_ratio"
	}
	return ""
}
