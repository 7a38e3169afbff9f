package diag

import (
	"github.com/fleming-ai/platform/pkg/common/logger"
)

// Warning codes used across the pipeline.
const (
	CodeVocabularyOverwrite = "vocabulary_overwrite"
	CodeMissingColumn       = "missing_column_filled"
	CodeEmptyPatient        = "empty_patient"
	CodeMetadataDropped     = "metadata_dropped"
)

// Warning is a structured record of a recoverable data-quality issue.
type Warning struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// Diagnostics accumulates warnings emitted while building a dataset so
// callers can inspect data-quality issues after the fact. Warnings are also
// mirrored to the log. The zero value is not usable; call New.
type Diagnostics struct {
	warnings []Warning
}

func New() *Diagnostics {
	return &Diagnostics{}
}

func (d *Diagnostics) Warn(code, message string, fields map[string]interface{}) {
	if d == nil {
		return
	}
	d.warnings = append(d.warnings, Warning{Code: code, Message: message, Fields: fields})
	if logger.Log != nil {
		entry := logger.WithField("code", code)
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		entry.Warn(message)
	}
}

func (d *Diagnostics) Warnings() []Warning {
	if d == nil {
		return nil
	}
	out := make([]Warning, len(d.warnings))
	copy(out, d.warnings)
	return out
}

func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	return len(d.warnings)
}

// CountByCode summarizes accumulated warnings, suitable for persisting with
// a dataset run record.
func (d *Diagnostics) CountByCode() map[string]int {
	counts := make(map[string]int)
	if d == nil {
		return counts
	}
	for _, w := range d.warnings {
		counts[w.Code]++
	}
	return counts
}
