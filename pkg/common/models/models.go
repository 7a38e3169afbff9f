package models

import (
	"time"

	"github.com/google/uuid"
)

// Column names shared between the query layer and the pipeline stages.
// Metadata and event queries are expected to return these exact names.
const (
	ColPersonID            = "person_id"
	ColMeasurementDatetime = "measurement_datetime"
	ColConceptName         = "measurement_concept_name"
	ColValueSource         = "value_source_value"
	ColUnitSource          = "unit_source_value"
	ColDeathDatetime       = "death_datetime"
	ColBirthDatetime       = "birth_datetime"
	ColGender              = "gender"
	ColRace                = "race"
	ColTarget              = "target"
	ColSuperTarget         = "super_target"
	ColAge                 = "age"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // run.queued, run.completed, run.failed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// BuildRequest asks for a dataset covering the given patients. A zero
// BatchSize falls back to the configured default.
type BuildRequest struct {
	PatientIDs []int64 `json:"patient_ids"`
	BatchSize  int     `json:"batch_size,omitempty"`
}

// DatasetRun tracks one dataset build from request to completion.
type DatasetRun struct {
	ID            uuid.UUID      `json:"id"`
	Status        string         `json:"status"`
	PatientCount  int            `json:"patient_count"`
	BatchSize     int            `json:"batch_size"`
	RowCount      int            `json:"row_count"`
	ColumnCount   int            `json:"column_count"`
	WarningCounts map[string]int `json:"warning_counts,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// FeatureSet is the latest wide feature row of one patient, cached for
// severity-score reads.
type FeatureSet struct {
	PersonID int64                  `json:"person_id"`
	Features map[string]interface{} `json:"features"`
	BuiltAt  time.Time              `json:"built_at"`
}
