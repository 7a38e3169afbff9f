package storage

import (
	"context"
	"errors"
	"time"

	"github.com/fleming-ai/platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrRunNotFound = errors.New("dataset run not found")

type RunModel struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	Status        string            `gorm:"column:status"`
	PatientCount  int               `gorm:"column:patient_count"`
	BatchSize     int               `gorm:"column:batch_size"`
	RowCount      int               `gorm:"column:row_count"`
	ColumnCount   int               `gorm:"column:column_count"`
	WarningCounts datatypes.JSONMap `gorm:"column:warning_counts"`
	ErrorMessage  string            `gorm:"column:error_message"`
	CreatedAt     time.Time         `gorm:"column:created_at"`
	UpdatedAt     time.Time         `gorm:"column:updated_at"`
	StartedAt     *time.Time        `gorm:"column:started_at"`
	CompletedAt   *time.Time        `gorm:"column:completed_at"`
}

func (RunModel) TableName() string {
	return "dataset_runs"
}

type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&RunModel{})
}

func (r *RunRepository) Create(ctx context.Context, run *RunModel) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *RunRepository) Update(ctx context.Context, runID uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).Model(&RunModel{}).Where("id = ?", runID).Updates(updates).Error
}

func (r *RunRepository) Get(ctx context.Context, runID uuid.UUID) (*RunModel, error) {
	var run RunModel
	result := r.db.WithContext(ctx).First(&run, "id = ?", runID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	return &run, result.Error
}

func (r *RunRepository) List(ctx context.Context, limit int) ([]RunModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []RunModel
	result := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&runs)
	return runs, result.Error
}

// ToDomain converts the persisted row to the API-facing run record.
func ToDomain(run *RunModel) models.DatasetRun {
	result := models.DatasetRun{
		ID:           run.ID,
		Status:       run.Status,
		PatientCount: run.PatientCount,
		BatchSize:    run.BatchSize,
		RowCount:     run.RowCount,
		ColumnCount:  run.ColumnCount,
		ErrorMessage: run.ErrorMessage,
		CreatedAt:    run.CreatedAt,
		StartedAt:    run.StartedAt,
		CompletedAt:  run.CompletedAt,
	}
	if run.WarningCounts != nil {
		counts := make(map[string]int, len(run.WarningCounts))
		for code, value := range run.WarningCounts {
			switch n := value.(type) {
			case float64:
				counts[code] = int(n)
			case int:
				counts[code] = n
			}
		}
		result.WarningCounts = counts
	}
	return result
}
