package dataset

import (
	"context"
	"time"

	"github.com/fleming-ai/platform/pkg/common/logger"
	"github.com/fleming-ai/platform/pkg/common/models"
	"github.com/fleming-ai/platform/pkg/observability/metrics"
	"github.com/fleming-ai/platform/pkg/storage"
	"github.com/fleming-ai/platform/pkg/table"
	"github.com/fleming-ai/platform/pkg/terminology"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const eventSource = "dataset-service"

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// EventPublisher emits run lifecycle events to the event bus.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// FeatureCache stores the latest feature row per patient for score reads.
type FeatureCache interface {
	CacheLatest(ctx context.Context, set models.FeatureSet) error
}

// Runner executes dataset builds in the background, bounded by a worker
// semaphore. Each run is persisted through its whole lifecycle, its outcome
// is published to the event bus, and the final feature row of every patient
// lands in the feature cache.
type Runner struct {
	querier   Querier
	catalog   terminology.Catalog
	opts      Options
	repo      *storage.RunRepository
	cache     FeatureCache
	events    EventPublisher
	workerSem chan struct{}
}

func NewRunner(querier Querier, catalog terminology.Catalog, opts Options, repo *storage.RunRepository, cache FeatureCache, events EventPublisher, maxWorkers int) *Runner {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &Runner{
		querier:   querier,
		catalog:   catalog,
		opts:      opts.withDefaults(),
		repo:      repo,
		cache:     cache,
		events:    events,
		workerSem: make(chan struct{}, maxWorkers),
	}
}

// Enqueue records a new run and starts building in the background.
func (r *Runner) Enqueue(ctx context.Context, req models.BuildRequest) (models.DatasetRun, error) {
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = r.opts.BatchSize
	}

	run := &storage.RunModel{
		ID:           uuid.New(),
		Status:       StatusQueued,
		PatientCount: len(req.PatientIDs),
		BatchSize:    batchSize,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := r.repo.Create(ctx, run); err != nil {
		return models.DatasetRun{}, err
	}

	r.publish(ctx, "run.queued", map[string]interface{}{
		"run_id":        run.ID.String(),
		"patient_count": run.PatientCount,
	})

	go r.run(run.ID, req.PatientIDs, batchSize)
	return storage.ToDomain(run), nil
}

func (r *Runner) Get(ctx context.Context, id uuid.UUID) (models.DatasetRun, error) {
	run, err := r.repo.Get(ctx, id)
	if err != nil {
		return models.DatasetRun{}, err
	}
	return storage.ToDomain(run), nil
}

func (r *Runner) List(ctx context.Context, limit int) ([]models.DatasetRun, error) {
	runs, err := r.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	results := make([]models.DatasetRun, 0, len(runs))
	for i := range runs {
		results = append(results, storage.ToDomain(&runs[i]))
	}
	return results, nil
}

func (r *Runner) run(runID uuid.UUID, patientIDs []int64, batchSize int) {
	r.workerSem <- struct{}{}
	defer func() { <-r.workerSem }()

	ctx := context.Background()
	start := time.Now().UTC()
	if err := r.repo.Update(ctx, runID, map[string]interface{}{
		"status":     StatusRunning,
		"started_at": start,
	}); err != nil {
		logger.Log.WithError(err).Error("failed to mark run running")
	}

	opts := r.opts
	opts.BatchSize = batchSize
	builder := NewBuilder(r.querier, r.catalog, opts)

	result, diags, err := builder.Build(ctx, patientIDs)
	if err != nil {
		r.failRun(ctx, runID, err)
		return
	}

	r.cacheLatestRows(ctx, result)

	warningCounts := make(map[string]interface{})
	for code, count := range diags.CountByCode() {
		warningCounts[code] = count
	}

	completed := time.Now().UTC()
	if err := r.repo.Update(ctx, runID, map[string]interface{}{
		"status":         StatusCompleted,
		"row_count":      result.NumRows(),
		"column_count":   result.NumCols(),
		"warning_counts": datatypes.JSONMap(warningCounts),
		"completed_at":   completed,
	}); err != nil {
		logger.Log.WithError(err).Error("failed to mark run complete")
	}
	metrics.ObserveRunCompleted(result.NumRows(), diags.Len())

	r.publish(ctx, "run.completed", map[string]interface{}{
		"run_id":   runID.String(),
		"rows":     result.NumRows(),
		"columns":  result.NumCols(),
		"warnings": diags.Len(),
	})
}

func (r *Runner) failRun(ctx context.Context, runID uuid.UUID, err error) {
	logger.Log.WithError(err).WithField("run_id", runID).Error("dataset run failed")
	metrics.ObserveRunFailed()
	completed := time.Now().UTC()
	if updateErr := r.repo.Update(ctx, runID, map[string]interface{}{
		"status":        StatusFailed,
		"error_message": err.Error(),
		"completed_at":  completed,
	}); updateErr != nil {
		logger.Log.WithError(updateErr).Error("failed to mark run failed")
	}
	r.publish(ctx, "run.failed", map[string]interface{}{
		"run_id": runID.String(),
		"error":  err.Error(),
	})
}

// cacheLatestRows pushes each patient's last row into the feature cache.
// Rows keep the events-query ordering, so the last row of a patient's group
// is their most recent measurement.
func (r *Runner) cacheLatestRows(ctx context.Context, result *table.Table) {
	if r.cache == nil {
		return
	}
	groups, err := result.GroupBy(models.ColPersonID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to group rows for feature cache")
		return
	}
	builtAt := time.Now().UTC()
	cached := 0
	for _, group := range groups {
		last := group.Rows[len(group.Rows)-1]
		row := RowAt(result, last)
		set := models.FeatureSet{
			PersonID: row.PersonID,
			Features: row.Features(),
			BuiltAt:  builtAt,
		}
		if err := r.cache.CacheLatest(ctx, set); err != nil {
			logger.Log.WithError(err).WithField("person_id", row.PersonID).Error("failed to cache features")
			continue
		}
		cached++
	}
	metrics.ObserveFeatureSetsCached(cached)
}

func (r *Runner) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if r.events == nil {
		return
	}
	if err := r.events.PublishEvent(ctx, eventType, eventSource, data); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).Error("failed to publish run event")
	}
}
