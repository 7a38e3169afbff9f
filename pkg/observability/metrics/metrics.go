package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	runsCompleted     atomic.Int64
	runsFailed        atomic.Int64
	rowsProduced      atomic.Int64
	warningsTotal     atomic.Int64
	featureSetsCached atomic.Int64
)

func ObserveRunCompleted(rows, warnings int) {
	runsCompleted.Add(1)
	rowsProduced.Add(int64(rows))
	warningsTotal.Add(int64(warnings))
}

func ObserveRunFailed() {
	runsFailed.Add(1)
}

func ObserveFeatureSetsCached(count int) {
	featureSetsCached.Add(int64(count))
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP fleming_dataset_runs_completed_total Number of dataset runs completed since start.\n")
	fmt.Fprintf(w, "# TYPE fleming_dataset_runs_completed_total counter\n")
	fmt.Fprintf(w, "fleming_dataset_runs_completed_total %d\n", runsCompleted.Load())

	fmt.Fprintf(w, "# HELP fleming_dataset_runs_failed_total Number of dataset runs failed since start.\n")
	fmt.Fprintf(w, "# TYPE fleming_dataset_runs_failed_total counter\n")
	fmt.Fprintf(w, "fleming_dataset_runs_failed_total %d\n", runsFailed.Load())

	fmt.Fprintf(w, "# HELP fleming_dataset_rows_produced_total Number of wide feature rows produced by completed runs.\n")
	fmt.Fprintf(w, "# TYPE fleming_dataset_rows_produced_total counter\n")
	fmt.Fprintf(w, "fleming_dataset_rows_produced_total %d\n", rowsProduced.Load())

	fmt.Fprintf(w, "# HELP fleming_dataset_warnings_total Number of data-quality warnings accumulated by completed runs.\n")
	fmt.Fprintf(w, "# TYPE fleming_dataset_warnings_total counter\n")
	fmt.Fprintf(w, "fleming_dataset_warnings_total %d\n", warningsTotal.Load())

	fmt.Fprintf(w, "# HELP fleming_feature_sets_cached_total Number of per-patient feature sets written to the feature cache.\n")
	fmt.Fprintf(w, "# TYPE fleming_feature_sets_cached_total counter\n")
	fmt.Fprintf(w, "fleming_feature_sets_cached_total %d\n", featureSetsCached.Load())
}
