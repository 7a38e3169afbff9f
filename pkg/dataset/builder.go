package dataset

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fleming-ai/platform/pkg/common/diag"
	"github.com/fleming-ai/platform/pkg/common/logger"
	"github.com/fleming-ai/platform/pkg/common/models"
	"github.com/fleming-ai/platform/pkg/features"
	"github.com/fleming-ai/platform/pkg/normalizer"
	"github.com/fleming-ai/platform/pkg/preprocess"
	"github.com/fleming-ai/platform/pkg/table"
	"github.com/fleming-ai/platform/pkg/terminology"
)

// Options tune the dataset build. Zero values fall back to the defaults the
// original cohort study used.
type Options struct {
	// BatchSize bounds how many patients go into a single events query.
	BatchSize int
	// RollingAvgVariable is the numeric variable the look-back average is
	// derived for.
	RollingAvgVariable string
	RollingWindowHours int
	AgeRoundDecimals   int
	// FillHorizon bounds the forward-fill of missing numeric values; zero
	// disables the fill phase entirely.
	FillHorizon time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.RollingAvgVariable == "" {
		o.RollingAvgVariable = "Respiratory rate"
	}
	if o.RollingWindowHours <= 0 {
		o.RollingWindowHours = 2
	}
	if o.AgeRoundDecimals < 0 {
		o.AgeRoundDecimals = 1
	}
	return o
}

// Builder drives the whole dataset construction: metadata once, vocabulary
// once, then strictly sequential batches, each pivoted, labeled, normalized,
// reconciled and merged, finally concatenated into one table with a single
// stable column order.
type Builder struct {
	querier Querier
	catalog terminology.Catalog
	opts    Options
}

func NewBuilder(querier Querier, catalog terminology.Catalog, opts Options) *Builder {
	return &Builder{querier: querier, catalog: catalog, opts: opts.withDefaults()}
}

// Build produces the wide feature matrix for the given patients together
// with the diagnostics accumulated along the way. Backend query failures
// abort the run; data-quality issues do not.
func (b *Builder) Build(ctx context.Context, patientIDs []int64) (*table.Table, *diag.Diagnostics, error) {
	diags := diag.New()
	voc := normalizer.NewVocabulary()

	meta, err := b.loadMetadata(ctx, voc, diags)
	if err != nil {
		return nil, nil, err
	}

	if err := b.fixVocabulary(ctx, voc, diags); err != nil {
		return nil, nil, err
	}

	batches := partition(patientIDs, b.opts.BatchSize)
	outputs := make([]*table.Table, 0, len(batches))
	for i, batch := range batches {
		logger.WithFields(map[string]interface{}{
			"batch":    i + 1,
			"batches":  len(batches),
			"patients": len(batch),
		}).Info("processing batch")

		out, err := b.processBatch(ctx, batch, meta, voc, diags)
		if err != nil {
			return nil, nil, fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
		}
		outputs = append(outputs, out)
	}

	result, err := table.Concat(outputs)
	if err != nil {
		return nil, nil, err
	}
	if len(outputs) > 0 {
		// Pivot order is driven by which concept names appear first, so
		// later batches can disagree; the final dataset follows the first
		// batch's column order.
		if err := result.Reorder(outputs[0].Columns()); err != nil {
			return nil, nil, err
		}
	}
	return result, diags, nil
}

// loadMetadata fetches the immutable per-patient attributes and one-hot
// encodes gender and race with a vocabulary built from the full metadata
// table, so the encoding is identical for every batch.
func (b *Builder) loadMetadata(ctx context.Context, voc *normalizer.Vocabulary, diags *diag.Diagnostics) (*table.Table, error) {
	meta, err := b.querier.Query(ctx, MetadataQuery())
	if err != nil {
		return nil, fmt.Errorf("metadata query: %w", err)
	}
	demographics := []string{models.ColGender, models.ColRace}
	if err := normalizer.AddCategories(voc, meta, demographics, diags); err != nil {
		return nil, err
	}
	if err := normalizer.ToCategorical(meta, demographics, voc); err != nil {
		return nil, err
	}
	if err := normalizer.ToOnehot(meta, demographics); err != nil {
		return nil, err
	}
	return meta, nil
}

// fixVocabulary enumerates every distinct value of the categorical
// measurement concepts in one global query and freezes the category set
// before any batch runs. Concepts with no observed values still get an
// (empty) entry so per-batch derivation can never reintroduce drift.
func (b *Builder) fixVocabulary(ctx context.Context, voc *normalizer.Vocabulary, diags *diag.Diagnostics) error {
	conceptIDs := b.catalog.CategoricalConceptIDs()
	if len(conceptIDs) == 0 {
		return nil
	}
	observed, err := b.querier.Query(ctx, VocabularyQuery(conceptIDs))
	if err != nil {
		return fmt.Errorf("vocabulary query: %w", err)
	}

	values := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	for r := 0; r < observed.NumRows(); r++ {
		conceptCell, _ := observed.At(r, models.ColConceptName)
		valueCell, _ := observed.At(r, models.ColValueSource)
		if conceptCell.IsNaN() || valueCell.IsNaN() {
			continue
		}
		concept := conceptCell.String()
		value := valueCell.String()
		if seen[concept] == nil {
			seen[concept] = make(map[string]bool)
		}
		if !seen[concept][value] {
			seen[concept][value] = true
			values[concept] = append(values[concept], value)
		}
	}

	for _, variable := range b.catalog.CategoricalVariables() {
		sorted := append([]string(nil), values[variable]...)
		sort.Strings(sorted)
		voc.Set(variable, sorted, diags)
	}
	return nil
}

func (b *Builder) processBatch(ctx context.Context, batch []int64, meta *table.Table, voc *normalizer.Vocabulary, diags *diag.Diagnostics) (*table.Table, error) {
	events, err := b.querier.Query(ctx, EventsQuery(b.catalog.ConceptIDs(), batch))
	if err != nil {
		return nil, fmt.Errorf("events query: %w", err)
	}

	if err := preprocess.CheckLength(events, batch, diags); err != nil {
		return nil, err
	}
	if err := features.AddTarget(events); err != nil {
		return nil, err
	}
	if err := features.AddSuperTarget(events); err != nil {
		return nil, err
	}

	wide, err := table.Pivot(events, table.PivotSpec{
		Index: []string{
			models.ColMeasurementDatetime,
			models.ColTarget,
			models.ColSuperTarget,
			models.ColPersonID,
		},
		Columns: models.ColConceptName,
		Values:  models.ColValueSource,
	})
	if err != nil {
		return nil, err
	}

	numeric := b.catalog.NumericVariables()
	categorical := b.catalog.CategoricalVariables()
	expected := append(append([]string(nil), numeric...), categorical...)
	if err := preprocess.AddMissingColumns(wide, expected, diags); err != nil {
		return nil, err
	}

	if err := normalizer.ConvertFrac(wide, numeric); err != nil {
		return nil, err
	}
	if err := normalizer.ToNumeric(wide, numeric); err != nil {
		return nil, err
	}
	if b.opts.FillHorizon > 0 {
		if err := preprocess.FillLastUpto(wide, numeric, b.opts.FillHorizon); err != nil {
			return nil, err
		}
	}

	if err := normalizer.ToCategorical(wide, categorical, voc); err != nil {
		return nil, err
	}
	if err := normalizer.ToOnehot(wide, categorical); err != nil {
		return nil, err
	}

	if err := mergeMetadata(wide, meta, diags); err != nil {
		return nil, err
	}

	if err := features.AddAge(wide, b.opts.AgeRoundDecimals); err != nil {
		return nil, err
	}
	if err := features.AddRollingAvg(wide, b.opts.RollingAvgVariable, b.opts.RollingWindowHours); err != nil {
		return nil, err
	}
	return wide, nil
}

// mergeMetadata inner-joins the metadata columns onto the wide table by
// person_id. Rows for patients without a metadata record are dropped; this
// mirrors the source behavior but is surfaced through diagnostics since it
// can silently lose patients.
func mergeMetadata(wide, meta *table.Table, diags *diag.Diagnostics) error {
	metaRows := make(map[int64]int)
	metaGroups, err := meta.GroupBy(models.ColPersonID)
	if err != nil {
		return err
	}
	for _, group := range metaGroups {
		if id, ok := group.Key.Int(); ok {
			metaRows[id] = group.Rows[0]
		}
	}

	metaCols := make([]string, 0, meta.NumCols()-1)
	for _, name := range meta.Columns() {
		if name == models.ColPersonID {
			continue
		}
		metaCols = append(metaCols, name)
	}
	for _, name := range metaCols {
		if err := wide.AddColumn(name, table.NaN()); err != nil {
			return err
		}
	}

	keep := make([]int, 0, wide.NumRows())
	dropped := make(map[int64]bool)
	for r := 0; r < wide.NumRows(); r++ {
		idCell, _ := wide.At(r, models.ColPersonID)
		id, ok := idCell.Int()
		if !ok {
			continue
		}
		metaRow, found := metaRows[id]
		if !found {
			if !dropped[id] {
				dropped[id] = true
				diags.Warn(diag.CodeMetadataDropped,
					"patient has no metadata record, rows dropped from output",
					map[string]interface{}{"person_id": id})
			}
			continue
		}
		for _, name := range metaCols {
			value, _ := meta.At(metaRow, name)
			_ = wide.Set(r, name, value)
		}
		keep = append(keep, r)
	}
	wide.RetainRows(keep)
	return nil
}

func partition(patientIDs []int64, batchSize int) [][]int64 {
	var batches [][]int64
	for start := 0; start < len(patientIDs); start += batchSize {
		end := start + batchSize
		if end > len(patientIDs) {
			end = len(patientIDs)
		}
		batches = append(batches, patientIDs[start:end])
	}
	return batches
}
