package dataset

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fleming-ai/platform/pkg/common/diag"
	"github.com/fleming-ai/platform/pkg/common/logger"
	"github.com/fleming-ai/platform/pkg/common/models"
	"github.com/fleming-ai/platform/pkg/features"
	"github.com/fleming-ai/platform/pkg/table"
	"github.com/fleming-ai/platform/pkg/terminology"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

var (
	t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

func testCatalog() terminology.Catalog {
	return terminology.Catalog{Concepts: map[string]terminology.Concept{
		"heart-rate": {
			Display:   "Heart rate",
			ConceptID: 3027018,
			Kind:      terminology.KindNumeric,
		},
		"heart-rate-rhythm": {
			Display:   "Heart rate rhythm",
			ConceptID: 3022318,
			Kind:      terminology.KindCategorical,
		},
	}}
}

type fakeEvent struct {
	personID int64
	at       time.Time
	concept  string
	value    string
	death    time.Time
}

// fakeQuerier serves canned OMOP rows, dispatching on the shape of the
// generated SQL and honoring the patient filter of the events query.
type fakeQuerier struct {
	events []fakeEvent
	meta   [][]table.Value
}

func (f *fakeQuerier) Query(_ context.Context, query string) (*table.Table, error) {
	switch {
	case strings.Contains(query, "person p"):
		return f.metadataTable()
	case strings.Contains(query, "left join"):
		return f.eventsTable(patientFilter(query))
	default:
		return f.vocabularyTable()
	}
}

func patientFilter(query string) map[int64]bool {
	marker := "m.person_id in ("
	start := strings.Index(query, marker)
	if start < 0 {
		return nil
	}
	rest := query[start+len(marker):]
	end := strings.Index(rest, ")")
	ids := make(map[int64]bool)
	for _, part := range strings.Split(rest[:end], ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			ids[id] = true
		}
	}
	return ids
}

func (f *fakeQuerier) metadataTable() (*table.Table, error) {
	tab := table.New(models.ColPersonID, models.ColGender, models.ColRace, models.ColBirthDatetime)
	for _, row := range f.meta {
		if err := tab.AppendRow(row...); err != nil {
			return nil, err
		}
	}
	return tab, nil
}

func (f *fakeQuerier) eventsTable(ids map[int64]bool) (*table.Table, error) {
	tab := table.New(
		models.ColPersonID,
		models.ColMeasurementDatetime,
		models.ColConceptName,
		models.ColValueSource,
		models.ColUnitSource,
		models.ColDeathDatetime,
	)
	for _, ev := range f.events {
		if !ids[ev.personID] {
			continue
		}
		if err := tab.AppendRow(
			table.Int(ev.personID),
			table.Time(ev.at),
			table.String(ev.concept),
			table.String(ev.value),
			table.NaN(),
			table.Time(ev.death),
		); err != nil {
			return nil, err
		}
	}
	return tab, nil
}

func (f *fakeQuerier) vocabularyTable() (*table.Table, error) {
	tab := table.New(models.ColConceptName, models.ColValueSource)
	seen := make(map[string]bool)
	for _, ev := range f.events {
		if ev.concept != "Heart rate rhythm" {
			continue
		}
		key := ev.concept + "\x1f" + ev.value
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := tab.AppendRow(table.String(ev.concept), table.String(ev.value)); err != nil {
			return nil, err
		}
	}
	return tab, nil
}

func newFakeQuerier() *fakeQuerier {
	death2 := t0
	return &fakeQuerier{
		events: []fakeEvent{
			{personID: 1, at: t0, concept: "Heart rate", value: "80"},
			{personID: 1, at: t0, concept: "Heart rate rhythm", value: "sinus"},
			{personID: 1, at: t1, concept: "Heart rate", value: "90"},
			{personID: 2, at: t0, concept: "Heart rate", value: "120/2", death: death2},
			{personID: 2, at: t0, concept: "Heart rate rhythm", value: "afib", death: death2},
			{personID: 4, at: t0, concept: "Heart rate", value: "70"},
		},
		meta: [][]table.Value{
			{table.Int(1), table.String("M"), table.String("white"), table.Time(time.Date(1984, 3, 1, 0, 0, 0, 0, time.UTC))},
			{table.Int(2), table.String("F"), table.String("asian"), table.Time(time.Date(1950, 3, 1, 0, 0, 0, 0, time.UTC))},
		},
	}
}

func buildOpts(batchSize int) Options {
	return Options{
		BatchSize:          batchSize,
		RollingAvgVariable: "Heart rate",
		RollingWindowHours: 2,
		AgeRoundDecimals:   1,
	}
}

func TestBuildEndToEnd(t *testing.T) {
	builder := NewBuilder(newFakeQuerier(), testCatalog(), buildOpts(10))
	result, diags, err := builder.Build(context.Background(), []int64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	// Patient 3 has no events, patient 4 has no metadata.
	counts := diags.CountByCode()
	if counts[diag.CodeEmptyPatient] != 1 {
		t.Fatalf("expected one empty-patient warning, got %v", diags.Warnings())
	}
	if counts[diag.CodeMetadataDropped] != 1 {
		t.Fatalf("expected one metadata-dropped warning, got %v", diags.Warnings())
	}

	// Patient 1 has two timestamps, patient 2 one, patient 4 is dropped.
	if result.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", result.NumRows())
	}

	for _, name := range []string{
		"Heart rate rhythm_afib",
		"Heart rate rhythm_sinus",
		"Heart rate rhythm_NaN",
		"gender_F", "gender_M", "gender_NaN",
		models.ColAge,
		features.RollingAvgColumn("Heart rate", 2),
	} {
		if !result.HasColumn(name) {
			t.Fatalf("expected column %q, have %v", name, result.Columns())
		}
	}

	rows := make(map[string]FeatureRow)
	for r := 0; r < result.NumRows(); r++ {
		fr := RowAt(result, r)
		rows[fmt.Sprintf("%d@%s", fr.PersonID, fr.MeasurementTime.Format(time.RFC3339))] = fr
	}

	p1 := rows["1@"+t0.Format(time.RFC3339)]
	if p1.HeartRate == nil || *p1.HeartRate != 80 {
		t.Fatalf("unexpected heart rate for patient 1: %+v", p1)
	}
	if p1.Target != 0 || p1.SuperTarget != 0 {
		t.Fatalf("expected surviving patient labels 0, got %+v", p1)
	}
	if p1.Age == nil || *p1.Age != 40.0 {
		t.Fatalf("expected age 40.0, got %+v", p1.Age)
	}

	// The fraction value is parsed before numeric coercion.
	p2 := rows["2@"+t0.Format(time.RFC3339)]
	if p2.HeartRate == nil || *p2.HeartRate != 60 {
		t.Fatalf("expected 120/2 parsed to 60, got %+v", p2.HeartRate)
	}
	if p2.Target != 1 || p2.SuperTarget != 1 {
		t.Fatalf("expected deceased patient labels 1, got %+v", p2)
	}

	// The look-back average excludes the row's own timestamp.
	p1Later := rows["1@"+t1.Format(time.RFC3339)]
	avgName := features.RollingAvgColumn("Heart rate", 2)
	idx, _ := result.ColumnIndex(avgName)
	var avgCell table.Value
	for r := 0; r < result.NumRows(); r++ {
		fr := RowAt(result, r)
		if fr.PersonID == 1 && fr.MeasurementTime.Equal(t1) {
			avgCell = result.Cell(r, idx)
		}
	}
	if v, ok := avgCell.Float(); !ok || v != 80 {
		t.Fatalf("expected rolling average 80 at later row, got %v (%+v)", avgCell, p1Later)
	}
}

func TestBuildColumnOrderStableAcrossBatchSizes(t *testing.T) {
	patients := []int64{1, 2}

	single, _, err := NewBuilder(newFakeQuerier(), testCatalog(), buildOpts(1)).
		Build(context.Background(), patients)
	if err != nil {
		t.Fatalf("batch size 1 build failed: %v", err)
	}
	combined, _, err := NewBuilder(newFakeQuerier(), testCatalog(), buildOpts(2)).
		Build(context.Background(), patients)
	if err != nil {
		t.Fatalf("batch size 2 build failed: %v", err)
	}

	if !reflect.DeepEqual(single.Columns(), combined.Columns()) {
		t.Fatalf("column order differs between batch sizes:\n%v\n%v",
			single.Columns(), combined.Columns())
	}
	if single.NumRows() != combined.NumRows() {
		t.Fatalf("row counts differ: %d vs %d", single.NumRows(), combined.NumRows())
	}
}

func TestQueriesEmbedConceptAndPatientFilters(t *testing.T) {
	q := EventsQuery([]int64{3027018}, []int64{1, 2})
	if !strings.Contains(q, "3027018") || !strings.Contains(q, "1, 2") {
		t.Fatalf("unexpected events query: %s", q)
	}
	if !strings.Contains(VocabularyQuery([]int64{3022318}), "3022318") {
		t.Fatalf("unexpected vocabulary query")
	}
}
