package table

import (
	"errors"
	"testing"
	"time"
)

func TestValueEquality(t *testing.T) {
	if !NaN().Equal(NaN()) {
		t.Fatal("expected NaN cells to compare equal")
	}
	if Float(1).Equal(Int(1)) {
		t.Fatal("expected float and int cells to differ")
	}
	if f, ok := Int(3).Float(); !ok || f != 3 {
		t.Fatalf("expected int cell to convert to float, got %v %v", f, ok)
	}
}

func TestAppendRowAndAccess(t *testing.T) {
	tab := New("a", "b")
	if err := tab.AppendRow(Int(1), String("x")); err != nil {
		t.Fatalf("failed to append row: %v", err)
	}
	if err := tab.AppendRow(Int(1)); err == nil {
		t.Fatal("expected width mismatch error")
	}
	cell, ok := tab.At(0, "b")
	if !ok || cell.String() != "x" {
		t.Fatalf("unexpected cell: %v %v", cell, ok)
	}
	if _, ok := tab.At(0, "missing"); ok {
		t.Fatal("expected missing column lookup to fail")
	}
}

func TestPivotFirstValueWins(t *testing.T) {
	long := New("person_id", "concept", "value")
	rows := [][]Value{
		{Int(1), String("Heart rate"), String("80")},
		{Int(1), String("Heart rate"), String("90")},
		{Int(1), String("Sodium"), String("140")},
		{Int(2), String("Sodium"), String("138")},
	}
	for _, row := range rows {
		if err := long.AppendRow(row...); err != nil {
			t.Fatalf("failed to append: %v", err)
		}
	}

	wide, err := Pivot(long, PivotSpec{Index: []string{"person_id"}, Columns: "concept", Values: "value"})
	if err != nil {
		t.Fatalf("pivot failed: %v", err)
	}
	if wide.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", wide.NumRows())
	}
	got, _ := wide.At(0, "Heart rate")
	if got.String() != "80" {
		t.Fatalf("expected first observed value to win, got %q", got.String())
	}
	if cell, _ := wide.At(1, "Heart rate"); !cell.IsNaN() {
		t.Fatalf("expected unobserved cell to stay NaN, got %v", cell)
	}
	cols := wide.Columns()
	if cols[0] != "person_id" || cols[1] != "Heart rate" || cols[2] != "Sodium" {
		t.Fatalf("unexpected column order: %v", cols)
	}
}

func TestPivotSkipsNaNConceptNames(t *testing.T) {
	long := New("person_id", "concept", "value")
	_ = long.AppendRow(Int(1), NaN(), String("80"))
	_ = long.AppendRow(Int(1), String("Sodium"), String("140"))

	wide, err := Pivot(long, PivotSpec{Index: []string{"person_id"}, Columns: "concept", Values: "value"})
	if err != nil {
		t.Fatalf("pivot failed: %v", err)
	}
	if wide.NumCols() != 2 {
		t.Fatalf("expected index plus one concept column, got %v", wide.Columns())
	}
}

func TestConcatAlignsByName(t *testing.T) {
	first := New("a", "b")
	_ = first.AppendRow(Int(1), Int(2))
	second := New("b", "a")
	_ = second.AppendRow(Int(20), Int(10))

	combined, err := Concat([]*Table{first, second})
	if err != nil {
		t.Fatalf("concat failed: %v", err)
	}
	if combined.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", combined.NumRows())
	}
	cell, _ := combined.At(1, "a")
	if v, _ := cell.Int(); v != 10 {
		t.Fatalf("expected aligned value 10, got %v", cell)
	}
}

func TestConcatRejectsMismatchedColumns(t *testing.T) {
	first := New("a")
	second := New("a", "b")
	_ = second.AppendRow(Int(1), Int(2))

	_, err := Concat([]*Table{first, second})
	var mismatch *ColumnMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected column mismatch error, got %v", err)
	}
}

func TestReorder(t *testing.T) {
	tab := New("a", "b", "c")
	_ = tab.AppendRow(Int(1), Int(2), Int(3))
	if err := tab.Reorder([]string{"c", "a", "b"}); err != nil {
		t.Fatalf("reorder failed: %v", err)
	}
	if cell := tab.Cell(0, 0); cell.String() != "3" {
		t.Fatalf("expected reordered first cell 3, got %v", cell)
	}
	if err := tab.Reorder([]string{"a", "b"}); err == nil {
		t.Fatal("expected incomplete reorder to fail")
	}
}

func TestGroupByOrder(t *testing.T) {
	tab := New("person_id")
	for _, id := range []int64{2, 1, 2, 3, 1} {
		_ = tab.AppendRow(Int(id))
	}
	groups, err := tab.GroupBy("person_id")
	if err != nil {
		t.Fatalf("group failed: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if id, _ := groups[0].Key.Int(); id != 2 {
		t.Fatalf("expected first-appearance order, got key %v", groups[0].Key)
	}
	if len(groups[0].Rows) != 2 || groups[0].Rows[1] != 2 {
		t.Fatalf("unexpected group rows: %v", groups[0].Rows)
	}
}

func TestTimeValueZeroIsNaN(t *testing.T) {
	if !Time(time.Time{}).IsNaN() {
		t.Fatal("expected zero time to map to NaN")
	}
}
