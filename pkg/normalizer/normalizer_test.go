package normalizer

import (
	"errors"
	"reflect"
	"testing"

	"github.com/fleming-ai/platform/pkg/common/diag"
	"github.com/fleming-ai/platform/pkg/table"
)

func singleColumn(t *testing.T, name string, cells ...table.Value) *table.Table {
	t.Helper()
	tab := table.New(name)
	for _, cell := range cells {
		if err := tab.AppendRow(cell); err != nil {
			t.Fatalf("failed to build table: %v", err)
		}
	}
	return tab
}

func TestConvertFrac(t *testing.T) {
	tab := singleColumn(t, "v",
		table.String("4/2"),
		table.String("5/"),
		table.String("/5"),
		table.String("3/0"),
		table.String("abc"),
		table.String("7"),
		table.Float(1.5),
	)
	if err := ConvertFrac(tab, []string{"v"}); err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	expect := []table.Value{
		table.Float(2),
		table.Float(5),
		table.NaN(),
		table.NaN(),
		table.String("abc"),
		table.Float(7),
		table.Float(1.5),
	}
	for i, want := range expect {
		got := tab.Cell(i, 0)
		if !got.Equal(want) {
			t.Fatalf("row %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestToNumericLeavesUnparseable(t *testing.T) {
	tab := singleColumn(t, "v", table.String(" 80 "), table.String("abc"), table.NaN())
	if err := ToNumeric(tab, []string{"v"}); err != nil {
		t.Fatalf("to numeric failed: %v", err)
	}
	if !tab.Cell(0, 0).Equal(table.Float(80)) {
		t.Fatalf("expected parsed float, got %v", tab.Cell(0, 0))
	}
	if !tab.Cell(1, 0).Equal(table.String("abc")) {
		t.Fatalf("expected unparseable string untouched, got %v", tab.Cell(1, 0))
	}
	if !tab.Cell(2, 0).IsNaN() {
		t.Fatalf("expected NaN preserved, got %v", tab.Cell(2, 0))
	}
}

func TestToCategoricalAddsNaNCategory(t *testing.T) {
	tab := singleColumn(t, "rhythm", table.String("sinus"), table.NaN())
	if err := ToCategorical(tab, []string{"rhythm"}, nil); err != nil {
		t.Fatalf("to categorical failed: %v", err)
	}
	col, _ := tab.Column("rhythm")
	if !col.Categorical {
		t.Fatal("expected column marked categorical")
	}
	if !reflect.DeepEqual(col.Categories, []string{"sinus", NaNCategory}) {
		t.Fatalf("unexpected categories: %v", col.Categories)
	}
	if !tab.Cell(1, 0).Equal(table.String(NaNCategory)) {
		t.Fatalf("expected missing cell mapped to NaN category, got %v", tab.Cell(1, 0))
	}
}

func TestToOnehotRequiresCategorical(t *testing.T) {
	tab := singleColumn(t, "rhythm", table.String("sinus"))
	err := ToOnehot(tab, []string{"rhythm"})
	var notCat *table.NotCategoricalError
	if !errors.As(err, &notCat) {
		t.Fatalf("expected not-categorical error, got %v", err)
	}
}

func TestOnehotIdenticalAcrossDisjointBatches(t *testing.T) {
	voc := NewVocabulary()
	voc.Set("rhythm", []string{"afib", "sinus"}, nil)

	encode := func(cells ...table.Value) []string {
		tab := singleColumn(t, "rhythm", cells...)
		if err := ToCategorical(tab, []string{"rhythm"}, voc); err != nil {
			t.Fatalf("to categorical failed: %v", err)
		}
		if err := ToOnehot(tab, []string{"rhythm"}); err != nil {
			t.Fatalf("to onehot failed: %v", err)
		}
		return tab.Columns()
	}

	first := encode(table.String("sinus"))
	second := encode(table.String("afib"), table.NaN())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical columns across batches: %v vs %v", first, second)
	}
	want := []string{"rhythm_afib", "rhythm_sinus", "rhythm_" + NaNCategory}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("unexpected one-hot columns: %v", first)
	}
}

func TestOnehotValueOutsideVocabularyFiresNoColumn(t *testing.T) {
	voc := NewVocabulary()
	voc.Set("rhythm", []string{"sinus"}, nil)

	tab := singleColumn(t, "rhythm", table.String("paced"))
	if err := ToCategorical(tab, []string{"rhythm"}, voc); err != nil {
		t.Fatalf("to categorical failed: %v", err)
	}
	if err := ToOnehot(tab, []string{"rhythm"}); err != nil {
		t.Fatalf("to onehot failed: %v", err)
	}
	for c := 0; c < tab.NumCols(); c++ {
		if v, _ := tab.Cell(0, c).Int(); v != 0 {
			t.Fatalf("expected all-zero row for out-of-vocabulary value, got %v", tab.Columns())
		}
	}
}

func TestVocabularyOverwriteWarns(t *testing.T) {
	diags := diag.New()
	voc := NewVocabulary()
	voc.Set("rhythm", []string{"sinus"}, diags)
	voc.Set("rhythm", []string{"afib"}, diags)

	if diags.CountByCode()[diag.CodeVocabularyOverwrite] != 1 {
		t.Fatalf("expected one overwrite warning, got %v", diags.Warnings())
	}
	categories, ok := voc.Categories("rhythm")
	if !ok || !reflect.DeepEqual(categories, []string{"afib"}) {
		t.Fatalf("expected last write to win, got %v", categories)
	}
}

func TestAddCategoriesSortsObservedValues(t *testing.T) {
	tab := singleColumn(t, "rhythm",
		table.String("sinus"),
		table.String("afib"),
		table.String("sinus"),
		table.NaN(),
	)
	voc := NewVocabulary()
	if err := AddCategories(voc, tab, []string{"rhythm"}, nil); err != nil {
		t.Fatalf("add categories failed: %v", err)
	}
	categories, _ := voc.Categories("rhythm")
	if !reflect.DeepEqual(categories, []string{"afib", "sinus"}) {
		t.Fatalf("unexpected categories: %v", categories)
	}
}
