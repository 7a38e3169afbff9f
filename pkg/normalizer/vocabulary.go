package normalizer

import (
	"sort"

	"github.com/fleming-ai/platform/pkg/common/diag"
	"github.com/fleming-ai/platform/pkg/table"
)

// Vocabulary maps a categorical variable name to its fixed, ordered category
// set. It is built once per pipeline run, before any batch is processed, so
// one-hot columns come out identical across batches. After that construction
// phase it must not be extended; values outside the vocabulary never become
// new columns.
type Vocabulary struct {
	categories map[string][]string
}

func NewVocabulary() *Vocabulary {
	return &Vocabulary{categories: make(map[string][]string)}
}

// Set fixes the category order for a variable. Overwriting an existing entry
// is allowed (last write wins) but reported as a warning.
func (v *Vocabulary) Set(variable string, values []string, diags *diag.Diagnostics) {
	if _, exists := v.categories[variable]; exists {
		diags.Warn(diag.CodeVocabularyOverwrite,
			"categories already derived for variable, overwriting",
			map[string]interface{}{"variable": variable})
	}
	v.categories[variable] = append([]string(nil), values...)
}

func (v *Vocabulary) Categories(variable string) ([]string, bool) {
	if v == nil {
		return nil, false
	}
	values, ok := v.categories[variable]
	if !ok {
		return nil, false
	}
	return append([]string(nil), values...), true
}

func (v *Vocabulary) Variables() []string {
	names := make([]string, 0, len(v.categories))
	for name := range v.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddCategories derives the distinct observed values of each named variable
// and stores them into the vocabulary. Categories are sorted so the order is
// reproducible regardless of row order.
func AddCategories(voc *Vocabulary, t *table.Table, variables []string, diags *diag.Diagnostics) error {
	for _, variable := range variables {
		idx, ok := t.ColumnIndex(variable)
		if !ok {
			return &table.MissingColumnError{Column: variable}
		}
		seen := make(map[string]bool)
		var values []string
		for r := 0; r < t.NumRows(); r++ {
			cell := t.Cell(r, idx)
			if cell.IsNaN() {
				continue
			}
			s := cell.String()
			if !seen[s] {
				seen[s] = true
				values = append(values, s)
			}
		}
		sort.Strings(values)
		voc.Set(variable, values, diags)
	}
	return nil
}
