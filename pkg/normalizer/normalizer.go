package normalizer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fleming-ai/platform/pkg/table"
)

// NaNCategory is the explicit category missing values are mapped to when a
// column is converted to categorical, so one-hot encoding is total over the
// domain.
const NaNCategory = "NaN"

// ToCategorical converts the named columns to a categorical representation.
// Missing cells become the explicit NaN category. When a vocabulary is
// supplied the category set is aligned to exactly that vocabulary; observed
// values outside it stay in the column but fire no one-hot column. A nil
// vocabulary derives categories from the observed values.
func ToCategorical(t *table.Table, variables []string, voc *Vocabulary) error {
	for _, variable := range variables {
		idx, ok := t.ColumnIndex(variable)
		if !ok {
			return &table.MissingColumnError{Column: variable}
		}

		var categories []string
		if fixed, ok := voc.Categories(variable); ok {
			categories = fixed
		} else {
			seen := make(map[string]bool)
			for r := 0; r < t.NumRows(); r++ {
				cell := t.Cell(r, idx)
				if cell.IsNaN() {
					continue
				}
				s := cell.String()
				if !seen[s] {
					seen[s] = true
					categories = append(categories, s)
				}
			}
			sort.Strings(categories)
		}
		if !contains(categories, NaNCategory) {
			categories = append(categories, NaNCategory)
		}

		for r := 0; r < t.NumRows(); r++ {
			cell := t.Cell(r, idx)
			if cell.IsNaN() {
				_ = t.Set(r, variable, table.String(NaNCategory))
			} else if cell.Kind() != table.KindString {
				_ = t.Set(r, variable, table.String(cell.String()))
			}
		}

		col, _ := t.Column(variable)
		col.Categorical = true
		col.Categories = categories
	}
	return nil
}

// ToOnehot expands each categorical column into one binary indicator column
// per category, named "<variable>_<category>". The original columns are
// dropped and the indicator columns appended in variable order, category
// order. A column that was never converted to categorical is an error.
func ToOnehot(t *table.Table, variables []string) error {
	for _, variable := range variables {
		col, ok := t.Column(variable)
		if !ok {
			return &table.MissingColumnError{Column: variable}
		}
		if !col.Categorical {
			return &table.NotCategoricalError{Column: variable}
		}
	}

	for _, variable := range variables {
		col, _ := t.Column(variable)
		categories := append([]string(nil), col.Categories...)
		idx, _ := t.ColumnIndex(variable)

		fired := make([]string, t.NumRows())
		for r := 0; r < t.NumRows(); r++ {
			fired[r], _ = t.Cell(r, idx).Text()
		}
		if err := t.DropColumn(variable); err != nil {
			return err
		}
		for _, category := range categories {
			name := fmt.Sprintf("%s_%s", variable, category)
			if err := t.AddColumn(name, table.Int(0)); err != nil {
				return err
			}
			for r := 0; r < t.NumRows(); r++ {
				if fired[r] == category {
					_ = t.Set(r, name, table.Int(1))
				}
			}
		}
	}
	return nil
}

// ToNumeric coerces parseable string cells of the named columns to floats.
// Cells that cannot be parsed are left in their original form; downstream
// numeric operations fail at the point of use, not here.
func ToNumeric(t *table.Table, variables []string) error {
	for _, variable := range variables {
		idx, ok := t.ColumnIndex(variable)
		if !ok {
			return &table.MissingColumnError{Column: variable}
		}
		for r := 0; r < t.NumRows(); r++ {
			cell := t.Cell(r, idx)
			s, ok := cell.Text()
			if !ok {
				continue
			}
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				_ = t.Set(r, variable, table.Float(f))
			}
		}
	}
	return nil
}

// ConvertFrac parses string cells of the literal form "N/D" into the float
// N/D. Edge cases follow the source data conventions: an empty numerator is
// missing, an empty denominator means the numerator alone, a zero
// denominator is NaN rather than an error, already-numeric cells pass
// through, and unparseable strings are left untouched.
func ConvertFrac(t *table.Table, variables []string) error {
	for _, variable := range variables {
		idx, ok := t.ColumnIndex(variable)
		if !ok {
			return &table.MissingColumnError{Column: variable}
		}
		for r := 0; r < t.NumRows(); r++ {
			cell := t.Cell(r, idx)
			s, ok := cell.Text()
			if !ok {
				continue
			}
			if value, ok := parseFraction(s); ok {
				_ = t.Set(r, variable, value)
			}
		}
	}
	return nil
}

func parseFraction(s string) (table.Value, bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		if f, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err == nil {
			return table.Float(f), true
		}
		return table.NaN(), false
	}

	num := strings.TrimSpace(parts[0])
	den := strings.TrimSpace(parts[1])
	if num == "" {
		return table.NaN(), true
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return table.NaN(), false
	}
	if den == "" {
		return table.Float(n), true
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return table.NaN(), false
	}
	if d == 0 {
		return table.NaN(), true
	}
	return table.Float(n / d), true
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
