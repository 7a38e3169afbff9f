package preprocess

import (
	"time"

	"github.com/fleming-ai/platform/pkg/common/diag"
	"github.com/fleming-ai/platform/pkg/common/models"
	"github.com/fleming-ai/platform/pkg/table"
)

// AddMissingColumns guarantees schema uniformity across batches: every
// expected variable absent from the table is added filled with NaN, with a
// warning per added column. Applying it twice is a no-op.
func AddMissingColumns(t *table.Table, variables []string, diags *diag.Diagnostics) error {
	for _, variable := range variables {
		if t.HasColumn(variable) {
			continue
		}
		if err := t.AddColumn(variable, table.NaN()); err != nil {
			return err
		}
		diags.Warn(diag.CodeMissingColumn,
			"expected variable absent from batch, filled with NaN",
			map[string]interface{}{"variable": variable})
	}
	return nil
}

// CheckLength warns for every requested patient with zero observed rows in
// the batch. Silent data loss is surfaced, never fatal.
func CheckLength(t *table.Table, patientIDs []int64, diags *diag.Diagnostics) error {
	groups, err := t.GroupBy(models.ColPersonID)
	if err != nil {
		return err
	}
	observed := make(map[int64]bool, len(groups))
	for _, group := range groups {
		if id, ok := group.Key.Int(); ok {
			observed[id] = true
		}
	}
	for _, id := range patientIDs {
		if !observed[id] {
			diags.Warn(diag.CodeEmptyPatient,
				"patient has no measurement rows in batch",
				map[string]interface{}{"person_id": id})
		}
	}
	return nil
}

// FillLastUpto fills missing cells with the most recent value observed for
// the same patient, but only when that observation is at most horizon before
// the row's timestamp. The input must be ordered by measurement_datetime
// within each patient; shape and ordering are preserved. Only originally
// observed values are carried forward, so fills never cascade. When
// variables is nil, every column with at least one missing cell is
// processed.
func FillLastUpto(t *table.Table, variables []string, horizon time.Duration) error {
	if !t.HasColumn(models.ColMeasurementDatetime) {
		return &table.MissingColumnError{Column: models.ColMeasurementDatetime}
	}
	if variables == nil {
		variables = columnsWithMissing(t)
	}
	for _, variable := range variables {
		if !t.HasColumn(variable) {
			return &table.MissingColumnError{Column: variable}
		}
	}

	var groups []table.Group
	if t.HasColumn(models.ColPersonID) {
		var err error
		groups, err = t.GroupBy(models.ColPersonID)
		if err != nil {
			return err
		}
	} else {
		all := make([]int, t.NumRows())
		for i := range all {
			all[i] = i
		}
		groups = []table.Group{{Rows: all}}
	}

	for _, variable := range variables {
		observed := make(map[int]bool)
		for r := 0; r < t.NumRows(); r++ {
			cell, _ := t.At(r, variable)
			observed[r] = !cell.IsNaN()
		}
		for _, group := range groups {
			for i := len(group.Rows) - 1; i >= 0; i-- {
				r := group.Rows[i]
				if observed[r] {
					continue
				}
				currentCell, _ := t.At(r, models.ColMeasurementDatetime)
				current, ok := currentCell.Time()
				if !ok {
					continue
				}
				for j := i - 1; j >= 0; j-- {
					prev := group.Rows[j]
					if !observed[prev] {
						continue
					}
					prevCell, _ := t.At(prev, models.ColMeasurementDatetime)
					ts, ok := prevCell.Time()
					if !ok {
						continue
					}
					if current.Sub(ts) > horizon {
						break
					}
					value, _ := t.At(prev, variable)
					_ = t.Set(r, variable, value)
					break
				}
			}
		}
	}
	return nil
}

func columnsWithMissing(t *table.Table) []string {
	var variables []string
	for _, name := range t.Columns() {
		if name == models.ColMeasurementDatetime {
			continue
		}
		idx, _ := t.ColumnIndex(name)
		for r := 0; r < t.NumRows(); r++ {
			if t.Cell(r, idx).IsNaN() {
				variables = append(variables, name)
				break
			}
		}
	}
	return variables
}
