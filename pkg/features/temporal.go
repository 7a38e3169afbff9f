package features

import (
	"fmt"
	"math"
	"time"

	"github.com/fleming-ai/platform/pkg/common/models"
	"github.com/fleming-ai/platform/pkg/table"
)

// AddAge appends an "age" column: whole days between birth and measurement
// divided by 365.25, rounded to the given number of decimals. The
// birth_datetime column is consumed and dropped.
func AddAge(t *table.Table, roundDecimals int) error {
	if !t.HasColumn(models.ColBirthDatetime) {
		return &table.MissingColumnError{Column: models.ColBirthDatetime}
	}
	if !t.HasColumn(models.ColMeasurementDatetime) {
		return &table.MissingColumnError{Column: models.ColMeasurementDatetime}
	}
	if err := t.AddColumn(models.ColAge, table.NaN()); err != nil {
		return err
	}
	for r := 0; r < t.NumRows(); r++ {
		birthCell, _ := t.At(r, models.ColBirthDatetime)
		measCell, _ := t.At(r, models.ColMeasurementDatetime)
		birth, okB := birthCell.Time()
		meas, okM := measCell.Time()
		if !okB || !okM {
			continue
		}
		days := math.Trunc(meas.Sub(birth).Hours() / 24)
		age := round(days/365.25, roundDecimals)
		_ = t.Set(r, models.ColAge, table.Float(age))
	}
	return t.DropColumn(models.ColBirthDatetime)
}

// AddTarget appends the measurement-relative mortality flag: 1 when the
// patient's recorded death is at or before the row's measurement timestamp,
// 0 otherwise, including when no death is recorded.
func AddTarget(t *table.Table) error {
	if !t.HasColumn(models.ColDeathDatetime) {
		return &table.MissingColumnError{Column: models.ColDeathDatetime}
	}
	if !t.HasColumn(models.ColMeasurementDatetime) {
		return &table.MissingColumnError{Column: models.ColMeasurementDatetime}
	}
	if err := t.AddColumn(models.ColTarget, table.Int(0)); err != nil {
		return err
	}
	for r := 0; r < t.NumRows(); r++ {
		deathCell, _ := t.At(r, models.ColDeathDatetime)
		measCell, _ := t.At(r, models.ColMeasurementDatetime)
		death, okD := deathCell.Time()
		meas, okM := measCell.Time()
		if okD && okM && !death.After(meas) {
			_ = t.Set(r, models.ColTarget, table.Int(1))
		}
	}
	return nil
}

// AddSuperTarget appends the stay-level outcome flag: a single per-patient
// value, 1 when a death is recorded for the patient at all, broadcast to
// every row of that patient. This is the eventual-outcome label, as opposed
// to the per-sample target.
func AddSuperTarget(t *table.Table) error {
	if !t.HasColumn(models.ColPersonID) {
		return &table.MissingColumnError{Column: models.ColPersonID}
	}
	if !t.HasColumn(models.ColDeathDatetime) {
		return &table.MissingColumnError{Column: models.ColDeathDatetime}
	}
	if err := t.AddColumn(models.ColSuperTarget, table.Int(0)); err != nil {
		return err
	}
	groups, err := t.GroupBy(models.ColPersonID)
	if err != nil {
		return err
	}
	for _, group := range groups {
		died := false
		for _, r := range group.Rows {
			cell, _ := t.At(r, models.ColDeathDatetime)
			if _, ok := cell.Time(); ok {
				died = true
				break
			}
		}
		if !died {
			continue
		}
		for _, r := range group.Rows {
			_ = t.Set(r, models.ColSuperTarget, table.Int(1))
		}
	}
	return nil
}

// RollingAvgColumn is the name of the column AddRollingAvg produces for a
// variable and window size.
func RollingAvgColumn(variable string, windowHours int) string {
	return fmt.Sprintf("%s avg h-%d", variable, windowHours)
}

// AddRollingAvg appends, per patient, the mean of the variable over the
// half-open look-back window [T-window, T). The row at exactly T is
// excluded, so the average is strictly causal. Rows with no qualifying
// earlier observation get NaN. The variable is expected to be numeric
// already; cells that are not are skipped.
func AddRollingAvg(t *table.Table, variable string, windowHours int) error {
	if !t.HasColumn(variable) {
		return &table.MissingColumnError{Column: variable}
	}
	if !t.HasColumn(models.ColMeasurementDatetime) {
		return &table.MissingColumnError{Column: models.ColMeasurementDatetime}
	}
	if !t.HasColumn(models.ColPersonID) {
		return &table.MissingColumnError{Column: models.ColPersonID}
	}
	name := RollingAvgColumn(variable, windowHours)
	if err := t.AddColumn(name, table.NaN()); err != nil {
		return err
	}
	window := time.Duration(windowHours) * time.Hour

	groups, err := t.GroupBy(models.ColPersonID)
	if err != nil {
		return err
	}
	for _, group := range groups {
		for _, r := range group.Rows {
			currentCell, _ := t.At(r, models.ColMeasurementDatetime)
			current, ok := currentCell.Time()
			if !ok {
				continue
			}
			lower := current.Add(-window)
			var sum float64
			var count int
			for _, other := range group.Rows {
				otherCell, _ := t.At(other, models.ColMeasurementDatetime)
				ts, ok := otherCell.Time()
				if !ok || ts.Before(lower) || !ts.Before(current) {
					continue
				}
				valueCell, _ := t.At(other, variable)
				if f, ok := valueCell.Float(); ok {
					sum += f
					count++
				}
			}
			if count > 0 {
				_ = t.Set(r, name, table.Float(sum/float64(count)))
			}
		}
	}
	return nil
}

func round(x float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(x*pow) / pow
}
