package dataset

import (
	"time"

	"github.com/fleming-ai/platform/pkg/common/models"
	"github.com/fleming-ai/platform/pkg/table"
)

// Stable column names of the tracked numeric variables in the output
// dataset. Severity-score consumers read these names.
const (
	VarHeartRate       = "Heart rate"
	VarRespiratoryRate = "Respiratory rate"
	VarSystolicBP      = "BP systolic"
	VarDiastolicBP     = "BP diastolic"
	VarMeanBP          = "Mean blood pressure"
	VarTemperature     = "Body temperature"
	VarSpO2            = "Oxygen saturation in Arterial blood"
	VarFiO2            = "Oxygen concentration breathed"
	VarGlasgowComa     = "Glasgow coma scale"
	VarSodium          = "Sodium"
	VarPotassium       = "Potassium"
	VarBilirubin       = "Bilirubin.total"
	VarLeukocytes      = "Leukocytes"
	VarPlatelets       = "Platelets"
	VarCreatinine      = "Creatinine"
)

// FeatureRow is a typed view over one row of the output dataset. Every
// clinical variable is optional; nil means not observed. Score consumers
// skip components whose inputs are nil.
type FeatureRow struct {
	PersonID        int64     `json:"person_id"`
	MeasurementTime time.Time `json:"measurement_datetime"`
	Target          int       `json:"target"`
	SuperTarget     int       `json:"super_target"`

	Age             *float64 `json:"age,omitempty"`
	HeartRate       *float64 `json:"heart_rate,omitempty"`
	RespiratoryRate *float64 `json:"respiratory_rate,omitempty"`
	SystolicBP      *float64 `json:"systolic_bp,omitempty"`
	DiastolicBP     *float64 `json:"diastolic_bp,omitempty"`
	MeanBP          *float64 `json:"mean_bp,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	SpO2            *float64 `json:"spo2,omitempty"`
	FiO2            *float64 `json:"fio2,omitempty"`
	GlasgowComa     *float64 `json:"glasgow_coma_scale,omitempty"`
	Sodium          *float64 `json:"sodium,omitempty"`
	Potassium       *float64 `json:"potassium,omitempty"`
	Bilirubin       *float64 `json:"bilirubin,omitempty"`
	Leukocytes      *float64 `json:"leukocytes,omitempty"`
	Platelets       *float64 `json:"platelets,omitempty"`
	Creatinine      *float64 `json:"creatinine,omitempty"`
}

// RowAt extracts the typed view of one dataset row. Columns absent from the
// table or holding non-numeric cells yield nil fields.
func RowAt(t *table.Table, row int) FeatureRow {
	fr := FeatureRow{}
	if cell, ok := t.At(row, models.ColPersonID); ok {
		fr.PersonID, _ = cell.Int()
	}
	if cell, ok := t.At(row, models.ColMeasurementDatetime); ok {
		fr.MeasurementTime, _ = cell.Time()
	}
	if cell, ok := t.At(row, models.ColTarget); ok {
		if v, ok := cell.Int(); ok {
			fr.Target = int(v)
		}
	}
	if cell, ok := t.At(row, models.ColSuperTarget); ok {
		if v, ok := cell.Int(); ok {
			fr.SuperTarget = int(v)
		}
	}

	fr.Age = floatAt(t, row, models.ColAge)
	fr.HeartRate = floatAt(t, row, VarHeartRate)
	fr.RespiratoryRate = floatAt(t, row, VarRespiratoryRate)
	fr.SystolicBP = floatAt(t, row, VarSystolicBP)
	fr.DiastolicBP = floatAt(t, row, VarDiastolicBP)
	fr.MeanBP = floatAt(t, row, VarMeanBP)
	fr.Temperature = floatAt(t, row, VarTemperature)
	fr.SpO2 = floatAt(t, row, VarSpO2)
	fr.FiO2 = floatAt(t, row, VarFiO2)
	fr.GlasgowComa = floatAt(t, row, VarGlasgowComa)
	fr.Sodium = floatAt(t, row, VarSodium)
	fr.Potassium = floatAt(t, row, VarPotassium)
	fr.Bilirubin = floatAt(t, row, VarBilirubin)
	fr.Leukocytes = floatAt(t, row, VarLeukocytes)
	fr.Platelets = floatAt(t, row, VarPlatelets)
	fr.Creatinine = floatAt(t, row, VarCreatinine)
	return fr
}

// Features flattens the optional fields into a map, used for caching the
// latest row per patient.
func (fr FeatureRow) Features() map[string]interface{} {
	out := map[string]interface{}{
		models.ColTarget:      fr.Target,
		models.ColSuperTarget: fr.SuperTarget,
	}
	put := func(name string, v *float64) {
		if v != nil {
			out[name] = *v
		}
	}
	put(models.ColAge, fr.Age)
	put(VarHeartRate, fr.HeartRate)
	put(VarRespiratoryRate, fr.RespiratoryRate)
	put(VarSystolicBP, fr.SystolicBP)
	put(VarDiastolicBP, fr.DiastolicBP)
	put(VarMeanBP, fr.MeanBP)
	put(VarTemperature, fr.Temperature)
	put(VarSpO2, fr.SpO2)
	put(VarFiO2, fr.FiO2)
	put(VarGlasgowComa, fr.GlasgowComa)
	put(VarSodium, fr.Sodium)
	put(VarPotassium, fr.Potassium)
	put(VarBilirubin, fr.Bilirubin)
	put(VarLeukocytes, fr.Leukocytes)
	put(VarPlatelets, fr.Platelets)
	put(VarCreatinine, fr.Creatinine)
	return out
}

// FromFeatures rebuilds the typed view from a flattened feature map, the
// inverse of Features. JSON round-trips turn every number into float64.
func FromFeatures(personID int64, features map[string]interface{}) FeatureRow {
	fr := FeatureRow{PersonID: personID}
	intOf := func(name string) int {
		switch v := features[name].(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
		return 0
	}
	fr.Target = intOf(models.ColTarget)
	fr.SuperTarget = intOf(models.ColSuperTarget)

	get := func(name string) *float64 {
		switch v := features[name].(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		}
		return nil
	}
	fr.Age = get(models.ColAge)
	fr.HeartRate = get(VarHeartRate)
	fr.RespiratoryRate = get(VarRespiratoryRate)
	fr.SystolicBP = get(VarSystolicBP)
	fr.DiastolicBP = get(VarDiastolicBP)
	fr.MeanBP = get(VarMeanBP)
	fr.Temperature = get(VarTemperature)
	fr.SpO2 = get(VarSpO2)
	fr.FiO2 = get(VarFiO2)
	fr.GlasgowComa = get(VarGlasgowComa)
	fr.Sodium = get(VarSodium)
	fr.Potassium = get(VarPotassium)
	fr.Bilirubin = get(VarBilirubin)
	fr.Leukocytes = get(VarLeukocytes)
	fr.Platelets = get(VarPlatelets)
	fr.Creatinine = get(VarCreatinine)
	return fr
}

func floatAt(t *table.Table, row int, name string) *float64 {
	cell, ok := t.At(row, name)
	if !ok {
		return nil
	}
	if f, ok := cell.Float(); ok {
		return &f
	}
	return nil
}
