package severity

import "github.com/fleming-ai/platform/pkg/dataset"

// Score is the outcome of one severity computation. Components whose inputs
// were missing from the row are skipped rather than failing the whole
// score; Skipped records which ones, so callers can judge completeness.
type Score struct {
	Value      int      `json:"value"`
	Components []string `json:"components"`
	Skipped    []string `json:"skipped,omitempty"`
}

func (s *Score) add(name string, points int) {
	s.Value += points
	s.Components = append(s.Components, name)
}

func (s *Score) skip(name string) {
	s.Skipped = append(s.Skipped, name)
}

// SAPSII computes the Simplified Acute Physiology Score II over a wide
// feature row. Chronic-disease and admission-type components are not
// represented in the dataset and are always skipped.
func SAPSII(row dataset.FeatureRow) Score {
	var score Score

	if row.Age != nil {
		age := *row.Age
		switch {
		case age < 40:
			score.add("age", 0)
		case age <= 59:
			score.add("age", 7)
		case age <= 69:
			score.add("age", 12)
		case age <= 74:
			score.add("age", 15)
		case age <= 79:
			score.add("age", 16)
		default:
			score.add("age", 18)
		}
	} else {
		score.skip("age")
	}

	if row.HeartRate != nil {
		hr := *row.HeartRate
		switch {
		case hr < 40:
			score.add("heart_rate", 11)
		case hr < 70:
			score.add("heart_rate", 2)
		case hr < 120:
			score.add("heart_rate", 0)
		case hr < 160:
			score.add("heart_rate", 4)
		default:
			score.add("heart_rate", 7)
		}
	} else {
		score.skip("heart_rate")
	}

	if row.SystolicBP != nil {
		sbp := *row.SystolicBP
		switch {
		case sbp < 70:
			score.add("systolic_bp", 13)
		case sbp <= 99:
			score.add("systolic_bp", 5)
		case sbp <= 199:
			score.add("systolic_bp", 0)
		default:
			score.add("systolic_bp", 2)
		}
	} else {
		score.skip("systolic_bp")
	}

	if row.Temperature != nil {
		if *row.Temperature < 39 {
			score.add("temperature", 0)
		} else {
			score.add("temperature", 3)
		}
	} else {
		score.skip("temperature")
	}

	if row.GlasgowComa != nil {
		gcs := *row.GlasgowComa
		switch {
		case gcs < 6:
			score.add("glasgow_coma", 26)
		case gcs <= 8:
			score.add("glasgow_coma", 13)
		case gcs <= 10:
			score.add("glasgow_coma", 7)
		case gcs <= 13:
			score.add("glasgow_coma", 5)
		default:
			score.add("glasgow_coma", 0)
		}
	} else {
		score.skip("glasgow_coma")
	}

	return score
}

// IGS2 is the French designation of SAPS-II; the two are the same score.
func IGS2(row dataset.FeatureRow) Score {
	return SAPSII(row)
}

// SOFAInputs carries the organ-system values the SOFA score reads. PaO2 and
// dopamine are not part of the dataset's tracked variables and can only be
// supplied explicitly.
type SOFAInputs struct {
	PaO2        *float64 `json:"pao2,omitempty"`
	Platelets   *float64 `json:"platelets,omitempty"`
	Bilirubin   *float64 `json:"bilirubin,omitempty"`
	MeanBP      *float64 `json:"mean_bp,omitempty"`
	Dopamine    *float64 `json:"dopamine,omitempty"`
	GlasgowComa *float64 `json:"glasgow_coma_scale,omitempty"`
	Creatinine  *float64 `json:"creatinine,omitempty"`
}

// SOFAFromRow maps the dataset columns onto SOFA inputs.
func SOFAFromRow(row dataset.FeatureRow) SOFAInputs {
	return SOFAInputs{
		Platelets:   row.Platelets,
		Bilirubin:   row.Bilirubin,
		MeanBP:      row.MeanBP,
		GlasgowComa: row.GlasgowComa,
		Creatinine:  row.Creatinine,
	}
}

// SOFA computes the Sequential Organ Failure Assessment score. Each organ
// system with missing inputs is skipped.
func SOFA(in SOFAInputs) Score {
	var score Score

	if in.PaO2 != nil {
		pao2 := *in.PaO2
		switch {
		case pao2 < 100:
			score.add("respiration", 4)
		case pao2 < 200:
			score.add("respiration", 3)
		case pao2 < 300:
			score.add("respiration", 2)
		default:
			score.add("respiration", 1)
		}
	} else {
		score.skip("respiration")
	}

	if in.Platelets != nil {
		platelets := *in.Platelets
		switch {
		case platelets < 20:
			score.add("coagulation", 4)
		case platelets < 50:
			score.add("coagulation", 3)
		case platelets < 100:
			score.add("coagulation", 2)
		default:
			score.add("coagulation", 1)
		}
	} else {
		score.skip("coagulation")
	}

	if in.Bilirubin != nil {
		bilirubin := *in.Bilirubin
		switch {
		case bilirubin < 2:
			score.add("liver", 1)
		case bilirubin < 6:
			score.add("liver", 2)
		case bilirubin < 12:
			score.add("liver", 3)
		default:
			score.add("liver", 4)
		}
	} else {
		score.skip("liver")
	}

	switch {
	case in.Dopamine != nil && *in.Dopamine > 15:
		score.add("cardiovascular", 4)
	case in.Dopamine != nil && *in.Dopamine > 5:
		score.add("cardiovascular", 3)
	case in.Dopamine != nil:
		score.add("cardiovascular", 2)
	case in.MeanBP != nil && *in.MeanBP < 70:
		score.add("cardiovascular", 1)
	case in.MeanBP != nil:
		score.add("cardiovascular", 0)
	default:
		score.skip("cardiovascular")
	}

	if in.GlasgowComa != nil {
		gcs := *in.GlasgowComa
		switch {
		case gcs < 6:
			score.add("neurological", 4)
		case gcs < 9:
			score.add("neurological", 3)
		case gcs < 12:
			score.add("neurological", 2)
		default:
			score.add("neurological", 1)
		}
	} else {
		score.skip("neurological")
	}

	if in.Creatinine != nil {
		creatinine := *in.Creatinine
		switch {
		case creatinine > 5:
			score.add("renal", 4)
		case creatinine > 3.5:
			score.add("renal", 3)
		case creatinine > 2:
			score.add("renal", 2)
		default:
			score.add("renal", 1)
		}
	} else {
		score.skip("renal")
	}

	return score
}
