package terminology

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	KindNumeric     = "numeric"
	KindCategorical = "categorical"
)

// Concept describes one tracked OMOP measurement concept: the concept name
// as it appears in measurement_concept_name, the standard concept ID used in
// queries, and whether values are numeric or categorical.
type Concept struct {
	Display   string `yaml:"display" json:"display"`
	ConceptID int64  `yaml:"concept_id" json:"concept_id"`
	Kind      string `yaml:"kind" json:"kind"`
	Unit      string `yaml:"unit,omitempty" json:"unit,omitempty"`
}

// Catalog is the fixed set of measurement concepts the pipeline extracts.
type Catalog struct {
	Concepts map[string]Concept `yaml:"concepts" json:"concepts"`
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Concepts) == 0 {
		return Catalog{}, fmt.Errorf("concept catalog empty")
	}
	return cat, nil
}

func (c Catalog) Lookup(key string) (Concept, bool) {
	if c.Concepts == nil {
		return Concept{}, false
	}
	concept, ok := c.Concepts[key]
	if ok {
		return concept, true
	}
	for k, v := range c.Concepts {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return Concept{}, false
}

// ConceptIDs returns every tracked concept ID, ordered by display name so
// generated SQL is stable.
func (c Catalog) ConceptIDs() []int64 {
	names := c.sortedNames("")
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		ids = append(ids, c.Concepts[name].ConceptID)
	}
	return ids
}

// NumericVariables returns display names of numeric concepts, sorted.
func (c Catalog) NumericVariables() []string {
	return c.displayNames(KindNumeric)
}

// CategoricalVariables returns display names of categorical concepts, sorted.
func (c Catalog) CategoricalVariables() []string {
	return c.displayNames(KindCategorical)
}

// CategoricalConceptIDs returns concept IDs of categorical concepts, used by
// the global vocabulary query.
func (c Catalog) CategoricalConceptIDs() []int64 {
	names := c.sortedNames(KindCategorical)
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		ids = append(ids, c.Concepts[name].ConceptID)
	}
	return ids
}

func (c Catalog) displayNames(kind string) []string {
	names := c.sortedNames(kind)
	displays := make([]string, 0, len(names))
	for _, name := range names {
		displays = append(displays, c.Concepts[name].Display)
	}
	return displays
}

func (c Catalog) sortedNames(kind string) []string {
	names := make([]string, 0, len(c.Concepts))
	for name, concept := range c.Concepts {
		if kind != "" && concept.Kind != kind {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultCatalog covers the vitals extracted by the original cohort study
// plus the labs consumed by the severity scores.
func DefaultCatalog() Catalog {
	return Catalog{Concepts: map[string]Concept{
		"heart-rate-rhythm": {
			Display:   "Heart rate rhythm",
			ConceptID: 3022318,
			Kind:      KindCategorical,
		},
		"respiratory-rate": {
			Display:   "Respiratory rate",
			ConceptID: 3024171,
			Kind:      KindNumeric,
			Unit:      "breaths/min",
		},
		"ventilator-settings": {
			Display:   "Ventilator settings",
			ConceptID: 3028354,
			Kind:      KindCategorical,
		},
		"bp-diastolic": {
			Display:   "BP diastolic",
			ConceptID: 3012888,
			Kind:      KindNumeric,
			Unit:      "mmHg",
		},
		"mean-blood-pressure": {
			Display:   "Mean blood pressure",
			ConceptID: 3027598,
			Kind:      KindNumeric,
			Unit:      "mmHg",
		},
		"bp-systolic": {
			Display:   "BP systolic",
			ConceptID: 3004249,
			Kind:      KindNumeric,
			Unit:      "mmHg",
		},
		"heart-rate": {
			Display:   "Heart rate",
			ConceptID: 3027018,
			Kind:      KindNumeric,
			Unit:      "bpm",
		},
		"body-temperature": {
			Display:   "Body temperature",
			ConceptID: 3020891,
			Kind:      KindNumeric,
			Unit:      "degC",
		},
		"spo2": {
			Display:   "Oxygen saturation in Arterial blood",
			ConceptID: 3016502,
			Kind:      KindNumeric,
			Unit:      "%",
		},
		"fio2": {
			Display:   "Oxygen concentration breathed",
			ConceptID: 3020716,
			Kind:      KindNumeric,
			Unit:      "%",
		},
		"glasgow-coma-scale": {
			Display:   "Glasgow coma scale",
			ConceptID: 3032652,
			Kind:      KindNumeric,
		},
		"sodium": {
			Display:   "Sodium",
			ConceptID: 3019550,
			Kind:      KindNumeric,
			Unit:      "mmol/L",
		},
		"potassium": {
			Display:   "Potassium",
			ConceptID: 3023103,
			Kind:      KindNumeric,
			Unit:      "mmol/L",
		},
		"bilirubin-total": {
			Display:   "Bilirubin.total",
			ConceptID: 3024128,
			Kind:      KindNumeric,
			Unit:      "mg/dL",
		},
		"leukocytes": {
			Display:   "Leukocytes",
			ConceptID: 3000905,
			Kind:      KindNumeric,
			Unit:      "10*3/uL",
		},
		"platelets": {
			Display:   "Platelets",
			ConceptID: 3024929,
			Kind:      KindNumeric,
			Unit:      "10*3/uL",
		},
		"creatinine": {
			Display:   "Creatinine",
			ConceptID: 3016723,
			Kind:      KindNumeric,
			Unit:      "mg/dL",
		},
	}}
}
