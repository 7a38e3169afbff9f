package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// MetadataQuery returns the one-shot query for immutable patient attributes.
func MetadataQuery() string {
	return `
select
    distinct p.person_id, p.gender_source_value gender,
    p.race_source_value race, p.birth_datetime
from
    person p
;`
}

// VocabularyQuery enumerates every distinct value ever observed for the
// categorical measurement concepts. It runs once per pipeline run, before
// any batch, so the category set is global rather than per batch.
func VocabularyQuery(conceptIDs []int64) string {
	return fmt.Sprintf(`
select
    distinct m.measurement_concept_name, m.value_source_value
from
    measurement m
where
    m.measurement_concept_id in (%s)
;`, joinInt64s(conceptIDs))
}

// EventsQuery returns the measurement events for a bounded batch of
// patients, joined with the death record so every event row carries the
// patient's death timestamp when one exists.
func EventsQuery(conceptIDs, patientIDs []int64) string {
	return fmt.Sprintf(`
select
    distinct m.person_id, m.measurement_datetime,
    m.measurement_concept_name, m.value_source_value,
    m.unit_source_value, d.death_datetime
from
    measurement m
left join
    death d on d.person_id = m.person_id
where
    m.measurement_concept_id in (%s)
and m.person_id in (%s)
order by m.person_id, m.measurement_datetime
;`, joinInt64s(conceptIDs), joinInt64s(patientIDs))
}

func joinInt64s(values []int64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ", ")
}
