package dataset

import (
	"encoding/json"
	"testing"
)

func TestFeatureRoundTrip(t *testing.T) {
	hr := 82.0
	sodium := 141.0
	original := FeatureRow{
		PersonID:    7,
		Target:      1,
		SuperTarget: 1,
		HeartRate:   &hr,
		Sodium:      &sodium,
	}

	// The cache stores the flattened map as JSON, so numbers come back as
	// float64.
	payload, err := json.Marshal(original.Features())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var features map[string]interface{}
	if err := json.Unmarshal(payload, &features); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	restored := FromFeatures(7, features)
	if restored.PersonID != 7 || restored.Target != 1 || restored.SuperTarget != 1 {
		t.Fatalf("labels lost in round trip: %+v", restored)
	}
	if restored.HeartRate == nil || *restored.HeartRate != hr {
		t.Fatalf("heart rate lost in round trip: %+v", restored.HeartRate)
	}
	if restored.Sodium == nil || *restored.Sodium != sodium {
		t.Fatalf("sodium lost in round trip: %+v", restored.Sodium)
	}
	if restored.Creatinine != nil {
		t.Fatalf("expected unobserved variable to stay nil, got %v", *restored.Creatinine)
	}
}
