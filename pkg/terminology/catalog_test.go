package terminology

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalogShape(t *testing.T) {
	cat := DefaultCatalog()
	if len(cat.Concepts) != 17 {
		t.Fatalf("expected 17 tracked concepts, got %d", len(cat.Concepts))
	}
	if len(cat.CategoricalVariables()) != 2 {
		t.Fatalf("expected 2 categorical concepts, got %v", cat.CategoricalVariables())
	}
	if len(cat.ConceptIDs()) != 17 {
		t.Fatalf("expected 17 concept IDs, got %d", len(cat.ConceptIDs()))
	}

	concept, ok := cat.Lookup("heart-rate")
	if !ok || concept.ConceptID != 3027018 {
		t.Fatalf("unexpected heart-rate concept: %+v", concept)
	}
}

func TestConceptIDOrderIsStable(t *testing.T) {
	cat := DefaultCatalog()
	first := cat.ConceptIDs()
	second := cat.ConceptIDs()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("concept ID order not stable: %v vs %v", first, second)
		}
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	cat, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cat.Concepts) == 0 {
		t.Fatal("expected default catalog")
	}
}

func TestLoadFromYAML(t *testing.T) {
	content := `
concepts:
  heart-rate:
    display: Heart rate
    concept_id: 3027018
    kind: numeric
    unit: bpm
  heart-rate-rhythm:
    display: Heart rate rhythm
    concept_id: 3022318
    kind: categorical
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cat.Concepts) != 2 {
		t.Fatalf("expected 2 concepts, got %d", len(cat.Concepts))
	}
	if vars := cat.NumericVariables(); len(vars) != 1 || vars[0] != "Heart rate" {
		t.Fatalf("unexpected numeric variables: %v", vars)
	}
}

func TestLoadRejectsEmptyCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("concepts: {}"), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}
