package taxonomy_test

import (
	"testing"

	"slate/internal/taxonomy"
)

func TestCatalogLoads(t *testing.T) {
	cat, err := taxonomy.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := len(cat.Classes()); got != 23 {
		t.Fatalf("expected 23 risk classes, got %d", got)
	}
}

func TestRuleIDAssignments(t *testing.T) {
	cat := taxonomy.MustLoad()
	cases := map[string]string{
		"STUNTS":             "SEC-P-001",
		"HEIGHT":             "SEC-P-006",
		"FIRE":               "SEC-P-008",
		"CROWD":              "SEC-P-013",
		"DANGEROUS_LOCATION": "SEC-E-001",
		"NOISE":              "SEC-E-004",
		"VIOLENCE":           "SEC-Y-001",
		"INTIMACY":           "SEC-Y-006",
	}
	for name, wantRule := range cases {
		cls, ok := cat.ClassByName(name)
		if !ok {
			t.Errorf("class %s missing from catalog", name)
			continue
		}
		if cls.RuleID != wantRule {
			t.Errorf("%s rule id = %s, want %s", name, cls.RuleID, wantRule)
		}
		back, ok := cat.ClassByRuleID(wantRule)
		if !ok || back.Name != name {
			t.Errorf("rule id %s resolves to %q, want %s", wantRule, back.Name, name)
		}
	}
}

func TestCategoryCounts(t *testing.T) {
	cat := taxonomy.MustLoad()
	counts := map[taxonomy.Category]int{}
	for _, cls := range cat.Classes() {
		counts[cls.Category]++
	}
	if counts[taxonomy.CategoryPhysical] != 13 {
		t.Errorf("physical classes = %d, want 13", counts[taxonomy.CategoryPhysical])
	}
	if counts[taxonomy.CategoryEnvironmental] != 4 {
		t.Errorf("environmental classes = %d, want 4", counts[taxonomy.CategoryEnvironmental])
	}
	if counts[taxonomy.CategoryPsychological] != 6 {
		t.Errorf("psychological classes = %d, want 6", counts[taxonomy.CategoryPsychological])
	}
}

func TestClassLookupIsCaseInsensitive(t *testing.T) {
	cat := taxonomy.MustLoad()
	if _, ok := cat.ClassByName(" fire "); !ok {
		t.Fatal("lowercase lookup should resolve")
	}
	if _, ok := cat.ClassByName("ARSON"); ok {
		t.Fatal("unknown class must not resolve")
	}
}

func TestMeasuresForDeduplicates(t *testing.T) {
	cat := taxonomy.MustLoad()
	measures := cat.MeasuresFor("STUNTS", "FALLS")
	seen := map[string]bool{}
	for _, m := range measures {
		if seen[m.ID] {
			t.Fatalf("duplicate measure %s", m.ID)
		}
		seen[m.ID] = true
	}
	if !seen["RIG-SAFETY"] || !seen["STUNT-COORD"] || !seen["MEDICAL-STANDBY"] {
		t.Fatalf("expected shared measures, got %v", seen)
	}
}

func TestMeasureCatalogDetails(t *testing.T) {
	cat := taxonomy.MustLoad()
	m, ok := cat.MeasureByID("RIG-SAFETY")
	if !ok {
		t.Fatal("RIG-SAFETY missing")
	}
	if m.Title != "Rigging und Sicherungsseile" {
		t.Errorf("title = %q", m.Title)
	}
	if m.Due != "shooting-3d" {
		t.Errorf("due = %q", m.Due)
	}
}
