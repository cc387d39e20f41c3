package taxonomy_test

import (
	"testing"

	"slate/internal/taxonomy"
)

func TestNormalizeFindingEnriches(t *testing.T) {
	cat := taxonomy.MustLoad()
	got, err := cat.NormalizeFinding(taxonomy.Finding{
		SceneNumber: 3,
		Class:       "fire",
		Likelihood:  4,
		Impact:      5,
		Description: "Open flame sweeps across the set while cast is present",
	})
	if err != nil {
		t.Fatalf("NormalizeFinding failed: %v", err)
	}
	if got.Class != "FIRE" || got.RuleID != "SEC-P-008" || got.Category != taxonomy.CategoryPhysical {
		t.Errorf("catalog fields = %s/%s/%s", got.Class, got.RuleID, got.Category)
	}
	if got.Severity != taxonomy.SeverityCritical {
		t.Errorf("severity = %s, want critical", got.Severity)
	}
	if got.Confidence != 0.8 {
		t.Errorf("default confidence = %v, want 0.8", got.Confidence)
	}
	if len(got.Measures) == 0 {
		t.Fatal("measures not resolved")
	}
	ids := map[string]bool{}
	for _, m := range got.Measures {
		ids[m.ID] = true
	}
	if !ids["FIRE-DEPT"] || !ids["SFX-CLEARANCE"] {
		t.Errorf("FIRE measures = %v", ids)
	}
	if got.ID == "" {
		t.Error("finding ID not assigned")
	}
	if got.Recommendation == "" {
		t.Error("empty recommendation should fall back to measure titles")
	}
}

func TestNormalizeFindingClampsScores(t *testing.T) {
	cat := taxonomy.MustLoad()
	got, err := cat.NormalizeFinding(taxonomy.Finding{Class: "STUNTS", Likelihood: 11, Impact: 0})
	if err != nil {
		t.Fatalf("NormalizeFinding failed: %v", err)
	}
	if got.Likelihood != 5 || got.Impact != 1 {
		t.Errorf("clamped scores = %d/%d, want 5/1", got.Likelihood, got.Impact)
	}
	if got.Severity != taxonomy.SeverityMedium {
		t.Errorf("severity = %s, want medium", got.Severity)
	}
	if got.Description == "" {
		t.Error("empty description should fall back to class summary")
	}
}

func TestNormalizeFindingAcceptsRuleID(t *testing.T) {
	cat := taxonomy.MustLoad()
	got, err := cat.NormalizeFinding(taxonomy.Finding{
		Class:      "SEC-P-008",
		Likelihood: 3,
		Impact:     3,
	})
	if err != nil {
		t.Fatalf("NormalizeFinding failed: %v", err)
	}
	if got.Class != "FIRE" || got.RuleID != "SEC-P-008" {
		t.Errorf("rule ID lookup = %s/%s, want FIRE/SEC-P-008", got.Class, got.RuleID)
	}
}

func TestNormalizeFindingRejectsUnknownClass(t *testing.T) {
	cat := taxonomy.MustLoad()
	if _, err := cat.NormalizeFinding(taxonomy.Finding{Class: "MADE_UP"}); err == nil {
		t.Fatal("unknown class must be rejected")
	}
}

func TestNormalizeFindingIgnoresClaimedSeverity(t *testing.T) {
	cat := taxonomy.MustLoad()
	got, err := cat.NormalizeFinding(taxonomy.Finding{
		Class:      "NOISE",
		Likelihood: 1,
		Impact:     1,
		Severity:   taxonomy.SeverityCritical,
	})
	if err != nil {
		t.Fatalf("NormalizeFinding failed: %v", err)
	}
	if got.Severity != taxonomy.SeverityInfo {
		t.Errorf("severity must be recomputed, got %s", got.Severity)
	}
}
