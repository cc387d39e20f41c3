package taxonomy_test

import (
	"testing"

	"slate/internal/taxonomy"
)

func TestComputeSeverityThresholds(t *testing.T) {
	cases := []struct {
		likelihood, impact int
		want               taxonomy.Severity
	}{
		{4, 4, taxonomy.SeverityCritical},
		{5, 5, taxonomy.SeverityCritical},
		{2, 5, taxonomy.SeverityHigh},
		{3, 5, taxonomy.SeverityHigh},
		{3, 2, taxonomy.SeverityMedium},
		{1, 5, taxonomy.SeverityMedium},
		{2, 1, taxonomy.SeverityLow},
		{2, 2, taxonomy.SeverityLow},
		{1, 1, taxonomy.SeverityInfo},
	}
	for _, tc := range cases {
		if got := taxonomy.ComputeSeverity(tc.likelihood, tc.impact); got != tc.want {
			t.Errorf("ComputeSeverity(%d, %d) = %s, want %s", tc.likelihood, tc.impact, got, tc.want)
		}
	}
}

func TestComputeSeverityClampsInputs(t *testing.T) {
	if got := taxonomy.ComputeSeverity(9, 9); got != taxonomy.SeverityCritical {
		t.Errorf("out-of-range high inputs = %s, want critical", got)
	}
	if got := taxonomy.ComputeSeverity(0, -3); got != taxonomy.SeverityInfo {
		t.Errorf("out-of-range low inputs = %s, want info", got)
	}
}

func TestSeverityWorse(t *testing.T) {
	if !taxonomy.SeverityCritical.Worse(taxonomy.SeverityHigh) {
		t.Error("critical should outrank high")
	}
	if taxonomy.SeverityLow.Worse(taxonomy.SeverityMedium) {
		t.Error("low should not outrank medium")
	}
}
