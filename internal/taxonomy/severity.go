package taxonomy

// Severity is the qualitative risk rating derived from likelihood and impact.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// severityRank orders severities for comparisons; higher is worse.
var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Worse reports whether s is more severe than other.
func (s Severity) Worse(other Severity) bool {
	return severityRank[s] > severityRank[other]
}

// ComputeSeverity maps a likelihood and impact pair (each clamped to [1,5])
// onto the severity scale via their product. The thresholds are a fixed
// contract shared with report consumers.
func ComputeSeverity(likelihood, impact int) Severity {
	score := ClampScale(likelihood) * ClampScale(impact)
	switch {
	case score >= 16:
		return SeverityCritical
	case score >= 10:
		return SeverityHigh
	case score >= 5:
		return SeverityMedium
	case score >= 2:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// ClampScale forces a score onto the 1..5 scale.
func ClampScale(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}
