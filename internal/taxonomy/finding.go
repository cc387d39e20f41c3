package taxonomy

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Finding is one validated risk finding for a scene. Findings only exist in
// catalog terms: class, category, rule ID, and measures all come from the
// catalog, never from model output.
type Finding struct {
	ID             string    `json:"id"`
	SceneNumber    int       `json:"scene_number"`
	Class          string    `json:"risk_class"`
	Category       Category  `json:"category"`
	RuleID         string    `json:"rule_id"`
	Likelihood     int       `json:"likelihood"`
	Impact         int       `json:"impact"`
	Severity       Severity  `json:"severity"`
	Confidence     float64   `json:"confidence"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation"`
	Excerpt        string    `json:"excerpt,omitempty"`
	Characters     []string  `json:"characters,omitempty"`
	Measures       []Measure `json:"measures"`
}

const defaultConfidence = 0.8

// NormalizeFinding validates a raw model finding against the catalog and
// fills in the derived fields. The class name is the only trusted model
// output; scores are clamped, severity is recomputed, and category, rule ID,
// and measures are taken from the catalog. Unknown classes are an error so
// callers can discard the finding.
func (c *Catalog) NormalizeFinding(raw Finding) (Finding, error) {
	cls, ok := c.ClassByName(raw.Class)
	if !ok {
		// Models occasionally answer with the rule ID instead of the class name.
		cls, ok = c.ClassByRuleID(raw.Class)
	}
	if !ok {
		return Finding{}, fmt.Errorf("taxonomy: unknown risk class %q", raw.Class)
	}

	out := raw
	out.ID = uuid.NewString()
	out.Class = cls.Name
	out.Category = cls.Category
	out.RuleID = cls.RuleID
	out.Likelihood = ClampScale(raw.Likelihood)
	out.Impact = ClampScale(raw.Impact)
	out.Severity = ComputeSeverity(out.Likelihood, out.Impact)
	if raw.Confidence <= 0 || raw.Confidence > 1 {
		out.Confidence = defaultConfidence
	}
	out.Description = strings.TrimSpace(raw.Description)
	if out.Description == "" {
		out.Description = cls.Summary
	}
	out.Excerpt = strings.TrimSpace(raw.Excerpt)
	out.Measures = c.MeasuresFor(cls.Name)
	out.Recommendation = strings.TrimSpace(raw.Recommendation)
	if out.Recommendation == "" {
		out.Recommendation = recommendationFromMeasures(out.Measures)
	}
	return out, nil
}

// recommendationFromMeasures derives a fallback recommendation from the
// catalog measure titles when the model supplies none.
func recommendationFromMeasures(measures []Measure) string {
	if len(measures) == 0 {
		return ""
	}
	titles := make([]string, 0, len(measures))
	for _, m := range measures {
		titles = append(titles, m.Title)
	}
	return strings.Join(titles, "; ")
}
