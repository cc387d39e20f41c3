package analysis

import (
	"slate/internal/screenplay"
	"slate/internal/taxonomy"
)

// Result is the outcome of analyzing a full document. It is staged in the
// buffer between the analysis and aggregation stages.
type Result struct {
	Title             string                            `json:"title,omitempty"`
	Format            string                            `json:"format"`
	SceneCount        int                               `json:"scene_count"`
	Findings          []taxonomy.Finding                `json:"findings"`
	Characters        []screenplay.CharacterAppearances `json:"characters,omitempty"`
	DegradedScenes    []int                             `json:"degraded_scenes,omitempty"`
	DroppedFindings   int                               `json:"dropped_findings,omitempty"`
	Warnings          []string                          `json:"warnings,omitempty"`
	OverallConfidence float64                           `json:"overall_confidence"`
}
