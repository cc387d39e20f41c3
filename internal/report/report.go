// Package report aggregates per-scene findings into the final safety report.
package report

import (
	"sort"
	"time"

	"slate/internal/analysis"
	"slate/internal/screenplay"
	"slate/internal/taxonomy"
)

// Summary condenses a report's findings for quick triage.
type Summary struct {
	OverallRisk        taxonomy.Severity         `json:"overall_risk"`
	TotalFindings      int                       `json:"total_findings"`
	ScenesWithFindings int                       `json:"scenes_with_findings"`
	SeverityCounts     map[taxonomy.Severity]int `json:"severity_counts"`
	CategoryCounts     map[taxonomy.Category]int `json:"category_counts"`
}

// Payload is the complete report as delivered to the caller.
type Payload struct {
	ReportID          string                            `json:"report_id"`
	JobID             string                            `json:"job_id"`
	Title             string                            `json:"title,omitempty"`
	Format            string                            `json:"format"`
	SceneCount        int                               `json:"scene_count"`
	Findings          []taxonomy.Finding                `json:"findings"`
	Summary           Summary                           `json:"summary"`
	Characters        []screenplay.CharacterAppearances `json:"characters,omitempty"`
	DegradedScenes    []int                             `json:"degraded_scenes,omitempty"`
	Warnings          []string                          `json:"warnings,omitempty"`
	ProcessingSeconds float64                           `json:"processing_seconds"`
	GeneratedAt       time.Time                         `json:"generated_at"`
}

// RowMetadata is the slice of the payload persisted on the report row, so
// pull retrieval carries the same context a push callback gets.
type RowMetadata struct {
	Title          string   `json:"title,omitempty"`
	Format         string   `json:"format"`
	SceneCount     int      `json:"scene_count"`
	DegradedScenes []int    `json:"degraded_scenes,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Metadata extracts the persistable metadata from a payload.
func (p *Payload) Metadata() RowMetadata {
	return RowMetadata{
		Title:          p.Title,
		Format:         p.Format,
		SceneCount:     p.SceneCount,
		DegradedScenes: p.DegradedScenes,
		Warnings:       p.Warnings,
	}
}

// Build assembles the report payload from an analysis result. Findings stay
// in scene order; the summary is recomputed here rather than trusted from
// upstream.
func Build(jobID string, result *analysis.Result, processing time.Duration) *Payload {
	findings := append([]taxonomy.Finding(nil), result.Findings...)
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].SceneNumber < findings[j].SceneNumber
	})

	summary := Summary{
		OverallRisk:    taxonomy.SeverityInfo,
		TotalFindings:  len(findings),
		SeverityCounts: make(map[taxonomy.Severity]int),
		CategoryCounts: make(map[taxonomy.Category]int),
	}
	scenes := make(map[int]struct{})
	for _, f := range findings {
		summary.SeverityCounts[f.Severity]++
		summary.CategoryCounts[f.Category]++
		scenes[f.SceneNumber] = struct{}{}
		if f.Severity.Worse(summary.OverallRisk) {
			summary.OverallRisk = f.Severity
		}
	}
	summary.ScenesWithFindings = len(scenes)

	return &Payload{
		JobID:             jobID,
		Title:             result.Title,
		Format:            result.Format,
		SceneCount:        result.SceneCount,
		Findings:          findings,
		Summary:           summary,
		Characters:        append([]screenplay.CharacterAppearances(nil), result.Characters...),
		DegradedScenes:    append([]int(nil), result.DegradedScenes...),
		Warnings:          append([]string(nil), result.Warnings...),
		ProcessingSeconds: processing.Seconds(),
		GeneratedAt:       time.Now().UTC(),
	}
}
