package report_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"slate/internal/analysis"
	"slate/internal/queue"
	"slate/internal/report"
	"slate/internal/screenplay"
	"slate/internal/taxonomy"
	"slate/internal/testsupport"
)

func analysisResult(t *testing.T) *analysis.Result {
	t.Helper()
	catalog := taxonomy.MustLoad()
	mk := func(scene int, class string, likelihood, impact int) taxonomy.Finding {
		f, err := catalog.NormalizeFinding(taxonomy.Finding{
			SceneNumber: scene,
			Class:       class,
			Likelihood:  likelihood,
			Impact:      impact,
			Confidence:  0.9,
			Description: "risk",
		})
		if err != nil {
			t.Fatalf("normalize %s: %v", class, err)
		}
		return f
	}
	return &analysis.Result{
		Title:      "LAST LIGHT",
		Format:     "fdx",
		SceneCount: 4,
		Findings: []taxonomy.Finding{
			mk(3, "FIRE", 4, 4),
			mk(1, "STUNTS", 2, 3),
			mk(1, "FALLS", 3, 4),
		},
		Characters: []screenplay.CharacterAppearances{
			{Name: "MARA", Scenes: []int{1, 3}},
		},
		DegradedScenes:    []int{4},
		Warnings:          []string{"scene 4 analysis degraded after 3 attempts: upstream unavailable"},
		OverallConfidence: 1.0,
	}
}

func TestBuildSummarizesFindings(t *testing.T) {
	payload := report.Build("job-1", analysisResult(t), 42*time.Second)

	if payload.Summary.TotalFindings != 3 {
		t.Fatalf("total = %d, want 3", payload.Summary.TotalFindings)
	}
	if payload.Summary.ScenesWithFindings != 2 {
		t.Fatalf("scenes with findings = %d, want 2", payload.Summary.ScenesWithFindings)
	}
	if payload.Summary.OverallRisk != taxonomy.SeverityCritical {
		t.Fatalf("overall risk = %s, want critical", payload.Summary.OverallRisk)
	}
	if payload.Summary.SeverityCounts[taxonomy.SeverityCritical] != 1 ||
		payload.Summary.SeverityCounts[taxonomy.SeverityHigh] != 1 ||
		payload.Summary.SeverityCounts[taxonomy.SeverityMedium] != 1 {
		t.Fatalf("severity counts = %v", payload.Summary.SeverityCounts)
	}
	if payload.Summary.CategoryCounts[taxonomy.CategoryPhysical] != 3 {
		t.Fatalf("category counts = %v", payload.Summary.CategoryCounts)
	}

	// Findings come back in scene order regardless of input order.
	if payload.Findings[0].SceneNumber != 1 || payload.Findings[2].SceneNumber != 3 {
		t.Fatalf("finding order = %+v", payload.Findings)
	}
	if payload.ProcessingSeconds != 42 {
		t.Fatalf("processing seconds = %f", payload.ProcessingSeconds)
	}
	if len(payload.DegradedScenes) != 1 || payload.DegradedScenes[0] != 4 {
		t.Fatalf("degraded scenes = %v", payload.DegradedScenes)
	}
	if len(payload.Characters) != 1 || payload.Characters[0].Name != "MARA" {
		t.Fatalf("character index = %+v", payload.Characters)
	}
}

func TestBuildEmptyResult(t *testing.T) {
	payload := report.Build("job-1", &analysis.Result{Format: "pdf", SceneCount: 2}, time.Second)
	if payload.Summary.OverallRisk != taxonomy.SeverityInfo {
		t.Fatalf("overall risk = %s, want info", payload.Summary.OverallRisk)
	}
	if payload.Summary.TotalFindings != 0 || payload.Summary.ScenesWithFindings != 0 {
		t.Fatalf("summary = %+v", payload.Summary)
	}
}

func TestStagePersistsReportAndStagesPayload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	buffers := testsupport.MustNewBuffer(t, cfg)
	s := report.NewStage(cfg, store, buffers, nil)

	job, _, err := store.NewJob(context.Background(), queue.NewJobParams{
		OwnerID:   "owner-1",
		Format:    "fdx",
		BufferKey: "buf:input",
	})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	encoded, err := json.Marshal(analysisResult(t))
	if err != nil {
		t.Fatalf("encode result: %v", err)
	}
	resultKey, err := buffers.Put(encoded, 0)
	if err != nil {
		t.Fatalf("stage result: %v", err)
	}
	job.AttachBufferKey(resultKey)

	if err := s.Prepare(context.Background(), job); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := s.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if job.ReportID == "" {
		t.Fatal("job must record its report ID")
	}

	data, err := buffers.Get(job.BufferKey)
	if err != nil {
		t.Fatalf("payload missing: %v", err)
	}
	var payload report.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.ReportID != job.ReportID {
		t.Fatalf("payload report ID = %s, job = %s", payload.ReportID, job.ReportID)
	}

	row, err := store.TakeReport(context.Background(), "owner-1", job.ReportID)
	if err != nil {
		t.Fatalf("TakeReport failed: %v", err)
	}
	var summary report.Summary
	if err := json.Unmarshal([]byte(row.RiskSummary), &summary); err != nil {
		t.Fatalf("decode stored summary: %v", err)
	}
	if summary.OverallRisk != taxonomy.SeverityCritical {
		t.Fatalf("stored overall risk = %s", summary.OverallRisk)
	}
	var findings []taxonomy.Finding
	if err := json.Unmarshal([]byte(row.FindingsJSON), &findings); err != nil {
		t.Fatalf("decode stored findings: %v", err)
	}
	if len(findings) != 3 {
		t.Fatalf("stored findings = %d", len(findings))
	}

	// Pull retrieval carries the same context the push payload does.
	var metadata report.RowMetadata
	if err := json.Unmarshal([]byte(row.MetadataJSON), &metadata); err != nil {
		t.Fatalf("decode stored metadata: %v", err)
	}
	if metadata.Title != "LAST LIGHT" || metadata.SceneCount != 4 {
		t.Fatalf("stored metadata = %+v", metadata)
	}
	if len(metadata.DegradedScenes) != 1 || metadata.DegradedScenes[0] != 4 {
		t.Fatalf("stored degraded scenes = %v", metadata.DegradedScenes)
	}
}
