package pdfscript_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"slate/internal/pdfscript"
	"slate/internal/screenplay"
	"slate/internal/services"
)

type stubProvider struct {
	respond func(userPrompt string) (string, error)
}

func (s *stubProvider) CompleteJSON(_ context.Context, _, userPrompt string) (string, error) {
	return s.respond(userPrompt)
}

func (s *stubProvider) HealthCheck(context.Context) error { return nil }

const extractedText = `UNTITLED DRAFT

INT. OFFICE - DAY
MARA types. She stops.

EXT. ROOFTOP - NIGHT
She climbs the ledge.

INT. CAR - DAY
MARA grips the wheel.`

func validScene(action string) string {
	return `{"elements":[{"type":"action","character":"","text":"` + action + `"}],"confidence":0.9}`
}

func TestStructureBuildsDocument(t *testing.T) {
	provider := &stubProvider{respond: func(userPrompt string) (string, error) {
		return validScene("Structured body."), nil
	}}
	s := pdfscript.NewStructurer(provider, nil)

	doc, err := s.Structure(context.Background(), extractedText, []string{"page 4 produced no extractable text (possible scan, OCR not performed)"})
	if err != nil {
		t.Fatalf("Structure failed: %v", err)
	}
	if doc.Title != "UNTITLED DRAFT" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.Format != screenplay.FormatPDF {
		t.Errorf("format = %s", doc.Format)
	}
	if len(doc.Scenes) != 3 {
		t.Fatalf("expected 3 scenes, got %d", len(doc.Scenes))
	}
	for i, scene := range doc.Scenes {
		if scene.Number != i+1 {
			t.Errorf("scene %d numbered %d", i, scene.Number)
		}
	}
	if doc.Scenes[1].Heading.LocationType != screenplay.LocationExt {
		t.Errorf("scene 2 heading = %+v", doc.Scenes[1].Heading)
	}
	if len(doc.Warnings) != 1 {
		t.Errorf("extraction warnings must carry through, got %v", doc.Warnings)
	}
	if doc.OverallConfidence != 0.9 {
		t.Errorf("overall confidence = %v", doc.OverallConfidence)
	}
}

func TestStructureFallsBackPerBlock(t *testing.T) {
	// The second block fails both attempts; the document must still complete
	// with a minimal scene in position two.
	provider := &stubProvider{respond: func(userPrompt string) (string, error) {
		if strings.Contains(userPrompt, "ROOFTOP") {
			return "not json at all", nil
		}
		return validScene("Structured body."), nil
	}}
	s := pdfscript.NewStructurer(provider, nil)

	doc, err := s.Structure(context.Background(), extractedText, nil)
	if err != nil {
		t.Fatalf("Structure failed: %v", err)
	}
	if len(doc.Scenes) != 3 {
		t.Fatalf("expected 3 scenes, got %d", len(doc.Scenes))
	}

	degraded := doc.Scenes[1]
	if degraded.ParseConfidence != 0 {
		t.Errorf("degraded scene confidence = %v, want 0", degraded.ParseConfidence)
	}
	if len(degraded.Elements) != 0 {
		t.Errorf("degraded scene must be heading-only, got elements %+v", degraded.Elements)
	}
	if degraded.Heading.Raw == "" {
		t.Error("degraded scene must keep its heading")
	}
	if !strings.Contains(degraded.Text, "She climbs the ledge.") {
		t.Errorf("degraded scene text must keep the raw body, got %q", degraded.Text)
	}

	found := false
	for _, w := range doc.Warnings {
		if strings.Contains(w, "scene 2") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning for scene 2, got %v", doc.Warnings)
	}
}

func TestStructureRetriesOnce(t *testing.T) {
	calls := 0
	provider := &stubProvider{respond: func(string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient")
		}
		return validScene("Recovered."), nil
	}}
	s := pdfscript.NewStructurer(provider, nil)

	doc, err := s.Structure(context.Background(), "INT. LAB - DAY\nBeakers.", nil)
	if err != nil {
		t.Fatalf("Structure failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
	if doc.Scenes[0].Elements[0].Text != "Recovered." {
		t.Errorf("scene = %+v", doc.Scenes[0])
	}
}

func TestStructureRejectsHeadinglessText(t *testing.T) {
	provider := &stubProvider{respond: func(string) (string, error) {
		return validScene("x"), nil
	}}
	s := pdfscript.NewStructurer(provider, nil)

	_, err := s.Structure(context.Background(), "no slug lines anywhere", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStructureDialogueCharacters(t *testing.T) {
	provider := &stubProvider{respond: func(string) (string, error) {
		return `{"elements":[
			{"type":"action","character":"","text":"MARA turns."},
			{"type":"dialogue","character":"mara","text":"Go."}
		],"confidence":0.8}`, nil
	}}
	s := pdfscript.NewStructurer(provider, nil)

	doc, err := s.Structure(context.Background(), "INT. LAB - DAY\nMARA turns.\nMARA\nGo.", nil)
	if err != nil {
		t.Fatalf("Structure failed: %v", err)
	}
	scene := doc.Scenes[0]
	if len(scene.Characters) != 1 || scene.Characters[0] != "MARA" {
		t.Errorf("characters = %v", scene.Characters)
	}
	if doc.Characters[0].Name != "MARA" {
		t.Errorf("document character index = %+v", doc.Characters)
	}
}

func TestExtractRejectsGarbage(t *testing.T) {
	_, _, err := pdfscript.Extract([]byte("definitely not a pdf"), 500)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, _, err = pdfscript.Extract(nil, 500)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty input, got %v", err)
	}
}
