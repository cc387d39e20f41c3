package fdx_test

import (
	"errors"
	"testing"

	"slate/internal/fdx"
	"slate/internal/screenplay"
	"slate/internal/services"
)

const sampleFDX = `<?xml version="1.0" encoding="UTF-8"?>
<FinalDraft DocumentType="Script" Template="No" Version="5">
  <Content>
    <Paragraph Type="Scene Heading"><Text>INT. OFFICE - DAY</Text></Paragraph>
    <Paragraph Type="Action"><Text>MARA shoves a stack of files off the desk.</Text></Paragraph>
    <Paragraph Type="Character"><Text>MARA (V.O.)</Text></Paragraph>
    <Paragraph Type="Parenthetical"><Text>(quietly)</Text></Paragraph>
    <Paragraph Type="Dialogue"><Text>Not today.</Text></Paragraph>
    <Paragraph Type="Transition"><Text>CUT TO:</Text></Paragraph>
    <Paragraph Type="Scene Heading"><Text>EXT. ROOFTOP - NIGHT</Text></Paragraph>
    <Paragraph Type="Action"><Text>She climbs the ledge without a harness.</Text></Paragraph>
    <Paragraph Type="Character"><Text>MARA</Text></Paragraph>
    <Paragraph Type="Dialogue"><Text>Hold the light steady.</Text></Paragraph>
  </Content>
  <TitlePage>
    <Content>
      <Paragraph Type="General"><Text>LAST LIGHT</Text></Paragraph>
    </Content>
  </TitlePage>
</FinalDraft>`

func TestParseSample(t *testing.T) {
	doc, err := fdx.Parse([]byte(sampleFDX))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.Title != "LAST LIGHT" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.Format != screenplay.FormatFDX {
		t.Errorf("format = %s", doc.Format)
	}
	if len(doc.Scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(doc.Scenes))
	}

	first := doc.Scenes[0]
	if first.Number != 1 {
		t.Errorf("scene numbers must be sequential from 1, got %d", first.Number)
	}
	if first.Heading.LocationType != screenplay.LocationInt || first.Heading.TimeOfDay != screenplay.TimeDay {
		t.Errorf("heading parsed as %+v", first.Heading)
	}
	if len(first.Elements) != 4 {
		t.Fatalf("scene 1: expected 4 elements, got %d", len(first.Elements))
	}
	if first.Elements[2].Type != screenplay.ElementDialogue || first.Elements[2].Character != "MARA" {
		t.Errorf("dialogue element = %+v", first.Elements[2])
	}
	if got := first.Characters; len(got) != 1 || got[0] != "MARA" {
		t.Errorf("scene 1 characters = %v", got)
	}

	second := doc.Scenes[1]
	if second.Number != 2 {
		t.Errorf("scene 2 number = %d", second.Number)
	}
	if second.Heading.LocationType != screenplay.LocationExt || second.Heading.TimeOfDay != screenplay.TimeNight {
		t.Errorf("scene 2 heading = %+v", second.Heading)
	}

	if doc.OverallConfidence != 1.0 {
		t.Errorf("overall confidence = %v", doc.OverallConfidence)
	}
	if len(doc.Characters) != 1 || doc.Characters[0].Name != "MARA" {
		t.Fatalf("character index = %+v", doc.Characters)
	}
	if got := doc.Characters[0].Scenes; len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("MARA scene appearances = %v", got)
	}
}

func TestParseRejectsDoctype(t *testing.T) {
	payload := `<?xml version="1.0"?>
<!DOCTYPE FinalDraft [<!ENTITY x "boom">]>
<FinalDraft><Content>
  <Paragraph Type="Scene Heading"><Text>INT. OFFICE - DAY</Text></Paragraph>
</Content></FinalDraft>`
	_, err := fdx.Parse([]byte(payload))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for DOCTYPE, got %v", err)
	}
}

func TestParseRejectsUndefinedEntity(t *testing.T) {
	payload := `<FinalDraft><Content>
  <Paragraph Type="Scene Heading"><Text>INT. OFFICE &bomb; DAY</Text></Paragraph>
</Content></FinalDraft>`
	_, err := fdx.Parse([]byte(payload))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for undefined entity, got %v", err)
	}
}

func TestParseRejectsMalformedXML(t *testing.T) {
	_, err := fdx.Parse([]byte(`<FinalDraft><Content>`))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseRejectsEmptyAndHeadingless(t *testing.T) {
	if _, err := fdx.Parse([]byte("  \n")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty input: expected validation error, got %v", err)
	}
	noScenes := `<FinalDraft><Content>
  <Paragraph Type="Action"><Text>Just action, no slug lines.</Text></Paragraph>
</Content></FinalDraft>`
	if _, err := fdx.Parse([]byte(noScenes)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("headingless input: expected validation error, got %v", err)
	}
}

func TestParseWarnsOnPreHeadingContent(t *testing.T) {
	payload := `<FinalDraft><Content>
  <Paragraph Type="Action"><Text>FADE IN on nothing in particular.</Text></Paragraph>
  <Paragraph Type="Scene Heading"><Text>INT. OFFICE - DAY</Text></Paragraph>
  <Paragraph Type="Action"><Text>A desk.</Text></Paragraph>
</Content></FinalDraft>`
	doc, err := fdx.Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(doc.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", doc.Warnings)
	}
}
