package screenplay_test

import (
	"reflect"
	"testing"

	"slate/internal/screenplay"
)

const threeSceneText = `WORKING TITLE
Draft 4, not for distribution

INT. OFFICE - DAY
MARA types at a cluttered desk.

EXT. ROOFTOP - NIGHT
Wind. MARA peers over the edge.

INNEN. BUERO - TAG
Der Raum ist leer.`

func TestSplitThreeScenes(t *testing.T) {
	preamble, blocks := screenplay.Split(threeSceneText)

	if preamble != "WORKING TITLE\nDraft 4, not for distribution" {
		t.Fatalf("preamble = %q", preamble)
	}
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	wantHeadings := []string{"INT. OFFICE - DAY", "EXT. ROOFTOP - NIGHT", "INNEN. BUERO - TAG"}
	for i, want := range wantHeadings {
		if blocks[i].Heading != want {
			t.Errorf("block %d heading = %q, want %q", i, blocks[i].Heading, want)
		}
	}
	if blocks[0].Body != "MARA types at a cluttered desk." {
		t.Errorf("block 0 body = %q", blocks[0].Body)
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	p1, b1 := screenplay.Split(threeSceneText)
	p2, b2 := screenplay.Split(threeSceneText)
	if p1 != p2 || !reflect.DeepEqual(b1, b2) {
		t.Fatal("identical input produced different splits")
	}
}

func TestSplitNoHeadings(t *testing.T) {
	preamble, blocks := screenplay.Split("just prose\nwith no slug lines")
	if len(blocks) != 0 {
		t.Fatalf("expected no blocks, got %d", len(blocks))
	}
	if preamble != "just prose\nwith no slug lines" {
		t.Fatalf("preamble = %q", preamble)
	}
}

func TestSplitHandlesWindowsLineEndings(t *testing.T) {
	_, blocks := screenplay.Split("INT. LAB - DAY\r\nBeakers bubble.\r\nEXT. YARD - DAY\r\nGrass.")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Body != "Beakers bubble." {
		t.Fatalf("block 0 body = %q", blocks[0].Body)
	}
}
