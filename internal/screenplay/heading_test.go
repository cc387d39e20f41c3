package screenplay_test

import (
	"testing"

	"slate/internal/screenplay"
)

func TestParseHeadingEnglishAndGerman(t *testing.T) {
	cases := []struct {
		raw      string
		locType  screenplay.LocationType
		tod      screenplay.TimeOfDay
		location string
	}{
		{"INT. OFFICE - DAY", screenplay.LocationInt, screenplay.TimeDay, "OFFICE"},
		{"INNEN. BUERO - TAG", screenplay.LocationInt, screenplay.TimeDay, "BUERO"},
		{"INT./EXT. CAR - DUSK", screenplay.LocationIntExt, screenplay.TimeDusk, "CAR"},
		{"INNEN/AUSSEN. AUTO - DAEMMERUNG", screenplay.LocationIntExt, screenplay.TimeDusk, "AUTO"},
		{"EXT. ROOFTOP - NIGHT", screenplay.LocationExt, screenplay.TimeNight, "ROOFTOP"},
		{"AUSSEN. WALD - NACHT", screenplay.LocationExt, screenplay.TimeNight, "WALD"},
		{"ext. rooftop - night", screenplay.LocationExt, screenplay.TimeNight, "rooftop"},
		{"INT. WAREHOUSE - CONTINUOUS", screenplay.LocationInt, screenplay.TimeContinuous, "WAREHOUSE"},
		{"AUSSEN. SEE - DÄMMERUNG", screenplay.LocationExt, screenplay.TimeDusk, "SEE"},
	}
	for _, tc := range cases {
		got := screenplay.ParseHeading(tc.raw)
		if got.LocationType != tc.locType {
			t.Errorf("%q: location type = %s, want %s", tc.raw, got.LocationType, tc.locType)
		}
		if got.TimeOfDay != tc.tod {
			t.Errorf("%q: time of day = %s, want %s", tc.raw, got.TimeOfDay, tc.tod)
		}
		if got.Location != tc.location {
			t.Errorf("%q: location = %q, want %q", tc.raw, got.Location, tc.location)
		}
		if got.Raw != tc.raw {
			t.Errorf("%q: raw not preserved: %q", tc.raw, got.Raw)
		}
	}
}

func TestParseHeadingDegradesToUnknown(t *testing.T) {
	got := screenplay.ParseHeading("SOMEWHERE STRANGE")
	if got.LocationType != screenplay.LocationUnknown {
		t.Errorf("location type = %s, want UNKNOWN", got.LocationType)
	}
	if got.TimeOfDay != screenplay.TimeUnknown {
		t.Errorf("time of day = %s, want UNKNOWN", got.TimeOfDay)
	}
	if got.Location != "SOMEWHERE STRANGE" {
		t.Errorf("location = %q", got.Location)
	}
}

func TestParseHeadingDashedLocation(t *testing.T) {
	got := screenplay.ParseHeading("INT. SMITH - JONES LAW OFFICE - DAY")
	if got.TimeOfDay != screenplay.TimeDay {
		t.Fatalf("time of day = %s, want DAY", got.TimeOfDay)
	}
	if got.Location != "SMITH - JONES LAW OFFICE" {
		t.Fatalf("location = %q", got.Location)
	}
}

func TestParseHeadingNoTimeSegment(t *testing.T) {
	got := screenplay.ParseHeading("EXT. BEACH")
	if got.LocationType != screenplay.LocationExt {
		t.Fatalf("location type = %s", got.LocationType)
	}
	if got.TimeOfDay != screenplay.TimeUnknown {
		t.Fatalf("time of day = %s, want UNKNOWN", got.TimeOfDay)
	}
	if got.Location != "BEACH" {
		t.Fatalf("location = %q", got.Location)
	}
}

func TestParseHeadingDecomposedUmlauts(t *testing.T) {
	// A decomposed A + combining diaeresis must match the precomposed form.
	raw := "AUSSEN. SEE - DA\u0308MMERUNG"
	got := screenplay.ParseHeading(raw)
	if got.TimeOfDay != screenplay.TimeDusk {
		t.Fatalf("time of day = %s, want DUSK", got.TimeOfDay)
	}
}
