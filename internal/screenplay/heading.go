package screenplay

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Time-of-day tokens, English and German. German entries carry both the
// umlaut and the transliterated spelling since scripts arrive in either.
var timeTokens = map[string]TimeOfDay{
	// English
	"DAY":           TimeDay,
	"NIGHT":         TimeNight,
	"DAWN":          TimeDawn,
	"DUSK":          TimeDusk,
	"MORNING":       TimeMorning,
	"EVENING":       TimeEvening,
	"CONTINUOUS":    TimeContinuous,
	"CONT":          TimeContinuous,
	"LATER":         TimeContinuous,
	"SAME":          TimeContinuous,
	"MOMENTS LATER": TimeContinuous,
	// German
	"TAG":             TimeDay,
	"NACHT":           TimeNight,
	"MORGEN":          TimeMorning,
	"MORGENS":         TimeMorning,
	"ABEND":           TimeEvening,
	"ABENDS":          TimeEvening,
	"DÄMMERUNG":       TimeDusk,
	"DAEMMERUNG":      TimeDusk,
	"MORGENDÄMMERUNG": TimeDawn,
	"MORGENGRAUEN":    TimeDawn,
	"FORTLAUFEND":     TimeContinuous,
	"SPÄTER":          TimeContinuous,
	"SPAETER":         TimeContinuous,
}

// Location-type prefixes, longest match first.
var locationPrefixes = []struct {
	prefix string
	kind   LocationType
}{
	{"INT./EXT.", LocationIntExt},
	{"INT/EXT.", LocationIntExt},
	{"INT/EXT", LocationIntExt},
	{"I./E.", LocationIntExt},
	{"I/E.", LocationIntExt},
	{"EXT./INT.", LocationIntExt},
	{"EXT/INT.", LocationIntExt},
	{"INNEN/AUSSEN", LocationIntExt},
	{"AUSSEN/INNEN", LocationIntExt},
	{"INT.", LocationInt},
	{"INNEN", LocationInt},
	{"I.", LocationInt},
	{"EXT.", LocationExt},
	{"AUSSEN", LocationExt},
	{"E.", LocationExt},
}

// Separator between location and time-of-day (dash variants).
var headingSeparator = regexp.MustCompile(`\s*[-–—]\s*`)

// ParseHeading parses a slug line into its components. Extraction is
// best-effort; unknown location types or times degrade to UNKNOWN and the
// raw heading is always preserved.
func ParseHeading(heading string) Heading {
	raw := strings.TrimSpace(heading)
	// NFC normalization so decomposed umlauts compare equal.
	text := norm.NFC.String(raw)
	upper := strings.ToUpper(text)

	locType := LocationUnknown
	remainder := text
	for _, candidate := range locationPrefixes {
		if strings.HasPrefix(upper, candidate.prefix) {
			locType = candidate.kind
			remainder = strings.TrimSpace(text[len(candidate.prefix):])
			break
		}
	}

	parts := headingSeparator.Split(remainder, -1)
	var location, rawTime string
	if len(parts) >= 2 {
		location = strings.TrimSpace(strings.Join(parts[:len(parts)-1], " - "))
		rawTime = strings.ToUpper(strings.TrimSpace(parts[len(parts)-1]))
	} else {
		location = strings.TrimSpace(remainder)
	}
	location = strings.Trim(location, ". ")

	tod, ok := timeTokens[rawTime]
	if !ok {
		tod = TimeUnknown
	}
	if location == "" {
		location = raw
	}

	return Heading{
		LocationType: locType,
		TimeOfDay:    tod,
		Location:     location,
		Raw:          raw,
	}
}
