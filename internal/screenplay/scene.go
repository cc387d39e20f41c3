package screenplay

import "strings"

// Format identifies the source screenplay format.
type Format string

const (
	FormatFDX Format = "fdx"
	FormatPDF Format = "pdf"
)

// ParseFormat converts a string into a known Format.
func ParseFormat(value string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatFDX:
		return FormatFDX, true
	case FormatPDF:
		return FormatPDF, true
	default:
		return "", false
	}
}

// LocationType is the interior/exterior designation from a scene heading.
type LocationType string

const (
	LocationInt     LocationType = "INT"
	LocationExt     LocationType = "EXT"
	LocationIntExt  LocationType = "INT/EXT"
	LocationUnknown LocationType = "UNKNOWN"
)

// TimeOfDay is the time designation from a scene heading.
type TimeOfDay string

const (
	TimeDay        TimeOfDay = "DAY"
	TimeNight      TimeOfDay = "NIGHT"
	TimeDawn       TimeOfDay = "DAWN"
	TimeDusk       TimeOfDay = "DUSK"
	TimeMorning    TimeOfDay = "MORNING"
	TimeEvening    TimeOfDay = "EVENING"
	TimeContinuous TimeOfDay = "CONTINUOUS"
	TimeUnknown    TimeOfDay = "UNKNOWN"
)

// ElementType classifies a scene body element.
type ElementType string

const (
	ElementAction        ElementType = "action"
	ElementDialogue      ElementType = "dialogue"
	ElementParenthetical ElementType = "parenthetical"
	ElementTransition    ElementType = "transition"
	ElementShot          ElementType = "shot"
)

// Element is one ordered body entry of a scene. Character is set only for
// dialogue and parentheticals.
type Element struct {
	Type      ElementType `json:"type"`
	Character string      `json:"character,omitempty"`
	Text      string      `json:"text"`
}

// Heading is the parsed slug line of a scene.
type Heading struct {
	LocationType LocationType `json:"location_type"`
	TimeOfDay    TimeOfDay    `json:"time_of_day"`
	Location     string       `json:"location"`
	Raw          string       `json:"raw"`
}

// Scene is a single parsed scene. Scenes are created once and never mutated.
type Scene struct {
	Number          int       `json:"number"`
	Heading         Heading   `json:"heading"`
	Elements        []Element `json:"elements"`
	Characters      []string  `json:"characters"`
	Text            string    `json:"text"`
	ParseConfidence float64   `json:"parse_confidence"`
}

// CharacterAppearances records the scene numbers a character speaks in.
type CharacterAppearances struct {
	Name   string `json:"name"`
	Scenes []int  `json:"scenes"`
}

// Document is a complete parsed screenplay. Scene order is scene-number
// order and is never rearranged after creation.
type Document struct {
	Title             string                 `json:"title,omitempty"`
	Format            Format                 `json:"format"`
	Scenes            []Scene                `json:"scenes"`
	Characters        []CharacterAppearances `json:"characters,omitempty"`
	Warnings          []string               `json:"warnings,omitempty"`
	OverallConfidence float64                `json:"overall_confidence"`
}

// BuildCharacterIndex aggregates speaking characters across scenes. First
// appearance order is preserved.
func BuildCharacterIndex(scenes []Scene) []CharacterAppearances {
	byName := make(map[string]*CharacterAppearances)
	var order []string
	for _, scene := range scenes {
		for _, name := range scene.Characters {
			appearance, ok := byName[name]
			if !ok {
				appearance = &CharacterAppearances{Name: name}
				byName[name] = appearance
				order = append(order, name)
			}
			appearance.Scenes = append(appearance.Scenes, scene.Number)
		}
	}
	index := make([]CharacterAppearances, 0, len(order))
	for _, name := range order {
		index = append(index, *byName[name])
	}
	return index
}
