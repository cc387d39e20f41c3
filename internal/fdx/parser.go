// Package fdx parses Final Draft (FDX) screenplay files into the shared
// scene model.
//
// FDX is XML, so parsing is structural: paragraph types map directly to
// scene elements and no model assistance is involved. The decoder refuses
// DTDs, processing instructions, and custom entity definitions outright;
// screenplay files have no legitimate use for any of them.
package fdx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"slate/internal/screenplay"
	"slate/internal/services"
)

// Paragraph types defined by the Final Draft format.
const (
	paragraphSceneHeading  = "Scene Heading"
	paragraphAction        = "Action"
	paragraphCharacter     = "Character"
	paragraphDialogue      = "Dialogue"
	paragraphParenthetical = "Parenthetical"
	paragraphTransition    = "Transition"
	paragraphShot          = "Shot"
	paragraphGeneral       = "General"
)

type fdxFile struct {
	XMLName   xml.Name     `xml:"FinalDraft"`
	TitlePage fdxTitlePage `xml:"TitlePage"`
	Content   fdxContent   `xml:"Content"`
}

type fdxTitlePage struct {
	Content fdxContent `xml:"Content"`
}

type fdxContent struct {
	Paragraphs []fdxParagraph `xml:"Paragraph"`
}

type fdxParagraph struct {
	Type string   `xml:"Type,attr"`
	Text []string `xml:"Text"`
}

func (p fdxParagraph) text() string {
	return strings.TrimSpace(strings.Join(p.Text, ""))
}

// Parse converts raw FDX bytes into a Document. Structural XML problems and
// disallowed constructs are validation errors; a well-formed file with no
// scene headings is one too.
func Parse(data []byte) (*screenplay.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, services.Wrap(services.ErrValidation, "parsing", "fdx_parse", "empty document", nil)
	}
	if err := rejectUnsafeConstructs(data); err != nil {
		return nil, err
	}

	var file fdxFile
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = true
	if err := decoder.Decode(&file); err != nil {
		return nil, services.Wrap(services.ErrValidation, "parsing", "fdx_parse", "malformed FDX document", err)
	}

	doc := &screenplay.Document{
		Title:  titleFrom(file.TitlePage),
		Format: screenplay.FormatFDX,
	}

	var current *screenplay.Scene
	var pendingCharacter string
	sawPreHeadingContent := false

	finish := func() {
		if current == nil {
			return
		}
		current.Characters = speakingCharacters(current.Elements)
		current.Text = sceneText(*current)
		doc.Scenes = append(doc.Scenes, *current)
		current = nil
	}

	for _, para := range file.Content.Paragraphs {
		text := para.text()
		if text == "" {
			continue
		}
		if para.Type == paragraphSceneHeading {
			finish()
			current = &screenplay.Scene{
				Number:          len(doc.Scenes) + 1,
				Heading:         screenplay.ParseHeading(text),
				ParseConfidence: 1.0,
			}
			pendingCharacter = ""
			continue
		}
		if current == nil {
			sawPreHeadingContent = true
			continue
		}
		switch para.Type {
		case paragraphAction, paragraphGeneral:
			current.Elements = append(current.Elements, screenplay.Element{Type: screenplay.ElementAction, Text: text})
		case paragraphCharacter:
			pendingCharacter = normalizeCharacter(text)
		case paragraphDialogue:
			current.Elements = append(current.Elements, screenplay.Element{Type: screenplay.ElementDialogue, Character: pendingCharacter, Text: text})
		case paragraphParenthetical:
			current.Elements = append(current.Elements, screenplay.Element{Type: screenplay.ElementParenthetical, Character: pendingCharacter, Text: text})
		case paragraphTransition:
			current.Elements = append(current.Elements, screenplay.Element{Type: screenplay.ElementTransition, Text: text})
			pendingCharacter = ""
		case paragraphShot:
			current.Elements = append(current.Elements, screenplay.Element{Type: screenplay.ElementShot, Text: text})
		default:
			// Unknown paragraph types are ignored rather than failing the file.
		}
	}
	finish()

	if len(doc.Scenes) == 0 {
		return nil, services.Wrap(services.ErrValidation, "parsing", "fdx_parse", "document contains no scene headings", nil)
	}
	if sawPreHeadingContent {
		doc.Warnings = append(doc.Warnings, "content before the first scene heading was ignored")
	}
	doc.Characters = screenplay.BuildCharacterIndex(doc.Scenes)
	doc.OverallConfidence = 1.0
	return doc, nil
}

// rejectUnsafeConstructs scans the token stream and fails on DTDs, processing
// instructions, and undefined entities before any structural decoding runs.
func rejectUnsafeConstructs(data []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = true
	decoder.Entity = map[string]string{}
	for {
		token, err := decoder.RawToken()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return services.Wrap(services.ErrValidation, "parsing", "fdx_scan", "malformed FDX document", err)
		}
		switch tok := token.(type) {
		case xml.Directive:
			return services.Wrap(services.ErrValidation, "parsing", "fdx_scan",
				fmt.Sprintf("disallowed XML directive %q", truncate(string(tok), 40)), nil)
		case xml.ProcInst:
			if tok.Target != "xml" {
				return services.Wrap(services.ErrValidation, "parsing", "fdx_scan",
					fmt.Sprintf("disallowed processing instruction %q", tok.Target), nil)
			}
		}
	}
}

// titleFrom returns the first non-empty title page line.
func titleFrom(page fdxTitlePage) string {
	for _, para := range page.Content.Paragraphs {
		if text := para.text(); text != "" {
			return text
		}
	}
	return ""
}

// normalizeCharacter strips cue extensions like (V.O.) or (CONT'D).
func normalizeCharacter(name string) string {
	if idx := strings.Index(name, "("); idx > 0 {
		name = name[:idx]
	}
	return strings.TrimSpace(name)
}

func speakingCharacters(elements []screenplay.Element) []string {
	seen := make(map[string]bool)
	var names []string
	for _, el := range elements {
		if el.Type != screenplay.ElementDialogue || el.Character == "" {
			continue
		}
		if !seen[el.Character] {
			seen[el.Character] = true
			names = append(names, el.Character)
		}
	}
	return names
}

func sceneText(scene screenplay.Scene) string {
	parts := []string{scene.Heading.Raw}
	for _, el := range scene.Elements {
		if el.Type == screenplay.ElementDialogue && el.Character != "" {
			parts = append(parts, el.Character+": "+el.Text)
			continue
		}
		parts = append(parts, el.Text)
	}
	return strings.Join(parts, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
