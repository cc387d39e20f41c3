package pdfscript

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"slate/internal/llm"
	"slate/internal/logging"
	"slate/internal/screenplay"
	"slate/internal/services"
)

const structuringPrompt = `You convert raw screenplay text into structured JSON. The input is one scene: a heading line followed by body text. Respond with a single JSON object and nothing else:
{"elements":[{"type":"action|dialogue|parenthetical|transition|shot","character":"NAME or empty","text":"..."}],"confidence":0.0-1.0}
Rules: preserve the original text and order, do not invent content, set "character" only for dialogue and parentheticals, and set "confidence" to how certain you are of the element boundaries.`

const structuringRetryPrompt = structuringPrompt + `
Your previous answer was not valid JSON matching the schema. Respond with ONLY the JSON object, no prose, no code fences.`


// Structurer builds documents from extracted PDF text using a model to
// recover element structure inside each scene block.
type Structurer struct {
	provider llm.Provider
	logger   *slog.Logger
}

// NewStructurer constructs a Structurer. A nil logger is replaced with a
// no-op logger.
func NewStructurer(provider llm.Provider, logger *slog.Logger) *Structurer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Structurer{provider: provider, logger: logger.With(logging.String(logging.FieldComponent, "pdfscript"))}
}

type structuredScene struct {
	Elements []struct {
		Type      string `json:"type"`
		Character string `json:"character"`
		Text      string `json:"text"`
	} `json:"elements"`
	Confidence float64 `json:"confidence"`
}

// Structure converts extracted text into a Document. Scene boundaries come
// from the deterministic splitter; only the inside of each block involves the
// model. A block the model cannot structure after one retry degrades to a
// minimal scene instead of failing the document.
func (s *Structurer) Structure(ctx context.Context, text string, extractWarnings []string) (*screenplay.Document, error) {
	preamble, blocks := screenplay.Split(text)
	if len(blocks) == 0 {
		return nil, services.Wrap(services.ErrValidation, "parsing", "pdf_structure",
			"no scene headings recognized in extracted text", nil)
	}

	doc := &screenplay.Document{
		Title:    titleFromPreamble(preamble),
		Format:   screenplay.FormatPDF,
		Warnings: append([]string(nil), extractWarnings...),
	}

	var confidenceSum float64
	for i, block := range blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		number := i + 1
		scene, degraded := s.structureBlock(ctx, number, block)
		if degraded {
			doc.Warnings = append(doc.Warnings,
				fmt.Sprintf("scene %d structured without element detail", number))
		}
		confidenceSum += scene.ParseConfidence
		doc.Scenes = append(doc.Scenes, scene)
	}

	doc.Characters = screenplay.BuildCharacterIndex(doc.Scenes)
	doc.OverallConfidence = confidenceSum / float64(len(doc.Scenes))
	return doc, nil
}

// structureBlock asks the model for element structure, retrying once with a
// stricter prompt before falling back to a minimal scene.
func (s *Structurer) structureBlock(ctx context.Context, number int, block screenplay.Block) (screenplay.Scene, bool) {
	scene := screenplay.Scene{
		Number:  number,
		Heading: screenplay.ParseHeading(block.Heading),
	}
	input := block.Heading + "\n" + block.Body

	for attempt, prompt := range []string{structuringPrompt, structuringRetryPrompt} {
		content, err := s.provider.CompleteJSON(ctx, prompt, input)
		if err != nil {
			s.logger.Warn("scene structuring request failed",
				logging.Int(logging.FieldSceneNumber, number),
				logging.Int("attempt", attempt+1),
				logging.Error(err))
			continue
		}
		var parsed structuredScene
		if err := llm.DecodeJSON(content, &parsed); err != nil {
			s.logger.Warn("scene structuring payload invalid",
				logging.Int(logging.FieldSceneNumber, number),
				logging.Int("attempt", attempt+1),
				logging.Error(err))
			continue
		}
		elements, ok := convertElements(parsed)
		if !ok {
			s.logger.Warn("scene structuring elements invalid",
				logging.Int(logging.FieldSceneNumber, number),
				logging.Int("attempt", attempt+1))
			continue
		}
		scene.Elements = elements
		scene.ParseConfidence = clampConfidence(parsed.Confidence)
		scene.Characters = speakingCharacters(elements)
		scene.Text = sceneText(block, elements)
		return scene, false
	}

	// Minimal fallback: a heading-only scene with no elements. The raw body
	// stays on Text so downstream analysis still sees the scene content.
	scene.Elements = nil
	scene.ParseConfidence = 0
	scene.Text = block.Heading + "\n" + block.Body
	return scene, true
}

func convertElements(parsed structuredScene) ([]screenplay.Element, bool) {
	if len(parsed.Elements) == 0 {
		return nil, false
	}
	var out []screenplay.Element
	for _, el := range parsed.Elements {
		text := strings.TrimSpace(el.Text)
		if text == "" {
			continue
		}
		elType := screenplay.ElementType(strings.ToLower(strings.TrimSpace(el.Type)))
		switch elType {
		case screenplay.ElementAction, screenplay.ElementDialogue,
			screenplay.ElementParenthetical, screenplay.ElementTransition,
			screenplay.ElementShot:
		default:
			return nil, false
		}
		element := screenplay.Element{Type: elType, Text: text}
		if elType == screenplay.ElementDialogue || elType == screenplay.ElementParenthetical {
			element.Character = strings.ToUpper(strings.TrimSpace(el.Character))
		}
		out = append(out, element)
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
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

func sceneText(block screenplay.Block, elements []screenplay.Element) string {
	parts := []string{block.Heading}
	for _, el := range elements {
		if el.Type == screenplay.ElementDialogue && el.Character != "" {
			parts = append(parts, el.Character+": "+el.Text)
			continue
		}
		parts = append(parts, el.Text)
	}
	return strings.Join(parts, "\n")
}

func clampConfidence(v float64) float64 {
	if v <= 0 {
		return 0.5
	}
	if v > 1 {
		return 1
	}
	return v
}

func titleFromPreamble(preamble string) string {
	for _, line := range strings.Split(preamble, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
