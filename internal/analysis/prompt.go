package analysis

import (
	"fmt"
	"strings"

	"slate/internal/screenplay"
	"slate/internal/taxonomy"
)

// buildSystemPrompt renders the fixed analysis instructions, including the
// complete risk class catalog so the model can only pick from it.
func buildSystemPrompt(catalog *taxonomy.Catalog) string {
	var b strings.Builder
	b.WriteString(`You are a film production safety analyst. You receive one screenplay scene and identify performer safety risks. Use ONLY the risk classes listed below; never invent classes.

Risk classes:
`)
	for _, cls := range catalog.Classes() {
		fmt.Fprintf(&b, "- %s (%s): %s\n", cls.Name, cls.Category, cls.Summary)
	}
	b.WriteString(`
Score each finding:
- likelihood: 1-5, how likely the risk materializes during shooting
- impact: 1-5, how severe the harm would be
- confidence: 0.0-1.0, your certainty the risk is present

Respond with a single JSON object and nothing else:
{"findings":[{"risk_class":"CLASS_NAME","likelihood":1-5,"impact":1-5,"confidence":0.0-1.0,"description":"what creates the risk","recommendation":"how to mitigate it","excerpt":"short quote from the scene","characters":["NAME"]}]}
Return {"findings":[]} when the scene presents no risks.`)
	return b.String()
}

// buildScenePrompt renders one scene as the user message.
func buildScenePrompt(scene screenplay.Scene) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scene %d\n", scene.Number)
	fmt.Fprintf(&b, "Heading: %s\n", scene.Heading.Raw)
	if len(scene.Characters) > 0 {
		fmt.Fprintf(&b, "Speaking characters: %s\n", strings.Join(scene.Characters, ", "))
	}
	b.WriteString("\n")
	b.WriteString(scene.Text)
	return b.String()
}
