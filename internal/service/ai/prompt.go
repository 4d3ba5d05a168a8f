package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
	"github.com/zhouzirui/insight-dice/backend/internal/model/throw"
)

// PromptTemplate is the system prompt and output rules for one request shape.
type PromptTemplate struct {
	SystemPrompt string
	OutputRules  []string
}

// Prompt kinds.
const (
	KindInterpret  = "interpret"
	KindSuggest    = "suggest"
	KindReflection = "reflection"
)

const guideRole = `You are a calm and thoughtful guide who reads the Insight Dice. ` +
	`Six symbols are thrown, each landing on a position of the spread. ` +
	`You never predict the future; you help the person look at their situation from new angles.`

// PromptManager builds the system prompts and user queries sent to the model.
type PromptManager struct {
	templates map[string]*PromptTemplate
}

// NewPromptManager returns a manager loaded with the default templates.
func NewPromptManager() *PromptManager {
	pm := &PromptManager{templates: make(map[string]*PromptTemplate)}
	pm.loadDefaultTemplates()
	return pm
}

// SystemPrompt returns the system prompt for kind.
func (pm *PromptManager) SystemPrompt(kind string) (string, error) {
	tpl, ok := pm.templates[kind]
	if !ok {
		return "", fmt.Errorf("prompt template not found: %s", kind)
	}
	if len(tpl.OutputRules) == 0 {
		return tpl.SystemPrompt, nil
	}
	return tpl.SystemPrompt + "\n\nRules:\n- " + strings.Join(tpl.OutputRules, "\n- "), nil
}

// InterpretQuery renders the situation and spread for an interpretation.
func (pm *PromptManager) InterpretQuery(situation string, spread []throw.Placement) string {
	var b strings.Builder
	writeSituation(&b, situation)
	writeSpread(&b, spread)
	b.WriteString("\nInterpret the spread for this situation.")
	return b.String()
}

// SuggestQuery asks for one short suggestion per path key.
func (pm *PromptManager) SuggestQuery(situation string, spread []throw.Placement, interpretation string, paths []catalog.Path) string {
	var b strings.Builder
	writeSituation(&b, situation)
	writeSpread(&b, spread)
	b.WriteString("\nInterpretation:\n")
	b.WriteString(interpretation)
	b.WriteString("\n\nPaths:\n")
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		fmt.Fprintf(&b, "- %s (%s %s): %s\n", p.Key, p.Emoji, p.Title, p.Description)
		keys = append(keys, fmt.Sprintf("%q", p.Key))
	}
	fmt.Fprintf(&b, "\nAnswer with a JSON object whose keys are %s.", strings.Join(keys, ", "))
	return b.String()
}

// ReflectionQuery asks for reflection questions for the chosen path.
func (pm *PromptManager) ReflectionQuery(situation string, path catalog.Path, spread []throw.Placement) string {
	var b strings.Builder
	writeSituation(&b, situation)
	writeSpread(&b, spread)
	fmt.Fprintf(&b, "\nChosen path: %s %s. %s\n", path.Emoji, path.Title, path.Reflection)
	b.WriteString("Answer with a JSON array of questions.")
	return b.String()
}

func writeSituation(b *strings.Builder, situation string) {
	b.WriteString("Situation:\n")
	b.WriteString(strings.TrimSpace(situation))
	b.WriteString("\n\n")
}

func writeSpread(b *strings.Builder, spread []throw.Placement) {
	b.WriteString("Spread:\n")
	for _, p := range spread {
		fmt.Fprintf(b, "- %s (%s): %s %s, %s. %s\n",
			p.Position.Title, p.Position.Question, p.Symbol.ID, p.Symbol.Name, p.Symbol.Keyword, p.Symbol.Meaning)
	}
}

func (pm *PromptManager) loadDefaultTemplates() {
	pm.templates[KindInterpret] = &PromptTemplate{
		SystemPrompt: guideRole,
		OutputRules: []string{
			"Write 2 to 4 short paragraphs in plain text, no markdown headings",
			"Refer to each position by name and connect its symbol to the situation",
			"End with one sentence that names the main tension you see",
			"Answer in the language the situation is written in",
		},
	}

	pm.templates[KindSuggest] = &PromptTemplate{
		SystemPrompt: guideRole + " Now you describe how each path could look for this person.",
		OutputRules: []string{
			"Reply with a single JSON object and nothing else",
			"Each value is one or two sentences tied to the spread",
			"Do not invent keys beyond the listed paths",
		},
	}

	pm.templates[KindReflection] = &PromptTemplate{
		SystemPrompt: guideRole + " The person has chosen a path; help them reflect on it.",
		OutputRules: []string{
			"Reply with a JSON array of 3 to 5 open questions and nothing else",
			"Each question is a single sentence",
			"Questions invite action or self-observation, never yes/no answers",
		},
	}
}
