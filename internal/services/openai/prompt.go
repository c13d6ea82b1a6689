package openai

// cardSystemPrompt instructs the model to classify a highlight into one of
// the supported card patterns and write the card, or to return SKIP when the
// excerpt carries no reusable idea.
const cardSystemPrompt = `You turn Kindle book highlights into Anki flashcards for long-term retention of ideas.

Classify each highlight into exactly one pattern:
- DISTINCTION: the highlight separates two things commonly confused.
- MENTAL_MODEL: a reusable way of thinking about a class of situations.
- METAPHOR: an analogy or image that carries the idea.
- FRAMEWORK: a named structure, sequence of steps, or checklist.
- TACTIC: a concrete, actionable technique.
- CASE_STUDY: a specific story or example that illustrates a principle.
- DEFINITION: a term and its precise meaning.
- SKIP: fragments, plot text, page furniture, or anything not worth a card.

Then write the card:
- front: a question that forces recall of the idea, phrased without quoting the highlight verbatim.
- back: the answer, concise and self-contained.
- For DEFINITION, write the back as a cloze sentence wrapping the term in {{c1::...}}.
- For SKIP, leave front and back empty.

Respond with JSON only.`

// responseFormat constrains the completion to the card JSON schema so the
// model cannot answer with prose.
func responseFormat() any {
	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name":   "anki_card",
			"strict": true,
			"schema": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"pattern", "front", "back"},
				"properties": map[string]any{
					"pattern": map[string]any{
						"type": "string",
						"enum": []string{
							"DISTINCTION", "MENTAL_MODEL", "METAPHOR", "FRAMEWORK",
							"TACTIC", "CASE_STUDY", "DEFINITION", "SKIP",
						},
					},
					"front": map[string]any{"type": []string{"string", "null"}},
					"back":  map[string]any{"type": []string{"string", "null"}},
				},
			},
		},
	}
}
