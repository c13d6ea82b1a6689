// Package cards defines the generated flashcard payload shared by the
// completion service client, the durable store, and the Anki integration.
package cards

// Pattern classifies the kind of knowledge a highlight expresses. The set is
// closed; the completion service must answer with one of these tags.
type Pattern string

const (
	PatternDistinction Pattern = "DISTINCTION"
	PatternMentalModel Pattern = "MENTAL_MODEL"
	PatternMetaphor    Pattern = "METAPHOR"
	PatternFramework   Pattern = "FRAMEWORK"
	PatternTactic      Pattern = "TACTIC"
	PatternCaseStudy   Pattern = "CASE_STUDY"
	PatternDefinition  Pattern = "DEFINITION"
	// PatternSkip is the sentinel the model answers when a highlight is not
	// worth a card. Skipped records count as processed but are never synced.
	PatternSkip Pattern = "SKIP"
)

var knownPatterns = map[Pattern]struct{}{
	PatternDistinction: {},
	PatternMentalModel: {},
	PatternMetaphor:    {},
	PatternFramework:   {},
	PatternTactic:      {},
	PatternCaseStudy:   {},
	PatternDefinition:  {},
	PatternSkip:        {},
}

// Valid reports whether p belongs to the closed pattern set.
func (p Pattern) Valid() bool {
	_, ok := knownPatterns[p]
	return ok
}

// Card is one generated flashcard. Front and Back may be empty when the
// pattern is SKIP.
type Card struct {
	Pattern Pattern
	Front   string
	Back    string
}
