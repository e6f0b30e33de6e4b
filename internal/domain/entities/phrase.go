package entities

// PhraseTag classifies an utterance fragment by how the pipeline may use it.
type PhraseTag string

const (
	// PhraseFilter maps directly to a structured predicate (explicit category
	// name, explicit price expression).
	PhraseFilter PhraseTag = "filter"

	// PhraseInference names a specific product or model and needs category
	// inference before it becomes a predicate. Inference phrases are also
	// forwarded to content matching.
	PhraseInference PhraseTag = "inference"

	// PhraseContent is a free-text requirement (brand, usage, feature)
	// matched semantically against item text.
	PhraseContent PhraseTag = "content"

	// PhraseQuestion is a request for recommendation or subjective
	// evaluation. Question phrases never contribute predicates.
	PhraseQuestion PhraseTag = "question"
)

// IsValid checks if the tag is one of the defined constants.
func (t PhraseTag) IsValid() bool {
	switch t {
	case PhraseFilter, PhraseInference, PhraseContent, PhraseQuestion:
		return true
	}
	return false
}

// Phrase is a classified span of the normalized utterance. Phrases are
// produced once per segmentation pass and never mutated.
type Phrase struct {
	Text     string    `json:"text"`
	Tag      PhraseTag `json:"tag"`
	Priority int       `json:"priority"`
}
