package providers

import (
	"context"
	"errors"

	"github.com/pakkapols/techfinder/internal/domain/entities"
)

// ErrInterpreterUnavailable is returned when the interpretation collaborator
// cannot be reached at all (network, auth, rate limit).
var ErrInterpreterUnavailable = errors.New("interpreter unavailable")

// ErrInterpreterParse is returned when the collaborator answered but its
// output could not be decoded into the expected shape.
var ErrInterpreterParse = errors.New("interpreter output malformed")

// SchemaContext tells the interpreter what the store can actually filter on.
type SchemaContext struct {
	Fields          []string            `json:"fields"`
	ValidCategories []string            `json:"valid_categories"`
	SynonymTable    map[string][]string `json:"synonym_table"`
}

// Interpretation is the structured outcome of one interpreter call.
type Interpretation struct {
	Query      entities.StructuredQuery `json:"query"`
	Phrases    []entities.Phrase        `json:"phrases"`
	Reasoning  string                   `json:"reasoning"`
	Confidence float64                  `json:"confidence"`
}

// Interpreter is the natural-language interpretation collaborator. One call
// per stage, no retries: a failed call degrades to the stage's deterministic
// local fallback. Errors are distinguished so callers can tell "collaborator
// down" (ErrInterpreterUnavailable) from "collaborator confused"
// (ErrInterpreterParse); both degrade the same way.
type Interpreter interface {
	Interpret(ctx context.Context, utterance string, schema SchemaContext) (*Interpretation, error)
}

// Responder turns a finished pipeline invocation into display text for the
// end user. Implementations must never fail hard; a deterministic template
// fallback backs every generative path.
type Responder interface {
	Render(ctx context.Context, utterance string, query entities.StructuredQuery, reasoning string, results []entities.RankedResult) (string, error)
}
