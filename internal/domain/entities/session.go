package entities

import "time"

// MaxTurnsPerSession bounds the per-session history; older turns are
// evicted FIFO.
const MaxTurnsPerSession = 10

// Turn records one completed exchange: the raw utterance plus whatever
// category and budget the pipeline derived from it.
type Turn struct {
	ID         string    `json:"id"`
	Utterance  string    `json:"utterance"`
	Categories []string  `json:"categories,omitempty"`
	Budget     *float64  `json:"budget,omitempty"`
	At         time.Time `json:"at"`
}

// Context is the derived conversational state carried across turns. A field
// is only overwritten when a later turn supplies a non-empty value.
type Context struct {
	LastCategories []string `json:"last_categories,omitempty"`
	LastBudget     *float64 `json:"last_budget,omitempty"`
}

// Session is the per-conversation state bundle, keyed by an opaque id.
// Sessions are created lazily on the first turn and destroyed by the
// expiry sweep.
type Session struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	Turns      []Turn    `json:"turns"`
	Context    Context   `json:"context"`
}
