package entities

// BuildRequest captures an utterance asking for a full system build rather
// than a plain product search: the machine kind, the detected usage
// keywords, the stated budget and any extra preferences.
type BuildRequest struct {
	Kind   string   `json:"kind"`
	Usage  []string `json:"usage,omitempty"`
	Budget float64  `json:"budget"`
	Needs  []string `json:"needs,omitempty"`
}

// BuildSlot is one component line of a plan: the category to fill, the
// share of the budget reserved for it and the catalog pick, if any product
// fit the allocation.
type BuildSlot struct {
	Category   string   `json:"category"`
	Allocation float64  `json:"allocation"`
	Pick       *Product `json:"pick,omitempty"`
}

// BuildPlan is a composed system build: budget split across component
// slots in priority order, with the running total of the picks.
type BuildPlan struct {
	Name     string      `json:"name"`
	Kind     string      `json:"kind"`
	Tier     string      `json:"tier"`
	Budget   float64     `json:"budget"`
	Slots    []BuildSlot `json:"slots"`
	Total    float64     `json:"total"`
	Unfilled []string    `json:"unfilled,omitempty"`
}
