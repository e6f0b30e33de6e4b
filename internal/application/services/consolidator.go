package services

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pakkapols/techfinder/internal/domain/entities"
)

// continuationConnectives mark an utterance as a follow-up to whatever
// came just before it.
var continuationConnectives = []string{"for", "to use", "and", "with", "then", "or"}

// usageConnectives start an utterance that explains what a previously
// priced purchase is for.
var usageConnectives = []string{"for", "to use", "to play", "to run"}

// InputConsolidator decides whether an incoming utterance is a fragment of
// the previous request and, if so, merges it with the related recent turns
// before the pipeline sees it.
type InputConsolidator struct {
	memory     *ConversationMemoryService
	window     time.Duration
	shortLimit int
	keywords   []string // category keywords used for relatedness
	now        func() time.Time
}

// NewInputConsolidator creates a consolidator over the session memory.
// keywords is the category vocabulary used to detect related turns.
func NewInputConsolidator(memory *ConversationMemoryService, window time.Duration, shortLimit int, keywords []string) *InputConsolidator {
	return &InputConsolidator{
		memory:     memory,
		window:     window,
		shortLimit: shortLimit,
		keywords:   keywords,
		now:        time.Now,
	}
}

// Consolidate returns the effective utterance for this turn and whether a
// merge happened. The input comes back unchanged when the last turn is too
// old, the new utterance stands on its own, or no recent turn is related.
func (c *InputConsolidator) Consolidate(sessionID, utterance string) (string, bool) {
	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" {
		return utterance, false
	}

	lastActive, ok := c.memory.LastActive(sessionID)
	if !ok || c.now().Sub(lastActive) >= c.window {
		return utterance, false
	}

	lower := strings.ToLower(trimmed)
	isShort := utf8.RuneCountInString(trimmed) < c.shortLimit
	if !isShort && !startsWithAny(lower, continuationConnectives) {
		return utterance, false
	}

	related := c.relatedTurns(sessionID, lower)
	if len(related) == 0 {
		return utterance, false
	}

	parts := make([]string, 0, len(related)+1)
	for _, turn := range related {
		parts = append(parts, turn.Utterance)
	}
	parts = append(parts, trimmed)

	return dedupeWholeWords(strings.Join(parts, " ")), true
}

// relatedTurns scans the last three turns, oldest first, for utterances
// related to the new one: a shared category keyword, or a prior budget
// when the new utterance opens with a usage connective.
func (c *InputConsolidator) relatedTurns(sessionID, lower string) []entities.Turn {
	recent := c.memory.GetRecentTurns(sessionID, 3)
	if len(recent) == 0 {
		return nil
	}

	newKeywords := c.detectKeywords(lower)
	opensWithUsage := startsWithAny(lower, usageConnectives)

	var related []entities.Turn
	for _, turn := range recent {
		turnLower := strings.ToLower(turn.Utterance)
		if sharesKeyword(newKeywords, c.detectKeywords(turnLower)) {
			related = append(related, turn)
			continue
		}
		if turn.Budget != nil && opensWithUsage {
			related = append(related, turn)
			continue
		}
		// A short budget-only follow-up relates to whatever was last
		// asked about a product category.
		if len(turn.Categories) > 0 && containsNumber(lower) && len(newKeywords) == 0 {
			related = append(related, turn)
		}
	}
	return related
}

func (c *InputConsolidator) detectKeywords(lower string) []string {
	var found []string
	for _, kw := range c.keywords {
		if containsWholePhrase(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

func sharesKeyword(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func startsWithAny(lower string, prefixes []string) bool {
	for _, p := range prefixes {
		if lower == p || strings.HasPrefix(lower, p+" ") {
			return true
		}
	}
	return false
}

// dedupeWholeWords removes repeated whole-word tokens case-insensitively,
// keeping the first occurrence order.
func dedupeWholeWords(text string) string {
	seen := make(map[string]struct{})
	var kept []string
	for _, tok := range strings.Fields(text) {
		key := strings.ToLower(tok)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}
