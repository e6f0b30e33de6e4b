package services

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pakkapols/techfinder/internal/domain/entities"
)

// segmentRule is one row of the prioritized segmentation rule table.
// Higher priority rules claim text first; a claimed span is removed from
// consideration so lower-priority rules cannot re-claim it.
type segmentRule struct {
	pattern  *regexp.Regexp
	tag      entities.PhraseTag
	priority int
}

// Question rules sit above filter rules: a recommendation request or a
// yes/no question over a span always wins over a filter match on the
// same span.
var segmentRules = []segmentRule{
	{regexp.MustCompile(`\b(recommend|suggest)( me| a| some)?\b[^,.?]*`), entities.PhraseQuestion, 100},
	{regexp.MustCompile(`\bwhich (one|model|brand) (is|would be)[^,.?]*`), entities.PhraseQuestion, 100},
	{regexp.MustCompile(`\b(is (it|this|that)|are (they|these))\s+(good|worth|better|ok|okay)[^,.?]*`), entities.PhraseQuestion, 100},
	{regexp.MustCompile(`\bwhat (should i|do you (think|recommend))[^,.?]*`), entities.PhraseQuestion, 100},
	{regexp.MustCompile(`\bshould i (buy|get|pick|choose)[^,.?]*`), entities.PhraseQuestion, 100},

	{regexp.MustCompile(`\b(budget|no more than|not more than|not over|under|within|around|about|max)\s*\d[\d,]*(\.\d+)?\s*(baht|thb)?\b`), entities.PhraseFilter, 90},
	{regexp.MustCompile(`\b\d[\d,]*(\.\d+)?\s*(baht|thb)\b`), entities.PhraseFilter, 90},

	{regexp.MustCompile(`\bgaming notebook\b`), entities.PhraseFilter, 80},
	{regexp.MustCompile(`\b(notebook|desktop pc|graphics card|motherboard|cpu|ram|ssd|monitor|keyboard|mouse|headphone)s?\b`), entities.PhraseFilter, 80},

	{regexp.MustCompile(`\b(core\s*)?i[3579][\s-]*\d{3,5}[a-z]{0,2}\b`), entities.PhraseInference, 70},
	{regexp.MustCompile(`\bryzen\s*[3579][\s-]*\d{3,4}[a-z]{0,3}\b`), entities.PhraseInference, 70},
	{regexp.MustCompile(`\b(rtx|gtx|rx|arc)\s*\d{3,4}[a-z]{0,3}( ti| super| xt)?\b`), entities.PhraseInference, 70},

	{regexp.MustCompile(`\bfor (gaming|work|working|school|study|studying|video editing|editing|streaming|programming|coding|office|graphic design|music)\b`), entities.PhraseContent, 60},
	{regexp.MustCompile(`\b(light(weight)?|portable|thin|quiet|silent|fast|high refresh|mechanical|wireless|rgb|long battery( life)?)\b`), entities.PhraseContent, 60},
}

// Brand tokens left over after rule matching are still useful for content
// matching, so they become low-confidence content phrases.
var knownBrands = map[string]struct{}{
	"asus": {}, "acer": {}, "lenovo": {}, "dell": {}, "hp": {}, "msi": {},
	"apple": {}, "samsung": {}, "lg": {}, "logitech": {}, "razer": {},
	"intel": {}, "amd": {}, "nvidia": {}, "corsair": {}, "kingston": {},
	"gigabyte": {}, "benq": {}, "aoc": {}, "steelseries": {}, "hyperx": {},
}

var vendorModelToken = regexp.MustCompile(`^[a-z]{2,}[\s-]?\d{2,}[a-z0-9-]*$`)

type claimedSpan struct {
	start, end int
	phrase     entities.Phrase
}

// PhraseSegmenter splits a normalized utterance into classified phrases
// using the prioritized rule table. Output is never empty: when nothing
// matches, the whole utterance becomes one content phrase.
type PhraseSegmenter struct {
	rules []segmentRule
}

// NewPhraseSegmenter creates a segmenter with the built-in rule table,
// pre-sorted by descending priority.
func NewPhraseSegmenter() *PhraseSegmenter {
	rules := make([]segmentRule, len(segmentRules))
	copy(rules, segmentRules)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].priority > rules[j].priority
	})
	return &PhraseSegmenter{rules: rules}
}

// Segment classifies the normalized utterance into an ordered, non-empty
// phrase list. Spans are claimed highest-priority first and never overlap.
func (s *PhraseSegmenter) Segment(normalized string) []entities.Phrase {
	text := strings.TrimSpace(normalized)
	if text == "" {
		return []entities.Phrase{{Text: "", Tag: entities.PhraseContent, Priority: 0}}
	}

	var claimed []claimedSpan
	for _, rule := range s.rules {
		for _, loc := range rule.pattern.FindAllStringIndex(text, -1) {
			if overlapsClaimed(claimed, loc[0], loc[1]) {
				continue
			}
			span := strings.TrimSpace(text[loc[0]:loc[1]])
			if span == "" {
				continue
			}
			claimed = append(claimed, claimedSpan{
				start: loc[0],
				end:   loc[1],
				phrase: entities.Phrase{
					Text:     span,
					Tag:      rule.tag,
					Priority: rule.priority,
				},
			})
		}
	}

	if len(claimed) == 0 {
		return []entities.Phrase{{Text: text, Tag: entities.PhraseContent, Priority: 0}}
	}

	sort.Slice(claimed, func(i, j int) bool { return claimed[i].start < claimed[j].start })

	phrases := make([]entities.Phrase, 0, len(claimed)+2)
	for _, c := range claimed {
		phrases = append(phrases, c.phrase)
	}
	phrases = append(phrases, s.residualPhrases(text, claimed)...)
	return phrases
}

// residualPhrases scans tokens outside every claimed span for brand names
// and vendor-plus-model shapes and appends them as low-confidence phrases.
func (s *PhraseSegmenter) residualPhrases(text string, claimed []claimedSpan) []entities.Phrase {
	var residual []entities.Phrase
	for _, tok := range unclaimedTokens(text, claimed) {
		if _, ok := knownBrands[tok]; ok {
			residual = append(residual, entities.Phrase{Text: tok, Tag: entities.PhraseContent, Priority: 10})
			continue
		}
		if vendorModelToken.MatchString(tok) {
			residual = append(residual, entities.Phrase{Text: tok, Tag: entities.PhraseInference, Priority: 10})
		}
	}
	return residual
}

func overlapsClaimed(claimed []claimedSpan, start, end int) bool {
	for _, c := range claimed {
		if start < c.end && end > c.start {
			return true
		}
	}
	return false
}

// unclaimedTokens returns the words of text whose byte ranges fall fully
// outside every claimed span.
func unclaimedTokens(text string, claimed []claimedSpan) []string {
	var tokens []string
	pos := 0
	for _, field := range strings.Fields(text) {
		start := strings.Index(text[pos:], field) + pos
		end := start + len(field)
		pos = end
		if !overlapsClaimed(claimed, start, end) {
			tokens = append(tokens, field)
		}
	}
	return tokens
}
