package services

import (
	"testing"

	"github.com/pakkapols/techfinder/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagsOf(phrases []entities.Phrase) []entities.PhraseTag {
	tags := make([]entities.PhraseTag, len(phrases))
	for i, p := range phrases {
		tags[i] = p.Tag
	}
	return tags
}

func findByTag(phrases []entities.Phrase, tag entities.PhraseTag) []entities.Phrase {
	var out []entities.Phrase
	for _, p := range phrases {
		if p.Tag == tag {
			out = append(out, p)
		}
	}
	return out
}

func TestSegment_NeverEmpty(t *testing.T) {
	s := NewPhraseSegmenter()

	for _, in := range []string{
		"need a notebook budget 20000",
		"hello there",
		"",
		"xyzzy plugh",
	} {
		phrases := s.Segment(in)
		assert.NotEmpty(t, phrases, "input %q", in)
	}
}

func TestSegment_WholeUtteranceFallback(t *testing.T) {
	s := NewPhraseSegmenter()

	phrases := s.Segment("hello how are you today")
	require.Len(t, phrases, 1)
	assert.Equal(t, entities.PhraseContent, phrases[0].Tag)
	assert.Equal(t, "hello how are you today", phrases[0].Text)
}

func TestSegment_FilterAndBudget(t *testing.T) {
	s := NewPhraseSegmenter()

	phrases := s.Segment("need a notebook budget 20000")

	filters := findByTag(phrases, entities.PhraseFilter)
	require.Len(t, filters, 2)

	texts := []string{filters[0].Text, filters[1].Text}
	assert.Contains(t, texts, "notebook")
	assert.Contains(t, texts, "budget 20000")
}

func TestSegment_QuestionOverridesFilter(t *testing.T) {
	s := NewPhraseSegmenter()

	// "recommend a notebook" is a recommendation request; the question
	// rule claims the span before the category rule can.
	phrases := s.Segment("recommend a notebook")

	questions := findByTag(phrases, entities.PhraseQuestion)
	require.NotEmpty(t, questions)
	assert.Contains(t, questions[0].Text, "notebook")
	assert.Empty(t, findByTag(phrases, entities.PhraseFilter))
}

func TestSegment_ModelNumbersAreInference(t *testing.T) {
	s := NewPhraseSegmenter()

	phrases := s.Segment("looking for rtx 4060")
	inference := findByTag(phrases, entities.PhraseInference)
	require.Len(t, inference, 1)
	assert.Equal(t, "rtx 4060", inference[0].Text)

	phrases = s.Segment("i5-12400 still good")
	inference = findByTag(phrases, entities.PhraseInference)
	require.Len(t, inference, 1)
	assert.Contains(t, inference[0].Text, "i5-12400")
}

func TestSegment_UsagePhrasesAreContent(t *testing.T) {
	s := NewPhraseSegmenter()

	phrases := s.Segment("notebook for gaming")
	content := findByTag(phrases, entities.PhraseContent)
	require.Len(t, content, 1)
	assert.Equal(t, "for gaming", content[0].Text)
}

func TestSegment_BrandResidualBecomesContent(t *testing.T) {
	s := NewPhraseSegmenter()

	phrases := s.Segment("asus notebook")
	content := findByTag(phrases, entities.PhraseContent)
	require.Len(t, content, 1)
	assert.Equal(t, "asus", content[0].Text)
	assert.Equal(t, 10, content[0].Priority)
}

func TestSegment_ClaimedSpansDoNotOverlap(t *testing.T) {
	s := NewPhraseSegmenter()

	// "gaming notebook" must be claimed once, not again by the plain
	// "notebook" rule.
	phrases := s.Segment("gaming notebook budget 35000")

	seen := make(map[string]int)
	for _, p := range phrases {
		seen[p.Text]++
		assert.Equal(t, 1, seen[p.Text], "span %q claimed twice", p.Text)
	}
	filters := findByTag(phrases, entities.PhraseFilter)
	require.Len(t, filters, 2)
	assert.Equal(t, "gaming notebook", filters[0].Text)
}

func TestSegment_DeterministicOrdering(t *testing.T) {
	s := NewPhraseSegmenter()

	first := s.Segment("notebook for gaming budget 25000")
	second := s.Segment("notebook for gaming budget 25000")
	assert.Equal(t, tagsOf(first), tagsOf(second))
	assert.Equal(t, first, second)
}
