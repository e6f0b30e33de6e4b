package services

import (
	"testing"

	"github.com/pakkapols/techfinder/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_CategoryFromFilterPhrase(t *testing.T) {
	b := newTestBuilder(t)

	result := b.Build([]entities.Phrase{
		{Text: "notebook", Tag: entities.PhraseFilter, Priority: 80},
	})

	assert.Equal(t, []string{"Notebooks"}, result.Query.Categories)
	assert.True(t, result.Query.InStockOnly)
	assert.Nil(t, result.Query.MaxPrice)
	assert.Contains(t, result.Reasoning, "notebook")
}

func TestBuild_AvailabilityAlwaysPresent(t *testing.T) {
	b := newTestBuilder(t)

	for _, phrases := range [][]entities.Phrase{
		nil,
		{{Text: "hello", Tag: entities.PhraseContent}},
		{{Text: "notebook", Tag: entities.PhraseFilter}},
	} {
		result := b.Build(phrases)
		assert.True(t, result.Query.InStockOnly)
	}
}

func TestBuild_BudgetExtraction(t *testing.T) {
	b := newTestBuilder(t)

	result := b.Build([]entities.Phrase{
		{Text: "notebook", Tag: entities.PhraseFilter},
		{Text: "budget 20000", Tag: entities.PhraseFilter},
	})

	require.NotNil(t, result.Query.MaxPrice)
	assert.Equal(t, 20000.0, *result.Query.MaxPrice)
}

func TestBuild_BudgetVariants(t *testing.T) {
	b := newTestBuilder(t)

	for _, text := range []string{
		"budget 15,000",
		"no more than 15000",
		"under 15000",
		"around 15000",
		"15000 baht",
	} {
		result := b.Build([]entities.Phrase{{Text: text, Tag: entities.PhraseFilter}})
		require.NotNil(t, result.Query.MaxPrice, "text %q", text)
		assert.Equal(t, 15000.0, *result.Query.MaxPrice, "text %q", text)
	}
}

func TestBuild_ImplausiblySmallBudgetIgnored(t *testing.T) {
	b := newTestBuilder(t)

	// 144 is a refresh rate, not a budget; the plausibility floor drops it.
	result := b.Build([]entities.Phrase{
		{Text: "monitor", Tag: entities.PhraseFilter},
		{Text: "around 144", Tag: entities.PhraseFilter},
	})

	assert.Nil(t, result.Query.MaxPrice)
}

func TestBuild_CPUModelInfersCategories(t *testing.T) {
	b := newTestBuilder(t)

	result := b.Build([]entities.Phrase{
		{Text: "i5-12400", Tag: entities.PhraseInference},
	})

	assert.ElementsMatch(t, []string{"CPU", "Notebooks", "Desktop PC"}, result.Query.Categories)
}

func TestBuild_GPUModelInfersCategories(t *testing.T) {
	b := newTestBuilder(t)

	result := b.Build([]entities.Phrase{
		{Text: "rtx 4060", Tag: entities.PhraseInference},
	})

	assert.ElementsMatch(t, []string{"Graphics Cards", "Gaming Notebooks", "Desktop PC"}, result.Query.Categories)
}

func TestBuild_ValidCategorySetFiltersInference(t *testing.T) {
	b := newTestBuilder(t)
	b.SetValidCategories([]string{"CPU", "Notebooks"})

	result := b.Build([]entities.Phrase{
		{Text: "i5-12400", Tag: entities.PhraseInference},
	})

	assert.ElementsMatch(t, []string{"CPU", "Notebooks"}, result.Query.Categories)
}

func TestBuild_InferencePhraseStaysUnresolved(t *testing.T) {
	b := newTestBuilder(t)

	result := b.Build([]entities.Phrase{
		{Text: "rtx 4060", Tag: entities.PhraseInference},
	})

	require.Len(t, result.Unresolved, 1)
	assert.Equal(t, "rtx 4060", result.Unresolved[0].Text)
}

func TestBuild_QuestionAndContentNotFiltered(t *testing.T) {
	b := newTestBuilder(t)

	result := b.Build([]entities.Phrase{
		{Text: "recommend something", Tag: entities.PhraseQuestion},
		{Text: "for gaming", Tag: entities.PhraseContent},
	})

	assert.Empty(t, result.Query.Categories)
	assert.Nil(t, result.Query.MaxPrice)
	assert.Len(t, result.Unresolved, 2)
}

func TestBuild_DuplicateCategoriesCollapse(t *testing.T) {
	b := newTestBuilder(t)

	result := b.Build([]entities.Phrase{
		{Text: "notebook", Tag: entities.PhraseFilter},
		{Text: "notebooks", Tag: entities.PhraseFilter},
	})

	assert.Equal(t, []string{"Notebooks"}, result.Query.Categories)
}

func TestBuild_LongestSynonymWins(t *testing.T) {
	b := newTestBuilder(t)

	result := b.Build([]entities.Phrase{
		{Text: "gaming notebook", Tag: entities.PhraseFilter},
	})

	assert.Equal(t, []string{"Gaming Notebooks"}, result.Query.Categories)
}

func TestFilterValidCategories(t *testing.T) {
	b := newTestBuilder(t)
	b.SetValidCategories([]string{"Notebooks", "CPU"})

	kept := b.FilterValidCategories([]string{"Smartphones", "Notebooks", "Tablets"})
	assert.Equal(t, []string{"Notebooks"}, kept)
}

func TestFilterValidCategories_EmptySetKeepsAll(t *testing.T) {
	b := newTestBuilder(t)

	kept := b.FilterValidCategories([]string{"Smartphones", "Notebooks"})
	assert.Equal(t, []string{"Smartphones", "Notebooks"}, kept)
}

func TestSynonymKeys_SortedVocabulary(t *testing.T) {
	b := newTestBuilder(t)

	keys := b.SynonymKeys()
	assert.Contains(t, keys, "notebook")
	assert.Contains(t, keys, "gaming notebook")
	assert.IsIncreasing(t, keys)
}
