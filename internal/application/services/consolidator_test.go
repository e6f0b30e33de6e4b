package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var consolidatorKeywords = []string{"notebook", "gaming notebook", "graphics card", "monitor", "keyboard"}

func newTestConsolidator(t *testing.T) (*InputConsolidator, *ConversationMemoryService) {
	t.Helper()
	memory := NewConversationMemoryService()
	c := NewInputConsolidator(memory, 60*time.Second, 50, consolidatorKeywords)
	return c, memory
}

func TestConsolidate_BudgetFollowUpMergesWithCategoryTurn(t *testing.T) {
	c, memory := newTestConsolidator(t)

	base := time.Now()
	memory.now = func() time.Time { return base }
	memory.AddTurn("s1", "need a notebook", []string{"Notebooks"}, nil)

	// 8 seconds later, a short budget-only follow-up arrives.
	c.now = func() time.Time { return base.Add(8 * time.Second) }
	merged, ok := c.Consolidate("s1", "budget 20000")

	require.True(t, ok)
	assert.Equal(t, "need a notebook budget 20000", merged)
}

func TestConsolidate_SharedKeywordMerges(t *testing.T) {
	c, memory := newTestConsolidator(t)

	base := time.Now()
	memory.now = func() time.Time { return base }
	memory.AddTurn("s1", "looking at a gaming notebook", []string{"Gaming Notebooks"}, nil)

	c.now = func() time.Time { return base.Add(20 * time.Second) }
	merged, ok := c.Consolidate("s1", "notebook with rgb")

	require.True(t, ok)
	assert.Contains(t, merged, "gaming notebook")
	assert.Contains(t, merged, "rgb")
}

func TestConsolidate_UsageConnectiveAfterBudgetTurn(t *testing.T) {
	c, memory := newTestConsolidator(t)

	budget := 30000.0
	base := time.Now()
	memory.now = func() time.Time { return base }
	memory.AddTurn("s1", "budget 30000", nil, &budget)

	c.now = func() time.Time { return base.Add(10 * time.Second) }
	merged, ok := c.Consolidate("s1", "for video editing")

	require.True(t, ok)
	assert.Equal(t, "budget 30000 for video editing", merged)
}

func TestConsolidate_OutsideWindowNotMerged(t *testing.T) {
	c, memory := newTestConsolidator(t)

	base := time.Now()
	memory.now = func() time.Time { return base }
	memory.AddTurn("s1", "need a notebook", []string{"Notebooks"}, nil)

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	merged, ok := c.Consolidate("s1", "budget 20000")

	assert.False(t, ok)
	assert.Equal(t, "budget 20000", merged)
}

func TestConsolidate_LongStandaloneInputNotMerged(t *testing.T) {
	c, memory := newTestConsolidator(t)

	base := time.Now()
	memory.now = func() time.Time { return base }
	memory.AddTurn("s1", "need a notebook", []string{"Notebooks"}, nil)

	c.now = func() time.Time { return base.Add(5 * time.Second) }
	long := "please show me every wireless mechanical keyboard you have in stock today"
	require.GreaterOrEqual(t, len(long), 50)

	merged, ok := c.Consolidate("s1", long)

	assert.False(t, ok)
	assert.Equal(t, long, merged)
}

func TestConsolidate_UnrelatedShortInputNotMerged(t *testing.T) {
	c, memory := newTestConsolidator(t)

	base := time.Now()
	memory.now = func() time.Time { return base }
	memory.AddTurn("s1", "need a notebook", []string{"Notebooks"}, nil)

	c.now = func() time.Time { return base.Add(5 * time.Second) }
	merged, ok := c.Consolidate("s1", "hello again")

	assert.False(t, ok)
	assert.Equal(t, "hello again", merged)
}

func TestConsolidate_UnknownSessionPassthrough(t *testing.T) {
	c, _ := newTestConsolidator(t)

	merged, ok := c.Consolidate("missing", "budget 20000")
	assert.False(t, ok)
	assert.Equal(t, "budget 20000", merged)
}

func TestConsolidate_DedupesRepeatedWords(t *testing.T) {
	c, memory := newTestConsolidator(t)

	base := time.Now()
	memory.now = func() time.Time { return base }
	memory.AddTurn("s1", "notebook for work", []string{"Notebooks"}, nil)

	c.now = func() time.Time { return base.Add(5 * time.Second) }
	merged, ok := c.Consolidate("s1", "Notebook with ssd")

	require.True(t, ok)
	// "Notebook" repeats case-insensitively; the first occurrence wins.
	assert.Equal(t, 1, strings.Count(strings.ToLower(merged), "notebook"))
	assert.Contains(t, merged, "ssd")
}

func TestConsolidate_ScansOnlyLastThreeTurns(t *testing.T) {
	c, memory := newTestConsolidator(t)

	base := time.Now()
	memory.now = func() time.Time { return base }
	memory.AddTurn("s1", "monitor question", []string{"Monitor"}, nil)
	memory.AddTurn("s1", "something else", nil, nil)
	memory.AddTurn("s1", "another thing", nil, nil)
	memory.AddTurn("s1", "last thing", nil, nil)

	c.now = func() time.Time { return base.Add(5 * time.Second) }
	merged, ok := c.Consolidate("s1", "monitor stand")

	// The monitor turn fell outside the three-turn lookback.
	assert.False(t, ok)
	assert.Equal(t, "monitor stand", merged)
}
