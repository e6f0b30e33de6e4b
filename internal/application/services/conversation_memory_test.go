package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pakkapols/techfinder/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTurn_LazySessionCreation(t *testing.T) {
	m := NewConversationMemoryService()

	_, ok := m.GetContext("s1")
	assert.False(t, ok)

	m.AddTurn("s1", "need a notebook", []string{"Notebooks"}, nil)

	ctx, ok := m.GetContext("s1")
	require.True(t, ok)
	assert.Equal(t, []string{"Notebooks"}, ctx.LastCategories)
	assert.Equal(t, 1, m.SessionCount())
}

func TestAddTurn_TruncatesToTenMostRecent(t *testing.T) {
	m := NewConversationMemoryService()

	for i := 1; i <= 11; i++ {
		m.AddTurn("s1", fmt.Sprintf("turn %d", i), nil, nil)
	}

	turns := m.GetRecentTurns("s1", entities.MaxTurnsPerSession+5)
	require.Len(t, turns, entities.MaxTurnsPerSession)
	assert.Equal(t, "turn 2", turns[0].Utterance)
	assert.Equal(t, "turn 11", turns[len(turns)-1].Utterance)
}

func TestAddTurn_ContextOnlyOverwritesNonEmpty(t *testing.T) {
	m := NewConversationMemoryService()

	budget := 20000.0
	m.AddTurn("s1", "notebook budget 20000", []string{"Notebooks"}, &budget)
	m.AddTurn("s1", "what about warranty", nil, nil)

	ctx, ok := m.GetContext("s1")
	require.True(t, ok)
	assert.Equal(t, []string{"Notebooks"}, ctx.LastCategories)
	require.NotNil(t, ctx.LastBudget)
	assert.Equal(t, 20000.0, *ctx.LastBudget)
}

func TestGetRecentTurns_OldestFirst(t *testing.T) {
	m := NewConversationMemoryService()

	m.AddTurn("s1", "first", nil, nil)
	m.AddTurn("s1", "second", nil, nil)
	m.AddTurn("s1", "third", nil, nil)

	turns := m.GetRecentTurns("s1", 2)
	require.Len(t, turns, 2)
	assert.Equal(t, "second", turns[0].Utterance)
	assert.Equal(t, "third", turns[1].Utterance)
}

func TestSweepExpired_RemovesOnlyIdleSessions(t *testing.T) {
	m := NewConversationMemoryService()

	current := time.Now()
	m.now = func() time.Time { return current.Add(-time.Hour) }
	m.AddTurn("stale", "old request", nil, nil)

	m.now = func() time.Time { return current }
	m.AddTurn("fresh", "new request", nil, nil)

	removed := m.SweepExpired(30 * time.Minute)

	assert.Equal(t, 1, removed)
	_, staleOK := m.GetContext("stale")
	_, freshOK := m.GetContext("fresh")
	assert.False(t, staleOK)
	assert.True(t, freshOK)
}

func TestSweepExpired_TouchedSessionSurvives(t *testing.T) {
	m := NewConversationMemoryService()

	current := time.Now()
	m.now = func() time.Time { return current.Add(-time.Hour) }
	m.AddTurn("s1", "old request", nil, nil)

	// A new turn refreshes last-active.
	m.now = func() time.Time { return current }
	m.AddTurn("s1", "follow up", nil, nil)

	assert.Zero(t, m.SweepExpired(30*time.Minute))
	_, ok := m.GetContext("s1")
	assert.True(t, ok)
}

func TestAddTurn_ConcurrentSessions(t *testing.T) {
	m := NewConversationMemoryService()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("s%d", n%4)
			for j := 0; j < 25; j++ {
				m.AddTurn(sessionID, "utterance", []string{"Notebooks"}, nil)
				m.GetRecentTurns(sessionID, 3)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, m.SessionCount())
	for i := 0; i < 4; i++ {
		turns := m.GetRecentTurns(fmt.Sprintf("s%d", i), entities.MaxTurnsPerSession)
		assert.Len(t, turns, entities.MaxTurnsPerSession)
	}
}
