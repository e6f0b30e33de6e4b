package services

import (
	"context"
	"errors"
	"testing"

	"github.com/pakkapols/techfinder/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestRetrieve_PrimaryHitRunsNoFallback(t *testing.T) {
	repo := &fakeProductRepository{
		responses: [][]*entities.Product{
			{product("p1", "Notebook A", "", "Notebooks", 15000, 100)},
		},
	}
	search := &fakeSearchRepository{}
	svc := NewRetrievalService(repo, search, nil, 50, 100)

	query := entities.StructuredQuery{
		Categories:  []string{"Notebooks"},
		MaxPrice:    floatPtr(20000),
		InStockOnly: true,
	}
	outcome := svc.Retrieve(context.Background(), query, nil)

	require.Len(t, outcome.Products, 1)
	assert.Equal(t, 0, outcome.FallbackDepth)
	assert.Len(t, repo.queries, 1, "no fallback query may run after a primary hit")
	assert.Empty(t, search.tokens)
}

func TestRetrieve_DropPriceFallback(t *testing.T) {
	repo := &fakeProductRepository{
		responses: [][]*entities.Product{
			nil, // primary
			{product("p1", "Graphics Card X", "", "Graphics Cards", 17000, 90)}, // without price
		},
	}
	svc := NewRetrievalService(repo, &fakeSearchRepository{}, nil, 50, 100)

	query := entities.StructuredQuery{
		Categories:  []string{"Graphics Cards"},
		MaxPrice:    floatPtr(15000),
		InStockOnly: true,
	}
	outcome := svc.Retrieve(context.Background(), query, nil)

	require.Len(t, outcome.Products, 1)
	assert.Equal(t, 1, outcome.FallbackDepth)
	require.Len(t, repo.queries, 2)
	assert.Nil(t, repo.queries[1].MaxPrice)
	assert.Equal(t, []string{"Graphics Cards"}, repo.queries[1].Categories)
}

func TestRetrieve_CategoryOnlyFallback(t *testing.T) {
	repo := &fakeProductRepository{
		responses: [][]*entities.Product{
			nil, // primary
			nil, // without price
			{product("p1", "Notebook B", "", "Notebooks", 25000, 80)}, // category only
		},
	}
	svc := NewRetrievalService(repo, &fakeSearchRepository{}, nil, 50, 100)

	query := entities.StructuredQuery{
		Categories:  []string{"Notebooks"},
		MaxPrice:    floatPtr(10000),
		InStockOnly: true,
	}
	outcome := svc.Retrieve(context.Background(), query, nil)

	require.Len(t, outcome.Products, 1)
	assert.Equal(t, 2, outcome.FallbackDepth)
	require.Len(t, repo.queries, 3)
	assert.True(t, repo.queries[2].InStockOnly)
	assert.Nil(t, repo.queries[2].MaxPrice)
}

func TestRetrieve_TextSearchFallbackUsesLongTokens(t *testing.T) {
	repo := &fakeProductRepository{}
	search := &fakeSearchRepository{
		products: []*entities.Product{product("p1", "Asus TUF", "", "Notebooks", 30000, 70)},
	}
	svc := NewRetrievalService(repo, search, nil, 50, 100)

	unresolved := []entities.Phrase{
		{Text: "asus tuf a15", Tag: entities.PhraseContent},
		{Text: "is it good", Tag: entities.PhraseQuestion},
	}
	outcome := svc.Retrieve(context.Background(), entities.StructuredQuery{InStockOnly: true}, unresolved)

	require.Len(t, outcome.Products, 1)
	assert.Equal(t, 3, outcome.FallbackDepth)
	require.Len(t, search.tokens, 1)
	// Question tokens and words shorter than three runes stay out.
	assert.Equal(t, []string{"asus", "tuf", "a15"}, search.tokens[0])
}

func TestRetrieve_ExhaustedReturnsEmptyNotError(t *testing.T) {
	repo := &fakeProductRepository{}
	svc := NewRetrievalService(repo, &fakeSearchRepository{}, nil, 50, 100)

	query := entities.StructuredQuery{
		Categories:  []string{"Notebooks"},
		MaxPrice:    floatPtr(500),
		InStockOnly: true,
	}
	outcome := svc.Retrieve(context.Background(), query, nil)

	assert.Empty(t, outcome.Products)
}

func TestRetrieve_StoreErrorTreatedAsEmpty(t *testing.T) {
	repo := &fakeProductRepository{err: errors.New("connection refused")}
	search := &fakeSearchRepository{
		products: []*entities.Product{product("p1", "Fallback Hit", "", "Notebooks", 12000, 60)},
	}
	svc := NewRetrievalService(repo, search, nil, 50, 100)

	unresolved := []entities.Phrase{{Text: "fallback hit", Tag: entities.PhraseContent}}
	outcome := svc.Retrieve(context.Background(), entities.StructuredQuery{InStockOnly: true}, unresolved)

	// The store kept erroring but the text index answered.
	require.Len(t, outcome.Products, 1)
	assert.Equal(t, 3, outcome.FallbackDepth)
}

func TestRetrieve_NoPriceSkipsDropPriceStage(t *testing.T) {
	repo := &fakeProductRepository{}
	svc := NewRetrievalService(repo, &fakeSearchRepository{}, nil, 50, 100)

	query := entities.StructuredQuery{Categories: []string{"Notebooks"}, InStockOnly: true}
	svc.Retrieve(context.Background(), query, nil)

	// Primary plus category-only; the drop-price stage has nothing to drop.
	assert.Len(t, repo.queries, 2)
}
