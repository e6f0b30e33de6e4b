package services

import (
	"context"
	"testing"

	"github.com/pakkapols/techfinder/internal/domain/entities"
	apperrors "github.com/pakkapols/techfinder/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsights_AggregatesCatalog(t *testing.T) {
	repo := &fakeProductRepository{
		stats: &entities.CatalogStats{
			Count:      42,
			PriceMin:   990,
			PriceAvg:   15400,
			PriceMax:   52990,
			Categories: []string{"Notebooks", "RAM"},
		},
	}
	svc := NewCatalogService(repo, nil, nil)

	stats, err := svc.Insights(context.Background(), entities.StructuredQuery{})
	require.NoError(t, err)
	assert.Equal(t, 42, stats.Count)
	assert.Equal(t, []string{"Notebooks", "RAM"}, stats.Categories)
}

func TestTrending_ClampsLimit(t *testing.T) {
	repo := &fakeProductRepository{
		trending: []*entities.Product{product("p1", "Hot Item", "", "RAM", 3990, 8200)},
	}
	svc := NewCatalogService(repo, nil, nil)

	for _, limit := range []int{0, -5, 999} {
		products, err := svc.Trending(context.Background(), limit)
		require.NoError(t, err)
		assert.Len(t, products, 1)
	}
}

func TestRecommendations_NotFound(t *testing.T) {
	repo := &fakeProductRepository{byID: map[string]*entities.Product{}}
	svc := NewCatalogService(repo, nil, nil)

	_, err := svc.Recommendations(context.Background(), "missing", 5)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRecommendations_ReturnsSimilarProducts(t *testing.T) {
	source := product("p1", "RTX 4060", "", "Graphics Cards", 11990, 7300)
	repo := &fakeProductRepository{
		byID:    map[string]*entities.Product{"p1": source},
		similar: []*entities.Product{product("p2", "RX 7600", "", "Graphics Cards", 9990, 3900)},
	}
	svc := NewCatalogService(repo, nil, nil)

	products, err := svc.Recommendations(context.Background(), "p1", 5)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p2", products[0].ID)
}
