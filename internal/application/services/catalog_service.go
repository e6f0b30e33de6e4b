package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pakkapols/techfinder/internal/domain/entities"
	"github.com/pakkapols/techfinder/internal/domain/providers"
	"github.com/pakkapols/techfinder/internal/domain/repositories"
	"github.com/pakkapols/techfinder/internal/infrastructure/observability"
	appErrors "github.com/pakkapols/techfinder/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	insightsCacheTTL = 300 // 5 minutes
	trendingCacheTTL = 300
)

// CatalogService serves the read-side catalog operations that sit next to
// the chat pipeline: aggregate insights, trending lists and per-product
// recommendations.
type CatalogService struct {
	products repositories.ProductRepository
	cache    providers.CacheProvider
	metrics  *observability.Metrics
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(products repositories.ProductRepository, cache providers.CacheProvider, metrics *observability.Metrics) *CatalogService {
	return &CatalogService{
		products: products,
		cache:    cache,
		metrics:  metrics,
	}
}

// Insights aggregates the in-stock catalog matched by the query: item
// count, price spread and the distinct categories.
func (s *CatalogService) Insights(ctx context.Context, query entities.StructuredQuery) (*entities.CatalogStats, error) {
	query.Validate()

	cacheKey := "insights:" + query.String()
	if stats := s.cachedStats(ctx, cacheKey); stats != nil {
		return stats, nil
	}

	stats, err := s.products.Aggregate(ctx, query)
	if err != nil {
		return nil, appErrors.NewInternalError("failed to aggregate catalog", err)
	}

	s.storeCache(ctx, cacheKey, stats, insightsCacheTTL)
	return stats, nil
}

// Trending lists well-reviewed in-stock products ordered by popularity.
func (s *CatalogService) Trending(ctx context.Context, limit int) ([]*entities.Product, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	cacheKey := fmt.Sprintf("trending:%d", limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var cached []*entities.Product
			if json.Unmarshal(data, &cached) == nil {
				observability.RecordCacheHit(ctx, s.metrics, "trending")
				return cached, nil
			}
		} else {
			observability.RecordCacheMiss(ctx, s.metrics, "trending")
		}
	}

	products, err := s.products.Trending(ctx, limit)
	if err != nil {
		return nil, appErrors.NewInternalError("failed to fetch trending products", err)
	}

	s.storeCache(ctx, cacheKey, products, trendingCacheTTL)
	return products, nil
}

// Recommendations lists products related to the given one by category or
// price band.
func (s *CatalogService) Recommendations(ctx context.Context, productID string, limit int) ([]*entities.Product, error) {
	if limit <= 0 || limit > 20 {
		limit = 5
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, appErrors.NewNotFoundError(fmt.Sprintf("product %s not found", productID))
	}

	similar, err := s.products.SimilarTo(ctx, product, limit)
	if err != nil {
		return nil, appErrors.NewInternalError("failed to fetch recommendations", err)
	}
	return similar, nil
}

func (s *CatalogService) cachedStats(ctx context.Context, key string) *entities.CatalogStats {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		observability.RecordCacheMiss(ctx, s.metrics, "insights")
		return nil
	}
	var stats entities.CatalogStats
	if json.Unmarshal(data, &stats) != nil {
		return nil
	}
	observability.RecordCacheHit(ctx, s.metrics, "insights")
	return &stats
}

func (s *CatalogService) storeCache(ctx context.Context, key string, value interface{}, ttl int) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("failed to cache catalog data")
	}
}
