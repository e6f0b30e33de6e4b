package services

import (
	"context"
	"strings"

	"github.com/pakkapols/techfinder/internal/domain/entities"
	"github.com/pakkapols/techfinder/internal/domain/repositories"
	"github.com/pakkapols/techfinder/internal/infrastructure/observability"
	"github.com/rs/zerolog/log"
)

// RetrievalService runs a structured query against the catalog and relaxes
// it step by step when it comes back empty. A store error at any step is
// treated as an empty result for that step, never surfaced to the caller.
type RetrievalService struct {
	products repositories.ProductRepository
	search   repositories.ProductSearchRepository
	metrics  *observability.Metrics

	primaryLimit  int
	fallbackLimit int
}

// RetrievalOutcome records what retrieval produced and how hard it had to
// work. FallbackDepth 0 means the primary query matched.
type RetrievalOutcome struct {
	Products      []*entities.Product
	FallbackDepth int
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(
	products repositories.ProductRepository,
	search repositories.ProductSearchRepository,
	metrics *observability.Metrics,
	primaryLimit, fallbackLimit int,
) *RetrievalService {
	return &RetrievalService{
		products:      products,
		search:        search,
		metrics:       metrics,
		primaryLimit:  primaryLimit,
		fallbackLimit: fallbackLimit,
	}
}

// Retrieve executes the primary query and, only if it matched nothing, the
// fallback ladder in strict order: drop the price bound, then category
// alone, then free-text search over the unconsumed phrase tokens. An
// exhausted ladder returns an empty outcome, not an error.
func (s *RetrievalService) Retrieve(ctx context.Context, query entities.StructuredQuery, unresolved []entities.Phrase) *RetrievalOutcome {
	sort := entities.DefaultRetrievalSort()

	if products := s.runQuery(ctx, query, sort, s.primaryLimit, "primary"); len(products) > 0 {
		return &RetrievalOutcome{Products: products, FallbackDepth: 0}
	}

	if query.MaxPrice != nil || query.MinPrice != nil {
		if products := s.runQuery(ctx, query.WithoutPrice(), sort, s.fallbackLimit, "drop_price"); len(products) > 0 {
			s.recordDepth(ctx, 1)
			return &RetrievalOutcome{Products: products, FallbackDepth: 1}
		}
	}

	if len(query.Categories) > 0 {
		if products := s.runQuery(ctx, query.CategoryOnly(), sort, s.fallbackLimit, "category_only"); len(products) > 0 {
			s.recordDepth(ctx, 2)
			return &RetrievalOutcome{Products: products, FallbackDepth: 2}
		}
	}

	if tokens := searchTokens(unresolved); len(tokens) > 0 {
		products, err := s.search.TextSearch(ctx, tokens, s.fallbackLimit)
		if err != nil {
			log.Warn().Err(err).Strs("tokens", tokens).Msg("text search fallback failed")
		} else if len(products) > 0 {
			s.recordDepth(ctx, 3)
			return &RetrievalOutcome{Products: products, FallbackDepth: 3}
		}
	}

	return &RetrievalOutcome{FallbackDepth: 3}
}

func (s *RetrievalService) runQuery(ctx context.Context, query entities.StructuredQuery, sort []entities.SortSpec, limit int, stage string) []*entities.Product {
	products, err := s.products.Query(ctx, query, sort, limit)
	if err != nil {
		log.Warn().Err(err).Str("stage", stage).Str("query", query.String()).Msg("catalog query failed, treating as empty")
		return nil
	}
	return products
}

func (s *RetrievalService) recordDepth(ctx context.Context, depth int) {
	observability.RecordFallbackDepth(ctx, s.metrics, depth)
}

// searchTokens collects the free-text tokens retrieval may fall back on:
// words of length three or more from content and inference phrases.
func searchTokens(unresolved []entities.Phrase) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, p := range unresolved {
		if p.Tag != entities.PhraseContent && p.Tag != entities.PhraseInference {
			continue
		}
		for _, tok := range strings.Fields(strings.ToLower(p.Text)) {
			if len(tok) < 3 {
				continue
			}
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
