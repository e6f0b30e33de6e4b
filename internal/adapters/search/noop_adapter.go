package search

import (
	"context"

	"github.com/pakkapols/techfinder/internal/domain/entities"
	"github.com/pakkapols/techfinder/internal/domain/repositories"
)

// NoopSearchRepository stands in when Typesense is unreachable at startup.
// The text-search fallback then simply finds nothing; the earlier fallback
// stages still work.
type NoopSearchRepository struct{}

var _ repositories.ProductSearchRepository = NoopSearchRepository{}

func (NoopSearchRepository) TextSearch(ctx context.Context, tokens []string, limit int) ([]*entities.Product, error) {
	return nil, nil
}

func (NoopSearchRepository) Index(ctx context.Context, product *entities.Product) error {
	return nil
}
