package repositories

import (
	"context"

	"github.com/pakkapols/techfinder/internal/domain/entities"
)

// ProductRepository is the read-only capability the pipeline has against the
// document store. Query failures are reported as errors; callers treat them
// as empty result sets.
type ProductRepository interface {
	// Query runs a structured query with the given ordering and limit.
	Query(ctx context.Context, query entities.StructuredQuery, sort []entities.SortSpec, limit int) ([]*entities.Product, error)

	// GetByID fetches a single product.
	GetByID(ctx context.Context, id string) (*entities.Product, error)

	// Aggregate computes count, price min/avg/max and the distinct
	// categories matched by a structured query.
	Aggregate(ctx context.Context, query entities.StructuredQuery) (*entities.CatalogStats, error)

	// Categories lists the distinct category names currently in the
	// catalog. The query builder uses this as the live valid set.
	Categories(ctx context.Context) ([]string, error)

	// Trending lists well-reviewed in-stock products by popularity.
	Trending(ctx context.Context, limit int) ([]*entities.Product, error)

	// SimilarTo lists products related to the given one: same category or
	// within a 20% price band, excluding the product itself.
	SimilarTo(ctx context.Context, product *entities.Product, limit int) ([]*entities.Product, error)
}

// ProductSearchRepository is the free-text search capability used by the
// final retrieval fallback and by catalog indexing.
type ProductSearchRepository interface {
	// TextSearch matches tokens against product title and description.
	TextSearch(ctx context.Context, tokens []string, limit int) ([]*entities.Product, error)

	// Index upserts a product document into the search index.
	Index(ctx context.Context, product *entities.Product) error
}

// ProductWriteRepository supports ingestion and seeding.
type ProductWriteRepository interface {
	Upsert(ctx context.Context, product *entities.Product) error
}
