package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/pakkapols/techfinder/internal/domain/entities"
	"github.com/pakkapols/techfinder/internal/domain/repositories"
	tsclient "github.com/pakkapols/techfinder/internal/infrastructure/clients/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

// TypesenseAdapter implements free-text product search over Typesense. The
// retrieval controller only reaches it as the last fallback, when neither
// the primary structured query nor its relaxations matched anything.
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.ProductSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// TextSearch matches tokens against title and description, in-stock items
// only, ranked by text relevance then popularity.
func (a *TypesenseAdapter) TextSearch(ctx context.Context, tokens []string, limit int) ([]*entities.Product, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	searchParams := &api.SearchCollectionParams{
		Q:        pointer.String(strings.Join(tokens, " ")),
		QueryBy:  pointer.String("title,description"),
		FilterBy: pointer.String("is_active:=true && stock:>0"),
		SortBy:   pointer.String("_text_match:desc,popularity:desc"),
		PerPage:  pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(tsclient.ProductsCollection).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	if result.Hits == nil {
		return nil, nil
	}

	products := make([]*entities.Product, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		products = append(products, documentToProduct(*hit.Document))
	}
	return products, nil
}

// Index upserts a product document into the search index.
func (a *TypesenseAdapter) Index(ctx context.Context, product *entities.Product) error {
	document := map[string]interface{}{
		"id":           product.ID,
		"title":        product.Title,
		"description":  product.Description,
		"category":     product.Category,
		"price":        product.Price,
		"sale_price":   product.SalePrice,
		"stock":        product.Stock,
		"rating":       product.Rating,
		"review_count": product.ReviewCount,
		"popularity":   product.Popularity,
		"is_active":    product.IsActive,
	}

	if _, err := a.client.Client().Collection(tsclient.ProductsCollection).Documents().Upsert(ctx, document); err != nil {
		return fmt.Errorf("failed to index product: %w", err)
	}
	return nil
}

// documentToProduct rebuilds a Product from the map Typesense returns.
// Numeric fields come back as float64 regardless of schema type.
func documentToProduct(doc map[string]interface{}) *entities.Product {
	p := &entities.Product{}
	if v, ok := doc["id"].(string); ok {
		p.ID = v
	}
	if v, ok := doc["title"].(string); ok {
		p.Title = v
	}
	if v, ok := doc["description"].(string); ok {
		p.Description = v
	}
	if v, ok := doc["category"].(string); ok {
		p.Category = v
	}
	if v, ok := doc["price"].(float64); ok {
		p.Price = v
	}
	if v, ok := doc["sale_price"].(float64); ok {
		p.SalePrice = v
	}
	if v, ok := doc["stock"].(float64); ok {
		p.Stock = int(v)
	}
	if v, ok := doc["rating"].(float64); ok {
		p.Rating = v
	}
	if v, ok := doc["review_count"].(float64); ok {
		p.ReviewCount = int(v)
	}
	if v, ok := doc["popularity"].(float64); ok {
		p.Popularity = int(v)
	}
	if v, ok := doc["is_active"].(bool); ok {
		p.IsActive = v
	}
	return p
}
