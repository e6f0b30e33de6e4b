package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/pakkapols/techfinder/internal/domain/entities"
	"github.com/pakkapols/techfinder/internal/domain/repositories"
	"github.com/pakkapols/techfinder/internal/infrastructure/clients/postgres"
	apperrors "github.com/pakkapols/techfinder/pkg/errors"
)

const productsTable = "products"

var productColumns = []interface{}{
	"id", "title", "description", "category", "price", "sale_price",
	"stock", "rating", "review_count", "popularity", "free_shipping",
	"is_active", "created_at", "updated_at",
}

// ProductAdapter implements ProductRepository and ProductWriteRepository
// over PostgreSQL.
type ProductAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.ProductRepository = (*ProductAdapter)(nil)
var _ repositories.ProductWriteRepository = (*ProductAdapter)(nil)

// NewProductAdapter creates a new product adapter
func NewProductAdapter(client *postgres.Client) *ProductAdapter {
	return &ProductAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// whereFor translates a structured query into goqu expressions. Only the
// whitelisted fields are ever consulted here; anything else was dropped at
// validation time.
func whereFor(query entities.StructuredQuery) []goqu.Expression {
	exprs := []goqu.Expression{
		goqu.Ex{"is_active": true},
	}
	if query.InStockOnly {
		exprs = append(exprs, goqu.C("stock").Gt(0))
	}
	if len(query.Categories) == 1 {
		exprs = append(exprs, goqu.Ex{"category": query.Categories[0]})
	} else if len(query.Categories) > 1 {
		exprs = append(exprs, goqu.C("category").In(query.Categories))
	}
	if query.MinPrice != nil {
		exprs = append(exprs, goqu.C("sale_price").Gte(*query.MinPrice))
	}
	if query.MaxPrice != nil {
		exprs = append(exprs, goqu.C("sale_price").Lte(*query.MaxPrice))
	}
	return exprs
}

func orderFor(sort []entities.SortSpec) []exp.OrderedExpression {
	if len(sort) == 0 {
		sort = entities.DefaultRetrievalSort()
	}
	ordered := make([]exp.OrderedExpression, 0, len(sort))
	for _, s := range sort {
		col := goqu.I(string(s.Field))
		if s.Desc {
			ordered = append(ordered, col.Desc())
		} else {
			ordered = append(ordered, col.Asc())
		}
	}
	return ordered
}

// Query runs a structured query with ordering and limit.
func (a *ProductAdapter) Query(ctx context.Context, query entities.StructuredQuery, sort []entities.SortSpec, limit int) ([]*entities.Product, error) {
	if limit <= 0 {
		limit = 20
	}

	sqlQuery, args, err := a.db.Select(productColumns...).
		From(productsTable).
		Where(whereFor(query)...).
		Order(orderFor(sort)...).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build product query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query products", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// GetByID retrieves a product by ID
func (a *ProductAdapter) GetByID(ctx context.Context, id string) (*entities.Product, error) {
	sqlQuery, args, err := a.db.Select(productColumns...).
		From(productsTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build product query", err)
	}

	row := a.client.DB().QueryRowContext(ctx, sqlQuery, args...)
	p := &entities.Product{}
	err = row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Category, &p.Price, &p.SalePrice,
		&p.Stock, &p.Rating, &p.ReviewCount, &p.Popularity, &p.FreeShipping,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("product with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get product", err)
	}
	return p, nil
}

// Aggregate computes count, price range and distinct categories for a
// structured query.
func (a *ProductAdapter) Aggregate(ctx context.Context, query entities.StructuredQuery) (*entities.CatalogStats, error) {
	sqlQuery, args, err := a.db.Select(
		goqu.COUNT("*").As("count"),
		goqu.COALESCE(goqu.MIN("sale_price"), 0).As("price_min"),
		goqu.COALESCE(goqu.AVG("sale_price"), 0).As("price_avg"),
		goqu.COALESCE(goqu.MAX("sale_price"), 0).As("price_max"),
	).From(productsTable).
		Where(whereFor(query)...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build aggregate query", err)
	}

	stats := &entities.CatalogStats{}
	row := a.client.DB().QueryRowContext(ctx, sqlQuery, args...)
	if err := row.Scan(&stats.Count, &stats.PriceMin, &stats.PriceAvg, &stats.PriceMax); err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate products", err)
	}

	catQuery, catArgs, err := a.db.Select(goqu.DISTINCT("category")).
		From(productsTable).
		Where(whereFor(query)...).
		Order(goqu.I("category").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build category query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, catQuery, catArgs...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query categories", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, apperrors.NewInternalError("failed to scan category", err)
		}
		stats.Categories = append(stats.Categories, c)
	}
	return stats, rows.Err()
}

// Categories lists the distinct categories of active products.
func (a *ProductAdapter) Categories(ctx context.Context) ([]string, error) {
	sqlQuery, args, err := a.db.Select(goqu.DISTINCT("category")).
		From(productsTable).
		Where(goqu.Ex{"is_active": true}).
		Order(goqu.I("category").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build category query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query categories", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, apperrors.NewInternalError("failed to scan category", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Trending lists popular, well-reviewed in-stock products.
func (a *ProductAdapter) Trending(ctx context.Context, limit int) ([]*entities.Product, error) {
	if limit <= 0 {
		limit = 10
	}

	sqlQuery, args, err := a.db.Select(productColumns...).
		From(productsTable).
		Where(
			goqu.Ex{"is_active": true},
			goqu.C("stock").Gt(0),
			goqu.C("rating").Gte(3.0),
		).
		Order(
			goqu.I("popularity").Desc(),
			goqu.I("review_count").Desc(),
			goqu.I("rating").Desc(),
		).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build trending query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query trending products", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// SimilarTo lists products in the same category or a 20% price band around
// the given product.
func (a *ProductAdapter) SimilarTo(ctx context.Context, product *entities.Product, limit int) ([]*entities.Product, error) {
	if limit <= 0 {
		limit = 5
	}

	related := goqu.Or(
		goqu.Ex{"category": product.Category},
		goqu.And(
			goqu.C("sale_price").Gte(product.SalePrice*0.8),
			goqu.C("sale_price").Lte(product.SalePrice*1.2),
		),
	)

	sqlQuery, args, err := a.db.Select(productColumns...).
		From(productsTable).
		Where(
			goqu.Ex{"is_active": true},
			goqu.C("stock").Gt(0),
			goqu.C("id").Neq(product.ID),
			related,
		).
		Order(orderFor(nil)...).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build similar query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query similar products", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// Upsert inserts or updates a product.
func (a *ProductAdapter) Upsert(ctx context.Context, product *entities.Product) error {
	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	record := goqu.Record{
		"id":            product.ID,
		"title":         product.Title,
		"description":   product.Description,
		"category":      product.Category,
		"price":         product.Price,
		"sale_price":    product.SalePrice,
		"stock":         product.Stock,
		"rating":        product.Rating,
		"review_count":  product.ReviewCount,
		"popularity":    product.Popularity,
		"free_shipping": product.FreeShipping,
		"is_active":     product.IsActive,
		"created_at":    product.CreatedAt,
		"updated_at":    product.UpdatedAt,
	}

	sqlQuery, args, err := a.db.Insert(productsTable).
		Rows(record).
		OnConflict(goqu.DoUpdate("id", record)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, sqlQuery, args...); err != nil {
		return apperrors.NewInternalError("failed to upsert product", err)
	}
	return nil
}

func scanProducts(rows *sql.Rows) ([]*entities.Product, error) {
	var products []*entities.Product
	for rows.Next() {
		p := &entities.Product{}
		err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.Category, &p.Price, &p.SalePrice,
			&p.Stock, &p.Rating, &p.ReviewCount, &p.Popularity, &p.FreeShipping,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan product", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
