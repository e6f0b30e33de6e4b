package entities

import "time"

// Product represents a catalog item. Products are read-only to the search
// pipeline; writes happen only through ingestion and seeding.
type Product struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	Category     string    `json:"category" db:"category"`
	Price        float64   `json:"price" db:"price"`
	SalePrice    float64   `json:"sale_price" db:"sale_price"`
	Stock        int       `json:"stock" db:"stock"`
	Rating       float64   `json:"rating" db:"rating"`
	ReviewCount  int       `json:"review_count" db:"review_count"`
	Popularity   int       `json:"popularity" db:"popularity"`
	FreeShipping bool      `json:"free_shipping" db:"free_shipping"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// DiscountPercent returns the rounded discount relative to the list price,
// or 0 when the item is not on sale.
func (p *Product) DiscountPercent() int {
	if p.Price <= 0 || p.SalePrice >= p.Price {
		return 0
	}
	return int((p.Price-p.SalePrice)/p.Price*100 + 0.5)
}

// CatalogStats holds aggregate figures for a structured query, used by the
// insights endpoint.
type CatalogStats struct {
	Count      int      `json:"count"`
	PriceMin   float64  `json:"price_min"`
	PriceAvg   float64  `json:"price_avg"`
	PriceMax   float64  `json:"price_max"`
	Categories []string `json:"categories"`
}
