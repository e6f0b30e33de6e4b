package entities

import (
	"fmt"
	"sort"
	"strings"
)

// StructuredQuery is a conjunction over the fixed whitelist of catalog
// fields. InStockOnly is always true for queries built by the pipeline;
// Validate enforces it.
type StructuredQuery struct {
	Categories  []string `json:"categories,omitempty"`
	MaxPrice    *float64 `json:"max_price,omitempty"`
	MinPrice    *float64 `json:"min_price,omitempty"`
	InStockOnly bool     `json:"in_stock_only"`
}

// queryFieldWhitelist is the closed set of fields a structured query may
// constrain. Anything else produced upstream is dropped during validation.
var queryFieldWhitelist = map[string]struct{}{
	"categories":    {},
	"max_price":     {},
	"min_price":     {},
	"in_stock_only": {},
}

// IsWhitelistedField reports whether a field name may appear in a
// structured query.
func IsWhitelistedField(name string) bool {
	_, ok := queryFieldWhitelist[strings.ToLower(name)]
	return ok
}

// Validate normalizes the query in place: the availability predicate is
// forced on, category duplicates collapse, and negative price bounds drop.
// It returns the names of any dropped fields for diagnostic logging; a
// dropped field is never an error.
func (q *StructuredQuery) Validate() []string {
	var dropped []string

	q.InStockOnly = true

	if len(q.Categories) > 0 {
		seen := make(map[string]struct{}, len(q.Categories))
		kept := q.Categories[:0]
		for _, c := range q.Categories {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			kept = append(kept, c)
		}
		q.Categories = kept
		sort.Strings(q.Categories)
	}

	if q.MaxPrice != nil && *q.MaxPrice <= 0 {
		q.MaxPrice = nil
		dropped = append(dropped, "max_price")
	}
	if q.MinPrice != nil && *q.MinPrice < 0 {
		q.MinPrice = nil
		dropped = append(dropped, "min_price")
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		q.MinPrice = nil
		dropped = append(dropped, "min_price")
	}

	return dropped
}

// WithoutPrice returns a copy of the query with both price bounds removed.
// Used by the first retrieval fallback.
func (q StructuredQuery) WithoutPrice() StructuredQuery {
	q.MaxPrice = nil
	q.MinPrice = nil
	return q
}

// CategoryOnly returns a copy constrained only by category and availability.
func (q StructuredQuery) CategoryOnly() StructuredQuery {
	return StructuredQuery{Categories: q.Categories, InStockOnly: true}
}

// String renders the query for logs and reasoning text.
func (q StructuredQuery) String() string {
	parts := []string{"in_stock"}
	if len(q.Categories) == 1 {
		parts = append(parts, "category="+q.Categories[0])
	} else if len(q.Categories) > 1 {
		parts = append(parts, "category in ["+strings.Join(q.Categories, ", ")+"]")
	}
	if q.MinPrice != nil {
		parts = append(parts, fmt.Sprintf("price>=%.0f", *q.MinPrice))
	}
	if q.MaxPrice != nil {
		parts = append(parts, fmt.Sprintf("price<=%.0f", *q.MaxPrice))
	}
	return strings.Join(parts, " AND ")
}

// SortField identifies a sortable catalog column.
type SortField string

const (
	SortPopularity  SortField = "popularity"
	SortRating      SortField = "rating"
	SortReviewCount SortField = "review_count"
	SortSalePrice   SortField = "sale_price"
)

// SortSpec is one ordering term of a query.
type SortSpec struct {
	Field SortField
	Desc  bool
}

// DefaultRetrievalSort is the ordering used by every retrieval query:
// most viewed first, then best rated, then most reviewed.
func DefaultRetrievalSort() []SortSpec {
	return []SortSpec{
		{Field: SortPopularity, Desc: true},
		{Field: SortRating, Desc: true},
		{Field: SortReviewCount, Desc: true},
	}
}
