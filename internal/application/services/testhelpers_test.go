package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pakkapols/techfinder/internal/domain/entities"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const testSynonymsJSON = `{
  "notebook": ["Notebooks"],
  "notebooks": ["Notebooks"],
  "gaming notebook": ["Gaming Notebooks"],
  "graphics card": ["Graphics Cards"],
  "graphics cards": ["Graphics Cards"],
  "cpu": ["CPU"],
  "ram": ["RAM"],
  "monitor": ["Monitor"],
  "keyboard": ["Keyboard"],
  "mouse": ["Mouse"],
  "headphone": ["Headphone"]
}`

const testSpellingJSON = `{
  "labtop": "laptop",
  "notbook": "notebook",
  "moniter": "monitor",
  "budjet": "budget"
}`

func newTestNormalizer(t *testing.T) *TextNormalizer {
	t.Helper()
	n, err := NewTextNormalizer(writeTestFile(t, "spelling.json", testSpellingJSON))
	if err != nil {
		t.Fatalf("new normalizer: %v", err)
	}
	return n
}

func newTestBuilder(t *testing.T) *QueryBuilderService {
	t.Helper()
	b, err := NewQueryBuilderService(writeTestFile(t, "synonyms.json", testSynonymsJSON), 1000)
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	return b
}

// fakeProductRepository records which query stages ran and serves canned
// responses per stage.
type fakeProductRepository struct {
	queries   []entities.StructuredQuery
	responses [][]*entities.Product
	err       error

	trending []*entities.Product
	similar  []*entities.Product
	stats    *entities.CatalogStats
	byID     map[string]*entities.Product
}

func (f *fakeProductRepository) Query(ctx context.Context, query entities.StructuredQuery, sort []entities.SortSpec, limit int) ([]*entities.Product, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeProductRepository) GetByID(ctx context.Context, id string) (*entities.Product, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, nil
}

func (f *fakeProductRepository) Aggregate(ctx context.Context, query entities.StructuredQuery) (*entities.CatalogStats, error) {
	if f.stats == nil {
		return nil, errors.New("no stats")
	}
	return f.stats, nil
}

func (f *fakeProductRepository) Categories(ctx context.Context) ([]string, error) {
	return []string{"Notebooks", "Gaming Notebooks", "Graphics Cards", "CPU", "RAM", "Monitor"}, nil
}

func (f *fakeProductRepository) Trending(ctx context.Context, limit int) ([]*entities.Product, error) {
	return f.trending, nil
}

func (f *fakeProductRepository) SimilarTo(ctx context.Context, product *entities.Product, limit int) ([]*entities.Product, error) {
	return f.similar, nil
}

// fakeSearchRepository serves one canned text-search response.
type fakeSearchRepository struct {
	tokens   [][]string
	products []*entities.Product
	err      error
}

func (f *fakeSearchRepository) TextSearch(ctx context.Context, tokens []string, limit int) ([]*entities.Product, error) {
	f.tokens = append(f.tokens, tokens)
	return f.products, f.err
}

func (f *fakeSearchRepository) Index(ctx context.Context, product *entities.Product) error {
	return nil
}

func product(id, title, description, category string, salePrice float64, popularity int) *entities.Product {
	return &entities.Product{
		ID:          id,
		Title:       title,
		Description: description,
		Category:    category,
		Price:       salePrice * 1.1,
		SalePrice:   salePrice,
		Stock:       5,
		Rating:      4.5,
		ReviewCount: 100,
		Popularity:  popularity,
		IsActive:    true,
	}
}
