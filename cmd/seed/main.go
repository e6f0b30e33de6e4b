package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pakkapols/techfinder/internal/adapters/database"
	"github.com/pakkapols/techfinder/internal/adapters/search"
	"github.com/pakkapols/techfinder/internal/domain/entities"
	"github.com/pakkapols/techfinder/internal/infrastructure/clients/postgres"
	"github.com/pakkapols/techfinder/internal/infrastructure/clients/typesense"
	"github.com/pakkapols/techfinder/pkg/config"
)

// Seeds the catalog from a JSON file into PostgreSQL and, when reachable,
// the Typesense search index.
func main() {
	dataPath := flag.String("data", "config/seed_products.json", "path to the seed product file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	products, err := loadProducts(*dataPath)
	if err != nil {
		log.Fatalf("Failed to load seed data: %v", err)
	}
	log.Printf("Loaded %d products from %s", len(products), *dataPath)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()

	productAdapter := database.NewProductAdapter(pgClient)

	var searchAdapter *search.TypesenseAdapter
	if tsClient, err := typesense.NewClient(&cfg.Typesense); err != nil {
		log.Printf("Warning: Typesense unavailable, skipping search indexing: %v", err)
	} else {
		if err := tsClient.InitSchema(ctx); err != nil {
			log.Printf("Warning: Failed to initialize search schema: %v", err)
		} else {
			searchAdapter = search.NewTypesenseAdapter(tsClient)
		}
	}

	seeded, indexed := 0, 0
	for _, product := range products {
		if product.ID == "" {
			product.ID = uuid.New().String()
		}
		now := time.Now()
		if product.CreatedAt.IsZero() {
			product.CreatedAt = now
		}
		product.UpdatedAt = now

		if err := productAdapter.Upsert(ctx, product); err != nil {
			log.Printf("Failed to upsert product %q: %v", product.Title, err)
			continue
		}
		seeded++

		if searchAdapter != nil {
			if err := searchAdapter.Index(ctx, product); err != nil {
				log.Printf("Failed to index product %q: %v", product.Title, err)
				continue
			}
			indexed++
		}
	}

	log.Printf("Seeding complete: %d upserted, %d indexed", seeded, indexed)
}

func loadProducts(path string) ([]*entities.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var products []*entities.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, err
	}
	return products, nil
}
