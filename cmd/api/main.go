package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pakkapols/techfinder/internal/adapters/cache"
	"github.com/pakkapols/techfinder/internal/adapters/database"
	"github.com/pakkapols/techfinder/internal/adapters/search"
	"github.com/pakkapols/techfinder/internal/api/handlers"
	"github.com/pakkapols/techfinder/internal/api/routes"
	"github.com/pakkapols/techfinder/internal/application/services"
	"github.com/pakkapols/techfinder/internal/domain/providers"
	"github.com/pakkapols/techfinder/internal/domain/repositories"
	"github.com/pakkapols/techfinder/internal/infrastructure/clients/openai"
	"github.com/pakkapols/techfinder/internal/infrastructure/clients/postgres"
	"github.com/pakkapols/techfinder/internal/infrastructure/clients/redis"
	"github.com/pakkapols/techfinder/internal/infrastructure/clients/typesense"
	"github.com/pakkapols/techfinder/internal/infrastructure/observability"
	"github.com/pakkapols/techfinder/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, os.Getenv("APP_ENV"))

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	var shutdown func(context.Context) error
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err = observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	log.Println("PostgreSQL client initialized successfully")

	// Initialize cache: Redis when reachable, in-process otherwise
	var cacheProvider providers.CacheProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
		cacheProvider = cache.NewMemoryAdapter()
		log.Println("Falling back to in-process cache")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		log.Println("Redis client initialized successfully")
	}

	// Initialize Typesense client
	var searchRepo repositories.ProductSearchRepository
	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Printf("Warning: Failed to initialize Typesense client: %v", err)
	} else {
		searchRepo = search.NewTypesenseAdapter(typesenseClient)
		log.Println("Typesense client initialized successfully")
	}
	if searchRepo == nil {
		searchRepo = search.NoopSearchRepository{}
	}

	// Initialize adapters
	productAdapter := database.NewProductAdapter(pgClient)

	// Initialize OpenAI collaborators (optional)
	var (
		interpreter providers.Interpreter
		responder   providers.Responder
	)
	if openaiClient, err := openai.NewClient(&cfg.OpenAI); err != nil {
		log.Printf("Warning: OpenAI client unavailable, deterministic fallbacks only: %v", err)
	} else {
		interpreter = openaiClient
		responder = openaiClient
	}

	// Initialize pipeline services
	normalizer, err := services.NewTextNormalizer(cfg.Pipeline.SpellingPath)
	if err != nil {
		log.Fatalf("Failed to load spelling variants: %v", err)
	}
	builder, err := services.NewQueryBuilderService(cfg.Pipeline.SynonymsPath, cfg.Pipeline.MinPlausibleBudget)
	if err != nil {
		log.Fatalf("Failed to load category synonyms: %v", err)
	}

	var liveCategories []string
	if categories, err := productAdapter.Categories(ctx); err != nil {
		log.Printf("Warning: Failed to load live categories: %v", err)
	} else {
		builder.SetValidCategories(categories)
		liveCategories = categories
		log.Printf("Loaded %d live categories", len(categories))
	}

	memory := services.NewConversationMemoryService()
	consolidator := services.NewInputConsolidator(
		memory,
		cfg.Pipeline.ConsolidationWindow,
		cfg.Pipeline.ShortInputRuneLimit,
		builder.SynonymKeys(),
	)
	segmenter := services.NewPhraseSegmenter()
	retrieval := services.NewRetrievalService(
		productAdapter,
		searchRepo,
		metrics,
		cfg.Pipeline.PrimaryQueryLimit,
		cfg.Pipeline.FallbackQueryLimit,
	)
	ranking := services.NewRankingService(cfg.Pipeline.RerankCandidateLimit, cfg.Pipeline.ResultLimit)
	planner := services.NewBuildPlannerService(productAdapter)

	pipeline := services.NewChatPipeline(services.ChatPipelineDeps{
		Consolidator: consolidator,
		Normalizer:   normalizer,
		Segmenter:    segmenter,
		Builder:      builder,
		Retrieval:    retrieval,
		Ranking:      ranking,
		Memory:       memory,
		Planner:      planner,
		Interpreter:  interpreter,
		Responder:    responder,
		Cache:        cacheProvider,
		Metrics:      metrics,
		Schema: providers.SchemaContext{
			Fields:          []string{"categories", "max_price", "min_price", "in_stock_only"},
			ValidCategories: liveCategories,
			SynonymTable:    builder.SynonymTable(),
		},
		InterpreterTimeout: cfg.Pipeline.InterpreterTimeout,
		RetrievalTimeout:   cfg.Pipeline.RetrievalTimeout,
	})

	catalogService := services.NewCatalogService(productAdapter, cacheProvider, metrics)

	// Start the session expiry sweep
	sweeper := services.NewSessionSweeper(memory, metrics, cfg.Pipeline.SessionTimeout, cfg.Pipeline.SweepInterval)
	sweeper.Start(ctx)

	// Initialize handlers and routes
	chatHandler := handlers.NewChatHandler(pipeline)
	catalogHandler := handlers.NewCatalogHandler(catalogService)

	router := routes.NewRouter(chatHandler, catalogHandler)
	handler := router.SetupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
