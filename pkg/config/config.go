package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	OpenAI    OpenAIConfig
	Pipeline  PipelineConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL    string
	APIKey string
}

// OpenAIConfig holds OpenAI configuration
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// PipelineConfig holds the conversational search pipeline tuning knobs.
type PipelineConfig struct {
	SynonymsPath         string
	SpellingPath         string
	MinPlausibleBudget   float64
	SessionTimeout       time.Duration
	SweepInterval        time.Duration
	ConsolidationWindow  time.Duration
	ShortInputRuneLimit  int
	InterpreterTimeout   time.Duration
	RetrievalTimeout     time.Duration
	PrimaryQueryLimit    int
	FallbackQueryLimit   int
	RerankCandidateLimit int
	ResultLimit          int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "techfinder"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:    getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey: getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		OpenAI: OpenAIConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Pipeline: PipelineConfig{
			SynonymsPath:         getEnv("SYNONYMS_PATH", "config/category_synonyms.json"),
			SpellingPath:         getEnv("SPELLING_PATH", "config/spelling_variants.json"),
			MinPlausibleBudget:   getEnvAsFloat("MIN_PLAUSIBLE_BUDGET", 1000),
			SessionTimeout:       getEnvAsDuration("SESSION_TIMEOUT", 30*time.Minute),
			SweepInterval:        getEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
			ConsolidationWindow:  getEnvAsDuration("CONSOLIDATION_WINDOW", 60*time.Second),
			ShortInputRuneLimit:  getEnvAsInt("SHORT_INPUT_RUNE_LIMIT", 50),
			InterpreterTimeout:   getEnvAsDuration("INTERPRETER_TIMEOUT", 10*time.Second),
			RetrievalTimeout:     getEnvAsDuration("RETRIEVAL_TIMEOUT", 5*time.Second),
			PrimaryQueryLimit:    getEnvAsInt("PRIMARY_QUERY_LIMIT", 50),
			FallbackQueryLimit:   getEnvAsInt("FALLBACK_QUERY_LIMIT", 100),
			RerankCandidateLimit: getEnvAsInt("RERANK_CANDIDATE_LIMIT", 15),
			ResultLimit:          getEnvAsInt("RESULT_LIMIT", 8),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "techfinder"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
