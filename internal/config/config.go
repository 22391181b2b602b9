// internal/config/config.go
// Centralized configuration management
// Loads from environment variables with sensible defaults

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string
	RedisURL    string

	// Caching
	ProfileCacheTTL  time.Duration
	AudienceCacheTTL time.Duration

	// Audience builder
	AudienceSampleSize int // ids kept in the persisted audience snapshot

	// Match scoring weights (must sum to 1.0)
	MatchWeightCompatibility float64
	MatchWeightInterests     float64
	MatchWeightActivity      float64
	MatchWeightLocation      float64

	// Candidate ranking
	RankerScoreThreshold float64 // adjusted score needed past the floor
	RankerMinResults     int     // floor guarantee against empty pages
	CandidatePoolLimit   int

	// Profile constraints
	MinAge int
	MaxAge int
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/sparka?sslmode=disable"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Caching
		ProfileCacheTTL:  getEnvDuration("PROFILE_CACHE_TTL", "5m"),
		AudienceCacheTTL: getEnvDuration("AUDIENCE_CACHE_TTL", "10m"),

		// Audience builder
		AudienceSampleSize: getEnvInt("AUDIENCE_SAMPLE_SIZE", 100),

		// Match scoring weights
		MatchWeightCompatibility: getEnvFloat("MATCH_WEIGHT_COMPATIBILITY", 0.35),
		MatchWeightInterests:     getEnvFloat("MATCH_WEIGHT_INTERESTS", 0.25),
		MatchWeightActivity:      getEnvFloat("MATCH_WEIGHT_ACTIVITY", 0.20),
		MatchWeightLocation:      getEnvFloat("MATCH_WEIGHT_LOCATION", 0.20),

		// Candidate ranking
		RankerScoreThreshold: getEnvFloat("RANKER_SCORE_THRESHOLD", 0.30),
		RankerMinResults:     getEnvInt("RANKER_MIN_RESULTS", 5),
		CandidatePoolLimit:   getEnvInt("CANDIDATE_POOL_LIMIT", 100),

		// Profile constraints
		MinAge: getEnvInt("MIN_AGE", 18),
		MaxAge: getEnvInt("MAX_AGE", 100),
	}

	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required")
	}

	// The four scoring weights must sum to exactly 1.0, otherwise
	// overall scores drift out of the [0,1] range
	weightSum := c.MatchWeightCompatibility + c.MatchWeightInterests +
		c.MatchWeightActivity + c.MatchWeightLocation
	if weightSum != 1.0 {
		return fmt.Errorf("match weights must sum to 1.0, got %v", weightSum)
	}

	if c.RankerScoreThreshold < 0 || c.RankerScoreThreshold > 1 {
		return fmt.Errorf("ranker score threshold must be within [0,1]")
	}

	if c.RankerMinResults < 0 {
		return fmt.Errorf("ranker min results must not be negative")
	}

	if c.AudienceSampleSize < 1 {
		return fmt.Errorf("audience sample size must be positive")
	}

	if c.MinAge < 13 || c.MinAge > c.MaxAge {
		return fmt.Errorf("invalid age range configuration")
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Helper functions

// getEnv gets a string value from environment with a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment with a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment with a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration value from environment with a default
func getEnvDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		// If parsing fails, try to parse the default
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
