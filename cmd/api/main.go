// cmd/api/main.go
// Main entry point for the decision-engine service
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sparka-app/sparka-backend/internal/common/database"
	"github.com/sparka-app/sparka-backend/internal/common/utils"
	"github.com/sparka-app/sparka-backend/internal/config"
	"github.com/sparka-app/sparka-backend/internal/matching"
	"github.com/sparka-app/sparka-backend/internal/relationship"
	"github.com/sparka-app/sparka-backend/internal/snapshot"
	"github.com/sparka-app/sparka-backend/internal/visibility"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("========================================")
	log.Println("🚀 Starting Sparka Decision Engine API")
	log.Println("========================================")

	// 1. Load environment variables
	log.Println("📁 Step 1: Loading .env file...")
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 2. Load and validate configuration
	log.Println("📋 Step 2: Loading configuration...")
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Configuration validation failed:", err)
	}
	log.Println("✅ Configuration is valid")

	// 3. Connect to PostgreSQL
	log.Println("🗄️  Step 3: Connecting to PostgreSQL...")
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("❌ Failed to connect to PostgreSQL:", err)
	}
	defer db.Close()
	log.Println("✅ Connected to PostgreSQL successfully")

	// 4. Connect to Redis (optional)
	log.Println("📮 Step 4: Connecting to Redis...")
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable (%v), continuing without caching", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("✅ Connected to Redis successfully")
		}
	} else {
		log.Println("⚠️  Redis URL not configured, skipping Redis connection")
	}

	// 5. Wire the profile snapshot provider
	log.Println("🧩 Step 5: Initializing snapshot provider...")
	var provider snapshot.Provider = snapshot.NewPostgresProvider(db)
	if redisClient != nil {
		provider = snapshot.NewCachedProvider(provider, redisClient, cfg.ProfileCacheTTL)
	}
	rel := relationship.NewResolver(provider)
	log.Println("✅ Snapshot provider ready")

	// 6. Initialize the visibility engine
	log.Println("👁️  Step 6: Initializing visibility engine...")
	var audienceCache *visibility.AudienceCache
	if redisClient != nil {
		audienceCache = visibility.NewAudienceCache(redisClient, cfg.AudienceCacheTTL)
	}
	visibilityRepo := visibility.NewPostgresRepository(db)
	visibilityService := visibility.NewService(visibilityRepo, provider, rel, audienceCache, cfg.AudienceSampleSize)
	log.Println("✅ Visibility engine ready")

	// 7. Initialize the matching engine
	log.Println("💘 Step 7: Initializing matching engine...")
	scorer, err := matching.NewScorer(matching.ScorerConfig{
		Weights: matching.Weights{
			Compatibility: cfg.MatchWeightCompatibility,
			Interests:     cfg.MatchWeightInterests,
			Activity:      cfg.MatchWeightActivity,
			Location:      cfg.MatchWeightLocation,
		},
		Categories: matching.DefaultCategories(),
	})
	if err != nil {
		log.Fatal("❌ Failed to build scorer:", err)
	}
	ranker := matching.NewRanker(scorer, cfg.RankerScoreThreshold, cfg.RankerMinResults)
	matchingRepo := matching.NewPostgresRepository(db)
	matchingService := matching.NewService(matchingRepo, provider, scorer, ranker, cfg.CandidatePoolLimit, cfg.MinAge, cfg.MaxAge)
	log.Println("✅ Matching engine ready")

	// 8. Set up routes
	log.Println("🌐 Step 8: Setting up routes...")
	router := mux.NewRouter()
	visibility.RegisterRoutes(router, visibility.NewHandler(visibilityService))
	matching.RegisterRoutes(router, matching.NewHandler(matchingService))
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithMessage(w, http.StatusOK, "ok")
	}).Methods("GET")
	log.Println("✅ Routes registered")

	// 9. Start the server with graceful shutdown
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Server failed:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server forced to shutdown:", err)
	}

	log.Println("✅ Server exited cleanly")
}
