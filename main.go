package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"paper-atlas/api"
	"paper-atlas/config"
	"paper-atlas/providers/openai"
	"paper-atlas/providers/semanticscholar"
	"paper-atlas/services"
	"paper-atlas/storage"
)

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logging, err := newLogger(cfg.LogMode)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	if cfg.LogMode != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Storage
	var store storage.Store
	if cfg.DBDriver == "memory" {
		logging.Warn("Using in-memory store; data is lost on restart")
		store = storage.NewMemoryStore()
	} else {
		db, err := storage.Open(cfg, logging)
		if err != nil {
			logging.Fatal("Failed to connect to database", zap.Error(err))
		}
		store = storage.NewGormStore(db)
	}

	// Setup Providers
	s2 := semanticscholar.NewFetcher(cfg, logging)
	llm := openai.NewClient(cfg.LLMModel, cfg.LLMTemperature, cfg.LLMMaxTokens, logging)

	// Setup Services
	metrics := services.NewMetrics(prometheus.DefaultRegisterer)
	key, err := cfg.CredentialKeyBytes()
	if err != nil {
		logging.Fatal("Invalid credential key", zap.Error(err))
	}
	sealer, err := services.NewSealer(key)
	if err != nil {
		logging.Fatal("Sealer creation failed", zap.Error(err))
	}

	enrichLimit := cfg.EnrichAuthorLimit
	if !cfg.EnrichAuthors {
		enrichLimit = 0
	}
	authors := gocache.New(time.Hour, 10*time.Minute)

	resultCache := services.NewResultCache(store, cfg.CacheTTL, logging, metrics)
	papers := services.NewPaperService(store, s2, authors, enrichLimit, logging, metrics)
	search := services.NewSearchService(resultCache, papers, s2, store, &singleflight.Group{}, cfg.SearchFetchLimit, logging, metrics)
	graph := services.NewGraphService(store, cfg.GraphMaxDepth)
	auth := services.NewAuthService(store, sealer, cfg.JWTSecret, cfg.TokenTTL, logging)
	forwarder := services.NewForwarder(store, sealer, llm, cfg.LLMBaseURL, logging, metrics)
	chat := services.NewChatService(store, papers, forwarder, logging)

	var objects storage.ObjectStore
	bucket, err := storage.NewS3Bucket(context.Background(), cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}
	if bucket != nil {
		objects = bucket
		logging.Info("Collection export enabled", zap.String("bucket", bucket.Bucket()))
	}
	collections := services.NewCollectionService(store, papers, objects, logging)

	// Setup Router
	router := api.NewRouter(&api.Server{
		Search:      search,
		Papers:      papers,
		Graph:       graph,
		Cache:       resultCache,
		Chat:        chat,
		Auth:        auth,
		Collections: collections,
		Logger:      logging,
		CORSOrigins: cfg.CORSOrigins,
	})

	// Setup Cron
	cronScheduler := cron.New()
	_, err = cronScheduler.AddFunc(cfg.CacheSweepSchedule, func() {
		n, err := resultCache.Sweep(context.Background())
		if err != nil {
			logging.Error("Cache sweep failed", zap.Error(err))
			return
		}
		logging.Info("Cache sweep completed", zap.Int64("deleted", n))
	})
	if err != nil {
		logging.Fatal("Invalid cache sweep schedule", zap.String("schedule", cfg.CacheSweepSchedule), zap.Error(err))
	}
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// Chat-Antworten können dauern
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info("Shutting down")

	<-cronScheduler.Stop().Done()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Graceful shutdown failed", zap.Error(err))
	}
}
