// cmd/matching-service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"marketplace-matching/internal/api"
	"marketplace-matching/internal/common/aws"
	"marketplace-matching/internal/common/camunda"
	"marketplace-matching/internal/common/config"
	"marketplace-matching/internal/common/database"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/common/observability"
	"marketplace-matching/internal/store"

	ua "marketplace-matching/internal/workers/analytics/usage-analysis"
	amr "marketplace-matching/internal/workers/matching/apply-match-ranking"
	am "marketplace-matching/internal/workers/matching/auto-matching"
	cms "marketplace-matching/internal/workers/matching/calculate-match-score"
	pm "marketplace-matching/internal/workers/matching/persist-matches"
	sr "marketplace-matching/internal/workers/recommendation/service-recommendation"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = zapLog.Sync() }()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting matching service",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("catalogSource", cfg.Matching.CatalogSource),
	)

	ctx := context.Background()

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	shutdownTracing, err := observability.InitTracing(cfg.App.Name, cfg.Observability.JaegerEndpoint, cfg.Observability.SampleRatio)
	if err != nil {
		zapLog.Fatal("tracing init failed", zap.Error(err))
	}

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	redis := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	checks := map[string]api.Pinger{"postgres": pg, "redis": redis}

	// --- Catalog source ---
	var catalogBackend am.CatalogLoader = store.NewCatalogRepository(pg.DB)

	if cfg.Matching.CatalogSource == config.CatalogSourceElasticsearch {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")

		es := cfg.Database.Elasticsearch
		catalogBackend = store.NewESCatalog(esClient.Client, es.CatalogIndex, es.CatalogSize)
		checks["elasticsearch"] = esClient
	}

	// --- Stores ---
	needs := store.NewCachedNeeds(store.NewNeedsRepository(pg.DB), redis.Client,
		config.GetDuration(cfg.Matching.NeedsCacheTTL), log)
	catalog := store.NewCachedCatalog(catalogBackend, redis.Client,
		config.GetDuration(cfg.Matching.CatalogCacheTTL), log)
	matches := store.NewMatchRepository(pg.DB)

	// --- Optional integrations ---
	var publisher am.EventPublisher
	if cfg.Notifications.SNS.Enabled {
		p, err := aws.NewPublisher(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.SNS.TopicARN)
		if err != nil {
			zapLog.Fatal("sns publisher init failed", zap.Error(err))
		}
		publisher = p
		zapLog.Info("SNS publisher configured", zap.String("topic", cfg.Notifications.SNS.TopicARN))
	}

	var oracle sr.Oracle
	if cfg.Recommendation.Oracle.BaseURL != "" {
		oracle = sr.NewHTTPOracle(cfg.Recommendation.Oracle, cfg.Recommendation.Breaker, log)
		zapLog.Info("recommendation oracle configured", zap.String("baseURL", cfg.Recommendation.Oracle.BaseURL))
	}

	// --- Handlers ---
	workerTimeout := func(name string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(cfg, name).Timeout)
	}

	scorer := cms.NewScorer(cfg.Matching.Weights)
	ranker := amr.NewRanker(scorer, cfg.Matching.TopN)
	persister := pm.NewPersister(pg.DB)

	autoMatching := am.NewHandler(&am.Config{
		TopN:    cfg.Matching.TopN,
		Timeout: workerTimeout(am.TaskType),
	}, am.Dependencies{
		Needs:     needs,
		Catalog:   catalog,
		Ranker:    ranker,
		Persister: persister,
		Publisher: publisher,
		Obs:       obs,
	}, log)

	recCfg := sr.FromAppConfig(cfg)
	recCfg.Timeout = workerTimeout(sr.TaskType)
	recommendation := sr.NewHandler(recCfg, sr.Dependencies{
		History: matches,
		Needs:   needs,
		Catalog: catalog,
		Store:   store.NewRecommendationRepository(pg.DB),
		Oracle:  oracle,
	}, log)

	usage := ua.NewHandler(&ua.Config{
		HistoryLimit:  cfg.Analytics.HistoryLimit,
		TopCategories: cfg.Analytics.TopCategories,
		TopK:          cfg.Analytics.TopK,
		Advice:        cfg.Analytics.Advice,
		Timeout:       workerTimeout(ua.TaskType),
	}, ua.Dependencies{
		Matches:      matches,
		Transactions: store.NewTransactionRepository(pg.DB),
		Reports:      store.NewReportRepository(pg.DB),
	}, log)

	// --- Zeebe workers ---
	var pool *camunda.Pool
	if cfg.Camunda.BrokerAddress != "" {
		var zeebeClient zbc.Client
		err = retryWithBackoff(func() error {
			var err error
			zeebeClient, err = camunda.Connect(ctx, cfg.Camunda.BrokerAddress, config.GetDuration(cfg.Camunda.RequestTimeout))
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebeClient.Close()
		zapLog.Info("Zeebe client connected successfully")

		pool = camunda.NewPool(zeebeClient, log)
		pool.Start(am.TaskType, config.GetWorkerConfig(cfg, am.TaskType), autoMatching.Handle)
		pool.Start(cms.TaskType, config.GetWorkerConfig(cfg, cms.TaskType), cms.NewHandler(&cms.Config{
			Weights: cfg.Matching.Weights,
			Timeout: workerTimeout(cms.TaskType),
		}, needs, log).Handle)
		pool.Start(amr.TaskType, config.GetWorkerConfig(cfg, amr.TaskType), amr.NewHandler(&amr.Config{
			TopN:    cfg.Matching.TopN,
			Weights: cfg.Matching.Weights,
			Timeout: workerTimeout(amr.TaskType),
		}, log).Handle)
		pool.Start(pm.TaskType, config.GetWorkerConfig(cfg, pm.TaskType), pm.NewHandler(&pm.Config{
			Timeout: workerTimeout(pm.TaskType),
		}, persister, log).Handle)
		pool.Start(sr.TaskType, config.GetWorkerConfig(cfg, sr.TaskType), recommendation.Handle)
		pool.Start(ua.TaskType, config.GetWorkerConfig(cfg, ua.TaskType), usage.Handle)
	} else {
		zapLog.Info("camunda.broker_address not set, job workers disabled")
	}

	// --- HTTP ---
	server, err := api.NewServer(api.Options{
		Auth:           cfg.Auth,
		DegradedMode:   cfg.DegradedMode.Enabled,
		RequestTimeout: config.GetDuration(cfg.Server.RequestTimeout),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, api.Dependencies{
		Matcher:     autoMatching,
		Recommender: recommendation,
		Analyzer:    usage,
		Needs:       needs,
		Matches:     matches,
		Checks:      checks,
	}, log)
	if err != nil {
		zapLog.Fatal("http server init failed", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if pool != nil {
		pool.Close()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zapLog.Error("tracer shutdown failed", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("meter shutdown failed", zap.Error(err))
	}

	zapLog.Info("matching service stopped")
}
