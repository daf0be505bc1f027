package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/common/metrics"
	"marketplace-matching/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	needsKeyPrefix = "needs:"
	catalogKey     = "catalog:all"
)

func NeedsCacheKey(customerID string) string {
	return needsKeyPrefix + customerID
}

type needsBackend interface {
	GetNeeds(ctx context.Context, customerID string) (*models.NeedsRecord, error)
	UpsertNeeds(ctx context.Context, rec *models.NeedsRecord) error
}

// CachedNeeds is a read-through Redis cache in front of the needs table.
// Cache failures are logged and never surface to callers.
type CachedNeeds struct {
	backend needsBackend
	redis   *redis.Client
	ttl     time.Duration
	logger  logger.Logger
}

func NewCachedNeeds(backend needsBackend, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedNeeds {
	return &CachedNeeds{backend: backend, redis: rdb, ttl: ttl, logger: log}
}

func (c *CachedNeeds) GetNeeds(ctx context.Context, customerID string) (*models.NeedsRecord, error) {
	key := NeedsCacheKey(customerID)

	var cached models.NeedsRecord
	if hit := readJSON(ctx, c.redis, key, &cached, "needs", c.logger); hit {
		return &cached, nil
	}

	rec, err := c.backend.GetNeeds(ctx, customerID)
	if err != nil {
		return nil, err
	}
	writeJSON(ctx, c.redis, key, rec, c.ttl, c.logger)
	return rec, nil
}

// UpsertNeeds writes through to the database and drops the cached copy.
func (c *CachedNeeds) UpsertNeeds(ctx context.Context, rec *models.NeedsRecord) error {
	if err := c.backend.UpsertNeeds(ctx, rec); err != nil {
		return err
	}
	if err := c.redis.Del(ctx, NeedsCacheKey(rec.CustomerID)).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", map[string]interface{}{
			"error": apperrors.NewCacheFailureError("del", err),
			"key":   NeedsCacheKey(rec.CustomerID),
		})
	}
	return nil
}

type catalogBackend interface {
	ListBusinesses(ctx context.Context) ([]models.BusinessProfile, error)
}

// CachedCatalog caches the full catalog under a single key.
type CachedCatalog struct {
	backend catalogBackend
	redis   *redis.Client
	ttl     time.Duration
	logger  logger.Logger
}

func NewCachedCatalog(backend catalogBackend, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedCatalog {
	return &CachedCatalog{backend: backend, redis: rdb, ttl: ttl, logger: log}
}

func (c *CachedCatalog) ListBusinesses(ctx context.Context) ([]models.BusinessProfile, error) {
	var cached []models.BusinessProfile
	if hit := readJSON(ctx, c.redis, catalogKey, &cached, "catalog", c.logger); hit {
		return cached, nil
	}

	catalog, err := c.backend.ListBusinesses(ctx)
	if err != nil {
		return nil, err
	}
	writeJSON(ctx, c.redis, catalogKey, catalog, c.ttl, c.logger)
	return catalog, nil
}

func readJSON(ctx context.Context, rdb *redis.Client, key string, dst interface{}, cache string, log logger.Logger) bool {
	val, err := rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.CacheLookups.WithLabelValues(cache, "miss").Inc()
		return false
	case err != nil:
		metrics.CacheLookups.WithLabelValues(cache, "error").Inc()
		log.Warn("cache read failed", map[string]interface{}{
			"error": apperrors.NewCacheFailureError("get", err),
			"key":   key,
		})
		return false
	}

	if err := json.Unmarshal(val, dst); err != nil {
		metrics.CacheLookups.WithLabelValues(cache, "error").Inc()
		log.Warn("cached value is corrupt", map[string]interface{}{"error": err, "key": key})
		return false
	}
	metrics.CacheLookups.WithLabelValues(cache, "hit").Inc()
	return true
}

func writeJSON(ctx context.Context, rdb *redis.Client, key string, v interface{}, ttl time.Duration, log logger.Logger) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn("cache encode failed", map[string]interface{}{"error": err, "key": key})
		return
	}
	if err := rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Warn("cache write failed", map[string]interface{}{
			"error": apperrors.NewCacheFailureError("set", err),
			"key":   key,
		})
	}
}
