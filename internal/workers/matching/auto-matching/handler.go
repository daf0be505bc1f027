// internal/workers/matching/auto-matching/handler.go
package automatching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-matching/internal/common/camunda"
	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/common/metrics"
	"marketplace-matching/internal/common/observability"
	"marketplace-matching/internal/common/validation"
	"marketplace-matching/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const TaskType = "auto-matching"

type NeedsLoader interface {
	GetNeeds(ctx context.Context, customerID string) (*models.NeedsRecord, error)
}

type CatalogLoader interface {
	ListBusinesses(ctx context.Context) ([]models.BusinessProfile, error)
}

type Ranker interface {
	Rank(needs models.NeedsRecord, catalog []models.BusinessProfile, topN int) []models.RankedMatch
}

type MatchPersister interface {
	Persist(ctx context.Context, customerID string, ranked []models.RankedMatch) ([]models.MatchRecord, error)
}

// EventPublisher is optional; nil disables the matches.created event.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, event interface{}) (string, error)
}

type Dependencies struct {
	Needs     NeedsLoader
	Catalog   CatalogLoader
	Ranker    Ranker
	Persister MatchPersister
	Publisher EventPublisher
	Obs       *observability.Observability
}

type Handler struct {
	config       *Config
	deps         Dependencies
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(cfg *Config, deps Dependencies, log logger.Logger) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		deps:         deps,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.AsStandard(err).Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}
	camunda.CompleteJob(ctx, client, job, output, h.logger)
}

// Execute runs needs -> catalog -> rank -> persist for one customer and
// announces the new batch. Degraded fallbacks are the caller's decision.
func (h *Handler) Execute(ctx context.Context, input *Input) (out *Output, err error) {
	ctx, span := observability.StartSpan(ctx, "matching.auto_match",
		attribute.String("customer.id", input.CustomerID))
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = string(apperrors.AsStandard(err).Code)
		}
		metrics.MatchingRuns.WithLabelValues(outcome).Inc()
		h.deps.Obs.Record(ctx, TaskType, outcome, time.Since(start))
		observability.EndSpan(span, err)
	}()

	if err := validation.Struct(input); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	var (
		needs   *models.NeedsRecord
		catalog []models.BusinessProfile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		needs, err = h.deps.Needs.GetNeeds(gctx, input.CustomerID)
		return err
	})
	g.Go(func() error {
		var err error
		catalog, err = h.deps.Catalog.ListBusinesses(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranked := h.deps.Ranker.Rank(*needs, catalog, h.config.TopN)
	span.SetAttributes(
		attribute.Int("catalog.size", len(catalog)),
		attribute.Int("matches.count", len(ranked)),
	)

	records, err := h.deps.Persister.Persist(ctx, input.CustomerID, ranked)
	if err != nil {
		return nil, err
	}
	for _, m := range ranked {
		metrics.MatchScores.Observe(m.Score)
	}

	h.publish(ctx, input.CustomerID, ranked, records)

	h.logger.Info("auto-matching completed", map[string]interface{}{
		"customerId":  input.CustomerID,
		"catalogSize": len(catalog),
		"matchCount":  len(ranked),
		"durationMs":  time.Since(start).Milliseconds(),
	})

	return &Output{Matches: ranked, Degraded: false}, nil
}

func (h *Handler) publish(ctx context.Context, customerID string, ranked []models.RankedMatch, records []models.MatchRecord) {
	if h.deps.Publisher == nil || len(records) == 0 {
		return
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	msgID, err := h.deps.Publisher.Publish(ctx, EventMatchesCreated, MatchesCreatedEvent{
		CustomerID: customerID,
		MatchIDs:   ids,
		Matches:    ranked,
		CreatedAt:  records[0].CreatedAt,
	})
	if err != nil {
		h.logger.Warn("matches.created publish failed", map[string]interface{}{
			"customerId": customerID,
			"error":      err,
		})
		return
	}
	h.logger.Debug("matches.created published", map[string]interface{}{
		"customerId": customerID,
		"messageId":  msgID,
	})
}
