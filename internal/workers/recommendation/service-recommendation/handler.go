// internal/workers/recommendation/service-recommendation/handler.go
package servicerecommendation

import (
	"context"
	"encoding/json"
	"fmt"

	"marketplace-matching/internal/common/camunda"
	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/common/observability"
	"marketplace-matching/internal/common/validation"
	"marketplace-matching/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const TaskType = "service-recommendation"

type HistoryLoader interface {
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]models.MatchRecord, error)
}

type NeedsLoader interface {
	GetNeeds(ctx context.Context, customerID string) (*models.NeedsRecord, error)
}

type CatalogLoader interface {
	ListBusinesses(ctx context.Context) ([]models.BusinessProfile, error)
}

type RecommendationStore interface {
	Save(ctx context.Context, id string, set models.RecommendationSet) error
}

type Dependencies struct {
	History HistoryLoader
	Needs   NeedsLoader
	Catalog CatalogLoader
	Store   RecommendationStore
	Oracle  Oracle
}

type Handler struct {
	config       *Config
	deps         Dependencies
	recommender  *Recommender
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(cfg *Config, deps Dependencies, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		deps:         deps,
		recommender:  NewRecommender(cfg, deps.Oracle, log),
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
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}
	camunda.CompleteJob(ctx, client, job, output, h.logger)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (out *Output, err error) {
	ctx, span := observability.StartSpan(ctx, "recommendation.recommend",
		attribute.String("user.id", input.UserID))
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.Struct(input); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	history, err := h.deps.History.ListByCustomer(ctx, input.UserID, h.config.HistoryLimit)
	if err != nil {
		return nil, err
	}

	prefs := models.NeedsRecord{CustomerID: input.UserID}
	needs, err := h.deps.Needs.GetNeeds(ctx, input.UserID)
	switch {
	case err == nil:
		prefs = *needs
	case apperrors.HasCode(err, apperrors.ErrCodeNeedsNotFound):
		h.logger.Debug("no needs on file, recommending without preferences", map[string]interface{}{"userId": input.UserID})
	default:
		return nil, err
	}

	catalog, err := h.deps.Catalog.ListBusinesses(ctx)
	if err != nil {
		return nil, err
	}

	set, err := h.recommender.Recommend(ctx, input.UserID, history, prefs, catalog)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("degraded", set.Degraded), attribute.Int("items", len(set.Items)))

	if err := h.deps.Store.Save(ctx, uuid.New().String(), set); err != nil {
		return nil, err
	}

	h.logger.Info("recommendations generated", map[string]interface{}{
		"userId":   input.UserID,
		"history":  len(history),
		"items":    len(set.Items),
		"degraded": set.Degraded,
	})

	return &Output{
		UserID:              set.UserID,
		RecommendedServices: set.Items,
		Degraded:            set.Degraded,
		GeneratedAt:         set.GeneratedAt,
	}, nil
}
