package calculatematchscore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace-matching/internal/common/camunda"
	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "calculate-match-score"

var ErrInvalidInput = errors.New("INVALID_INPUT")

// NeedsLoader resolves a customer's needs when the job does not carry them.
type NeedsLoader interface {
	GetNeeds(ctx context.Context, customerID string) (*models.NeedsRecord, error)
}

type Handler struct {
	config       *Config
	scorer       *Scorer
	needs        NeedsLoader
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(cfg *Config, needs NeedsLoader, log logger.Logger) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		scorer:       NewScorer(cfg.Weights),
		needs:        needs,
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

// Execute scores one business. Needs come from the input or, failing that,
// from the needs store.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Business.ID == "" {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%v: business.id is required", ErrInvalidInput))
	}

	needs := input.Needs
	if needs == nil {
		if input.CustomerID == "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("%v: needs or customerId is required", ErrInvalidInput))
		}
		loaded, err := h.needs.GetNeeds(ctx, input.CustomerID)
		if err != nil {
			return nil, err
		}
		needs = loaded
	}

	score, factors := h.scorer.Explain(*needs, input.Business)

	h.logger.Debug("match score calculated", map[string]interface{}{
		"customerId": needs.CustomerID,
		"businessId": input.Business.ID,
		"score":      score,
		"factors":    factors,
	})

	return &Output{MatchScore: score, MatchFactors: factors}, nil
}
