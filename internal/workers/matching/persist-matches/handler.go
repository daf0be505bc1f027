// internal/workers/matching/persist-matches/handler.go
package persistmatches

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-matching/internal/common/camunda"
	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "persist-matches"

type Handler struct {
	config       *Config
	persister    *Persister
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(cfg *Config, persister *Persister, log logger.Logger) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		persister:    persister,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	records, err := h.persister.Persist(ctx, input.CustomerID, input.Matches)
	if err != nil {
		return nil, err
	}

	h.logger.Info("matches persisted", map[string]interface{}{
		"customerId": input.CustomerID,
		"count":      len(records),
	})
	return &Output{Matches: records, MatchCount: len(records)}, nil
}
