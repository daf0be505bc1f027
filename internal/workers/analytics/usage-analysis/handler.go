// internal/workers/analytics/usage-analysis/handler.go
package usageanalysis

import (
	"context"
	"time"

	"marketplace-matching/internal/common/camunda"
	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/common/observability"
	"marketplace-matching/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "usage-analysis"

type MatchLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.MatchRecord, error)
}

type TransactionLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.TransactionRecord, error)
}

type ReportStore interface {
	Save(ctx context.Context, report models.AnalysisReport) error
}

type Dependencies struct {
	Matches      MatchLister
	Transactions TransactionLister
	Reports      ReportStore
}

type Handler struct {
	config       *Config
	deps         Dependencies
	aggregator   *Aggregator
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(cfg *Config, deps Dependencies, log logger.Logger) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 1000
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		deps:         deps,
		aggregator:   NewAggregator(cfg.TopCategories, cfg.TopK),
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

	output, err := h.Execute(ctx)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}
	camunda.CompleteJob(ctx, client, job, output, h.logger)
}

// Execute aggregates the most recent activity and appends a report snapshot.
func (h *Handler) Execute(ctx context.Context) (out *Output, err error) {
	ctx, span := observability.StartSpan(ctx, "analytics.usage_analysis")
	defer func() { observability.EndSpan(span, err) }()

	matches, err := h.deps.Matches.ListRecent(ctx, h.config.HistoryLimit)
	if err != nil {
		return nil, err
	}
	transactions, err := h.deps.Transactions.ListRecent(ctx, h.config.HistoryLimit)
	if err != nil {
		return nil, err
	}

	summary := h.aggregator.Aggregate(matches, transactions)
	advice := h.config.Advice
	if advice == nil {
		advice = []string{}
	}
	report := models.AnalysisReport{
		ID:              uuid.New().String(),
		Summary:         summary,
		Recommendations: advice,
		CreatedAt:       summary.GeneratedAt,
	}
	if err := h.deps.Reports.Save(ctx, report); err != nil {
		return nil, err
	}

	h.logger.Info("usage analysis completed", map[string]interface{}{
		"reportId":     report.ID,
		"totalMatches": summary.TotalMatches,
		"successRate":  summary.SuccessRate,
		"transactions": summary.TransactionCount,
	})
	return &Output{ReportID: report.ID, Summary: summary}, nil
}
