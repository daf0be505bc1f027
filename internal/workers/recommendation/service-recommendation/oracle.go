// internal/workers/recommendation/service-recommendation/oracle.go
package servicerecommendation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"marketplace-matching/internal/common/config"
	apperrors "marketplace-matching/internal/common/errors"
	apphttp "marketplace-matching/internal/common/http"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/common/metrics"
	"marketplace-matching/internal/common/validation"
	"marketplace-matching/internal/models"

	"github.com/sony/gobreaker"
)

const oracleService = "recommendation-oracle"

var responseSchema = validation.MustCompileSchema(`{
	"type": "object",
	"required": ["recommendations"],
	"properties": {
		"recommendations": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string"},
					"category": {"type": "string"},
					"rating": {"type": "number", "minimum": 0, "maximum": 5}
				}
			}
		}
	}
}`)

// Oracle ranks candidates remotely. Every failure it returns is an upstream error.
type Oracle interface {
	Recommend(ctx context.Context, req OracleRequest) ([]models.RecommendationItem, error)
}

// HTTPOracle calls <base_url>/recommend behind a circuit breaker.
type HTTPOracle struct {
	client  *apphttp.Client
	url     string
	apiKey  string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  logger.Logger
}

func NewHTTPOracle(oc config.OracleConfig, bc config.BreakerConfig, log logger.Logger) *HTTPOracle {
	timeout := config.GetDuration(oc.Timeout)
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	log = log.WithFields(map[string]interface{}{"component": oracleService})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        oracleService,
		MaxRequests: bc.MaxRequests,
		Interval:    config.GetDuration(bc.Interval),
		Timeout:     config.GetDuration(bc.OpenTimeout),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bc.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	return &HTTPOracle{
		client:  apphttp.NewClient(timeout),
		url:     strings.TrimRight(oc.BaseURL, "/") + "/recommend",
		apiKey:  oc.APIKey,
		timeout: timeout,
		breaker: breaker,
		logger:  log,
	}
}

func (o *HTTPOracle) Recommend(ctx context.Context, req OracleRequest) ([]models.RecommendationItem, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	headers := map[string]string{}
	if o.apiKey != "" {
		headers["Authorization"] = "Bearer " + o.apiKey
	}

	res, err := o.breaker.Execute(func() (interface{}, error) {
		body, err := o.client.PostJSON(ctx, o.url, headers, req)
		if err != nil {
			return nil, err
		}
		if err := responseSchema.ValidateBytes(body); err != nil {
			return nil, fmt.Errorf("invalid oracle payload: %w", err)
		}
		var parsed oracleResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decode oracle payload: %w", err)
		}
		return parsed.Recommendations, nil
	})
	if err != nil {
		return nil, o.classify(err)
	}

	metrics.OracleRequests.WithLabelValues("success").Inc()
	return res.([]models.RecommendationItem), nil
}

func (o *HTTPOracle) classify(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.OracleRequests.WithLabelValues("rejected").Inc()
		return apperrors.NewUpstreamUnavailableError(oracleService, err)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		metrics.OracleRequests.WithLabelValues("timeout").Inc()
		return apperrors.NewUpstreamTimeoutError(oracleService, err)
	default:
		metrics.OracleRequests.WithLabelValues("error").Inc()
		return apperrors.NewUpstreamUnavailableError(oracleService, err)
	}
}
