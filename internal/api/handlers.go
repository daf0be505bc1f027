package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/common/metrics"
	"marketplace-matching/internal/common/validation"
	"marketplace-matching/internal/models"
	automatching "marketplace-matching/internal/workers/matching/auto-matching"
	usageanalysis "marketplace-matching/internal/workers/analytics/usage-analysis"
	servicerecommendation "marketplace-matching/internal/workers/recommendation/service-recommendation"
)

type matchRequest struct {
	CustomerID string `json:"customerId"`
}

type matchResponse struct {
	Matches  []models.RankedMatch `json:"matches"`
	Degraded bool                 `json:"degraded"`
	Error    string               `json:"error,omitempty"`
}

type recommendRequest struct {
	UserID string `json:"userId"`
}

type usageResponse struct {
	Summary  models.UsageSummary `json:"summary"`
	ReportID string              `json:"reportId,omitempty"`
	Degraded bool                `json:"degraded"`
	Error    string              `json:"error,omitempty"`
}

type needsRequest struct {
	CustomerID        string        `json:"customerId"`
	Industry          string        `json:"industry" validate:"max=200"`
	Location          string        `json:"location" validate:"max=200"`
	Budget            models.Budget `json:"budget"`
	OtherRequirements string        `json:"otherRequirements" validate:"max=2000"`
}

type matchesResponse struct {
	CustomerID string             `json:"customerId"`
	Matches    []models.MatchView `json:"matches"`
}

// degradable reports whether a failure may be answered with sample data.
// Caller mistakes are always surfaced.
func (s *Server) degradable(err error) bool {
	return s.opts.DegradedMode && apperrors.HTTPStatus(apperrors.AsStandard(err).Code) >= http.StatusInternalServerError
}

func (s *Server) match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	customerID, err := subject(r, strings.TrimSpace(req.CustomerID), "customerId")
	if err != nil {
		writeError(w, err)
		return
	}

	out, err := s.deps.Matcher.Execute(r.Context(), &automatching.Input{CustomerID: customerID})
	if err != nil {
		s.logFailure(r.Context(), "match", err)
		if s.degradable(err) {
			metrics.DegradedResponses.WithLabelValues("match").Inc()
			writeJSON(w, http.StatusInternalServerError, matchResponse{
				Matches:  automatching.Fallback(),
				Degraded: true,
				Error:    apperrors.AsStandard(err).Message,
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, matchResponse{Matches: out.Matches, Degraded: out.Degraded})
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	userID, err := subject(r, strings.TrimSpace(req.UserID), "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	out, err := s.deps.Recommender.Execute(r.Context(), &servicerecommendation.Input{UserID: userID})
	if err != nil {
		s.logFailure(r.Context(), "recommend", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) usageAnalysis(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Analyzer.Execute(r.Context())
	if err != nil {
		s.logFailure(r.Context(), "usage-analysis", err)
		if s.degradable(err) {
			metrics.DegradedResponses.WithLabelValues("usage-analysis").Inc()
			summary := usageanalysis.Fallback()
			summary.GeneratedAt = time.Now().UTC()
			writeJSON(w, http.StatusInternalServerError, usageResponse{
				Summary:  summary,
				Degraded: true,
				Error:    apperrors.AsStandard(err).Message,
			})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usageResponse{Summary: out.Summary, ReportID: out.ReportID, Degraded: out.Degraded})
}

func (s *Server) putNeeds(w http.ResponseWriter, r *http.Request) {
	var req needsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(w, apperrors.NewValidationError(err.Error()))
		return
	}
	customerID, err := subject(r, strings.TrimSpace(req.CustomerID), "customerId")
	if err != nil {
		writeError(w, err)
		return
	}

	rec := &models.NeedsRecord{
		CustomerID:        customerID,
		Industry:          strings.TrimSpace(req.Industry),
		Location:          strings.TrimSpace(req.Location),
		Budget:            req.Budget,
		OtherRequirements: strings.TrimSpace(req.OtherRequirements),
		UpdatedAt:         time.Now().UTC(),
	}
	if err := s.deps.Needs.UpsertNeeds(r.Context(), rec); err != nil {
		s.logFailure(r.Context(), "put-needs", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	customerID, err := subject(r, strings.TrimSpace(r.URL.Query().Get("customerId")), "customerId")
	if err != nil {
		writeError(w, err)
		return
	}

	views, err := s.deps.Matches.ListPendingViews(r.Context(), customerID)
	if err != nil {
		s.logFailure(r.Context(), "list-matches", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matchesResponse{CustomerID: customerID, Matches: views})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.deps.Checks))
	for name, p := range s.deps.Checks {
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "checks": checks})
}

func (s *Server) logFailure(ctx context.Context, operation string, err error) {
	stdErr := apperrors.AsStandard(err)
	fields := map[string]interface{}{
		"operation": operation,
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
	}
	log := logger.FromContext(ctx, s.logger)
	if apperrors.HTTPStatus(stdErr.Code) >= http.StatusInternalServerError {
		log.Error("request failed", fields)
		return
	}
	log.Warn("request rejected", fields)
}
