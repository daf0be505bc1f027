package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketplace-matching/internal/common/auth"
	"marketplace-matching/internal/common/config"
	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/models"
	automatching "marketplace-matching/internal/workers/matching/auto-matching"
	usageanalysis "marketplace-matching/internal/workers/analytics/usage-analysis"
	servicerecommendation "marketplace-matching/internal/workers/recommendation/service-recommendation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type stubMatcher struct {
	out   *automatching.Output
	err   error
	input *automatching.Input
}

func (s *stubMatcher) Execute(_ context.Context, in *automatching.Input) (*automatching.Output, error) {
	s.input = in
	return s.out, s.err
}

type stubRecommender struct {
	out   *servicerecommendation.Output
	err   error
	input *servicerecommendation.Input
}

func (s *stubRecommender) Execute(_ context.Context, in *servicerecommendation.Input) (*servicerecommendation.Output, error) {
	s.input = in
	return s.out, s.err
}

type stubAnalyzer struct {
	out *usageanalysis.Output
	err error
}

func (s *stubAnalyzer) Execute(_ context.Context) (*usageanalysis.Output, error) {
	return s.out, s.err
}

type stubNeedsWriter struct {
	saved *models.NeedsRecord
	err   error
}

func (s *stubNeedsWriter) UpsertNeeds(_ context.Context, rec *models.NeedsRecord) error {
	s.saved = rec
	return s.err
}

type stubViewer struct {
	views      []models.MatchView
	customerID string
}

func (s *stubViewer) ListPendingViews(_ context.Context, customerID string) ([]models.MatchView, error) {
	s.customerID = customerID
	return s.views, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type harness struct {
	matcher     *stubMatcher
	recommender *stubRecommender
	analyzer    *stubAnalyzer
	needs       *stubNeedsWriter
	viewer      *stubViewer
	handler     http.Handler
}

func newHarness(t *testing.T, authEnabled, degraded bool) *harness {
	t.Helper()
	h := &harness{
		matcher:     &stubMatcher{},
		recommender: &stubRecommender{},
		analyzer:    &stubAnalyzer{},
		needs:       &stubNeedsWriter{},
		viewer:      &stubViewer{},
	}
	srv, err := NewServer(Options{
		Auth:         config.AuthConfig{Enabled: authEnabled, JWTSecret: testSecret, AdminRole: "admin"},
		DegradedMode: degraded,
	}, Dependencies{
		Matcher:     h.matcher,
		Recommender: h.recommender,
		Analyzer:    h.analyzer,
		Needs:       h.needs,
		Matches:     h.viewer,
		Checks: map[string]Pinger{
			"postgres": pingFunc(func(context.Context) error { return nil }),
		},
	}, logger.NewTestLogger(t))
	require.NoError(t, err)
	h.handler = srv.Router()
	return h
}

func token(t *testing.T, subject string, roles ...string) string {
	t.Helper()
	tok, err := auth.Sign(testSecret, "", subject, roles, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (h *harness) do(method, path, body, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestMatch_UsesTokenSubject(t *testing.T) {
	h := newHarness(t, true, true)
	h.matcher.out = &automatching.Output{Matches: []models.RankedMatch{{BusinessID: "b1", CompanyName: "快適ハウス", Score: 0.8}}}

	rec := h.do(http.MethodPost, "/match", `{}`, token(t, "c1"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c1", h.matcher.input.CustomerID)
	body := decode(t, rec)
	assert.Equal(t, false, body["degraded"])
	assert.Len(t, body["matches"], 1)
}

func TestMatch_Authorization(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		auth   string
		status int
	}{
		{name: "missing token", body: `{"customerId":"c1"}`, auth: "", status: http.StatusUnauthorized},
		{name: "garbage token", body: `{"customerId":"c1"}`, auth: "Bearer nope", status: http.StatusUnauthorized},
		{name: "other customer", body: `{"customerId":"c2"}`, auth: "c1", status: http.StatusForbidden},
		{name: "admin for other customer", body: `{"customerId":"c2"}`, auth: "admin", status: http.StatusOK},
		{name: "malformed body", body: `{"customerId":`, auth: "c1", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, true, true)
			h.matcher.out = &automatching.Output{Matches: []models.RankedMatch{}}

			header := tt.auth
			switch tt.auth {
			case "c1":
				header = token(t, "c1")
			case "admin":
				header = token(t, "ops", "admin")
			}

			rec := h.do(http.MethodPost, "/match", tt.body, header)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestMatch_DegradedFallback(t *testing.T) {
	h := newHarness(t, true, true)
	h.matcher.err = apperrors.NewDatabaseInsertFailedError(errors.New("rollback"))

	rec := h.do(http.MethodPost, "/match", `{}`, token(t, "c1"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["degraded"])
	assert.NotEmpty(t, body["error"])
	matches := body["matches"].([]interface{})
	require.Len(t, matches, 3)
	assert.Equal(t, "株式会社A", matches[0].(map[string]interface{})["companyName"])
}

func TestMatch_FailureWithoutDegradedMode(t *testing.T) {
	h := newHarness(t, true, false)
	h.matcher.err = apperrors.NewDatabaseInsertFailedError(errors.New("rollback"))

	rec := h.do(http.MethodPost, "/match", `{}`, token(t, "c1"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, string(apperrors.ErrCodeDatabaseInsertFailed), body["code"])
	assert.Nil(t, body["matches"])
}

func TestMatch_NeedsNotFoundIsNotMasked(t *testing.T) {
	h := newHarness(t, true, true)
	h.matcher.err = apperrors.NewNeedsNotFoundError("c1")

	rec := h.do(http.MethodPost, "/match", `{}`, token(t, "c1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecommend(t *testing.T) {
	t.Run("auth disabled requires userId", func(t *testing.T) {
		h := newHarness(t, false, true)
		rec := h.do(http.MethodPost, "/recommend", `{}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, h.recommender.input)
	})

	t.Run("auth disabled uses body id", func(t *testing.T) {
		h := newHarness(t, false, true)
		h.recommender.out = &servicerecommendation.Output{
			UserID:              "u7",
			RecommendedServices: servicerecommendation.Fallback(),
			Degraded:            true,
		}

		rec := h.do(http.MethodPost, "/recommend", `{"userId":"u7"}`, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u7", h.recommender.input.UserID)
		body := decode(t, rec)
		assert.Equal(t, true, body["degraded"])
		assert.Len(t, body["recommendedServices"], 5)
	})

	t.Run("oracle down without degraded mode", func(t *testing.T) {
		h := newHarness(t, true, false)
		h.recommender.err = apperrors.NewUpstreamUnavailableError("recommendation-oracle", errors.New("down"))

		rec := h.do(http.MethodPost, "/recommend", `{}`, token(t, "u1"))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestUsageAnalysis(t *testing.T) {
	t.Run("requires admin", func(t *testing.T) {
		h := newHarness(t, true, true)
		rec := h.do(http.MethodGet, "/usage-analysis", "", token(t, "c1"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin gets summary", func(t *testing.T) {
		h := newHarness(t, true, true)
		h.analyzer.out = &usageanalysis.Output{ReportID: "r1", Summary: models.UsageSummary{TotalMatches: 3, SuccessRate: 66.7}}

		rec := h.do(http.MethodGet, "/usage-analysis", "", token(t, "ops", "admin"))
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, 66.7, body["summary"].(map[string]interface{})["successRate"])
		assert.Equal(t, false, body["degraded"])
	})

	t.Run("failure serves fallback summary", func(t *testing.T) {
		h := newHarness(t, true, true)
		h.analyzer.err = apperrors.NewQueryExecutionFailedError("recent_matches", errors.New("x"))

		rec := h.do(http.MethodGet, "/usage-analysis", "", token(t, "ops", "admin"))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["degraded"])
		assert.Equal(t, 1500.0, body["summary"].(map[string]interface{})["totalMatches"])
	})
}

func TestPutNeeds(t *testing.T) {
	h := newHarness(t, true, true)

	rec := h.do(http.MethodPut, "/needs",
		`{"industry":" ハウスクリーニング ","location":"渋谷区","budget":"5000-10000","otherRequirements":"週末"}`,
		token(t, "c1"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, h.needs.saved)
	assert.Equal(t, "c1", h.needs.saved.CustomerID)
	assert.Equal(t, "ハウスクリーニング", h.needs.saved.Industry)
	assert.True(t, h.needs.saved.Budget.Known())
	assert.Equal(t, "5000-10000", decode(t, rec)["budget"])
}

func TestPutNeeds_NumericBudgetAndValidation(t *testing.T) {
	h := newHarness(t, false, true)

	rec := h.do(http.MethodPut, "/needs", `{"customerId":"c3","budget":8000}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 8000.0, h.needs.saved.Budget.Max)

	rec = h.do(http.MethodPut, "/needs", `{"customerId":"c3","industry":"`+strings.Repeat("a", 201)+`"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMatches(t *testing.T) {
	h := newHarness(t, true, true)
	h.viewer.views = []models.MatchView{{MatchRecord: models.MatchRecord{ID: "m1", BusinessID: "b1", Status: models.MatchStatusPending}}}

	rec := h.do(http.MethodGet, "/matches", "", token(t, "c1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c1", h.viewer.customerID)

	rec = h.do(http.MethodGet, "/matches?customerId=c9", "", token(t, "c1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthAndReady(t *testing.T) {
	h := newHarness(t, true, true)

	rec := h.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	srv, err := NewServer(Options{}, Dependencies{Checks: map[string]Pinger{
		"redis": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}}, logger.NewTestLogger(t))
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestNewServer_RequiresSecretWhenAuthEnabled(t *testing.T) {
	_, err := NewServer(Options{Auth: config.AuthConfig{Enabled: true}}, Dependencies{}, logger.NewTestLogger(t))
	assert.Error(t, err)
}
