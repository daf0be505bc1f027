package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"marketplace-matching/internal/common/auth"
	"marketplace-matching/internal/common/config"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/models"
	automatching "marketplace-matching/internal/workers/matching/auto-matching"
	usageanalysis "marketplace-matching/internal/workers/analytics/usage-analysis"
	servicerecommendation "marketplace-matching/internal/workers/recommendation/service-recommendation"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Matcher interface {
	Execute(ctx context.Context, input *automatching.Input) (*automatching.Output, error)
}

type Recommender interface {
	Execute(ctx context.Context, input *servicerecommendation.Input) (*servicerecommendation.Output, error)
}

type Analyzer interface {
	Execute(ctx context.Context) (*usageanalysis.Output, error)
}

type NeedsWriter interface {
	UpsertNeeds(ctx context.Context, rec *models.NeedsRecord) error
}

type MatchViewer interface {
	ListPendingViews(ctx context.Context, customerID string) ([]models.MatchView, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Matcher     Matcher
	Recommender Recommender
	Analyzer    Analyzer
	Needs       NeedsWriter
	Matches     MatchViewer
	// Checks are pinged by /ready, keyed by dependency name.
	Checks map[string]Pinger
}

type Options struct {
	Auth           config.AuthConfig
	DegradedMode   bool
	RequestTimeout time.Duration
	AllowedOrigins []string
}

type Server struct {
	opts      Options
	deps      Dependencies
	validator *auth.Validator
	logger    logger.Logger
}

func NewServer(opts Options, deps Dependencies, log logger.Logger) (*Server, error) {
	s := &Server{opts: opts, deps: deps, logger: log.WithFields(map[string]interface{}{"component": "http"})}
	if opts.Auth.Enabled {
		v, err := auth.NewValidator(opts.Auth.JWTSecret, opts.Auth.Issuer, opts.Auth.Audience)
		if err != nil {
			return nil, fmt.Errorf("configure auth: %w", err)
		}
		s.validator = v
	} else {
		s.logger.Warn("authentication disabled, identities are taken from request bodies", nil)
	}
	if s.opts.RequestTimeout <= 0 {
		s.opts.RequestTimeout = 10 * time.Second
	}
	if len(s.opts.AllowedOrigins) == 0 {
		s.opts.AllowedOrigins = []string{"*"}
	}
	return s, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(s.opts.RequestTimeout))
		r.Use(authenticate(s.validator, s.opts.Auth.AdminRole))

		r.Post("/match", s.match)
		r.Post("/recommend", s.recommend)
		r.Put("/needs", s.putNeeds)
		r.Get("/matches", s.listMatches)
		r.With(requireAdmin).Get("/usage-analysis", s.usageAnalysis)
	})

	return r
}
