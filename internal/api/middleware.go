package api

import (
	"net/http"
	"strconv"
	"time"

	"marketplace-matching/internal/common/auth"
	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/common/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger logs one line per request and records its latency under the
// matched route pattern.
func requestLogger(log logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())
			reqLog := log.WithFields(map[string]interface{}{"requestID": reqID})

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logger.IntoContext(r.Context(), reqLog)))

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(duration.Seconds())

			reqLog.Info("http request", map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     status,
				"bytes":      ww.BytesWritten(),
				"durationMs": duration.Milliseconds(),
				"remoteAddr": r.RemoteAddr,
			})
		})
	}
}

// authenticate validates the bearer token and stores the caller in the
// request context. A nil validator means authentication is disabled.
func authenticate(validator *auth.Validator, adminRole string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := validator.Validate(r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, apperrors.NewUnauthorizedError(err.Error()))
				return
			}

			caller := auth.Caller{ID: claims.UserID, Admin: claims.HasRole(adminRole)}
			next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), caller)))
		})
	}
}

// requireAdmin rejects non-admin callers. Without authentication every
// request passes.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if caller, ok := auth.CallerFromContext(r.Context()); ok && !caller.Admin {
			writeError(w, apperrors.NewForbiddenError("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// subject resolves whose data a request touches. Authenticated callers
// default to themselves and need the admin role to name anyone else; without
// authentication the id must be given explicitly.
func subject(r *http.Request, requested, field string) (string, error) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		if requested == "" {
			return "", apperrors.NewValidationError(field + " is required")
		}
		return requested, nil
	}

	if requested == "" {
		return caller.ID, nil
	}
	if !caller.CanActFor(requested) {
		return "", apperrors.NewForbiddenError("cannot act on behalf of " + requested)
	}
	return requested, nil
}
