package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prelovedtoys/marketplace-api/internal/auth"
	"github.com/prelovedtoys/marketplace-api/internal/metrics"
	"github.com/prelovedtoys/marketplace-api/internal/models"
	"github.com/prelovedtoys/marketplace-api/internal/store"
)

type apiServer struct {
	db       *sql.DB
	signer   *auth.Signer
	metrics  *metrics.ServerMetrics
	checkout store.CheckoutOptions
}

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyIdentity
)

func requestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

func identityFromContext(ctx context.Context) auth.Identity {
	v, _ := ctx.Value(ctxKeyIdentity).(auth.Identity)
	return v
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, reqID)))
	})
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		log.Printf("%s %s -> %d (%s) request_id=%s",
			r.Method, r.URL.Path, sr.status, time.Since(start), requestIDFromContext(r.Context()))
	})
}

func (s *apiServer) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)

		handler := r.Method + " " + r.URL.Path
		s.metrics.Requests.WithLabelValues(handler, strconv.Itoa(sr.status)).Inc()
		s.metrics.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	})
}

// requireAuth verifies the x-access-token header and puts the identity into
// the request context.
func (s *apiServer) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("x-access-token")
		if token == "" {
			respondError(w, http.StatusForbidden, "No token provided! Add 'x-access-token' to headers.")
			return
		}

		id, err := s.signer.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized! Invalid Token.")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyIdentity, id)))
	})
}

func (s *apiServer) requireAdmin(next http.HandlerFunc) http.Handler {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if identityFromContext(r.Context()).Role != models.RoleAdmin {
			respondError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r)
	})
}
