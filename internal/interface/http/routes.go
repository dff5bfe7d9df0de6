package http

import (
	"context"
	"net"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lhtc/classpoint/internal/interface/http/handlers"
	"github.com/lhtc/classpoint/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROUTES
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /live", s.handleLive)
	if s.deps.Metrics != nil {
		s.mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}

	// classes
	s.api("GET /api/v1/classes", s.handleListClasses)
	s.api("POST /api/v1/classes", s.handleCreateClass)
	s.api("PUT /api/v1/classes/{id}", s.handleRenameClass)
	s.api("DELETE /api/v1/classes/{id}", s.handleDeleteClass)
	s.api("POST /api/v1/classes/{id}/select", s.handleSelectClass)
	s.api("POST /api/v1/classes/{id}/clear", s.handleClearClass)

	// students
	s.api("GET /api/v1/students", s.handleListStudents)
	s.api("POST /api/v1/students", s.handleAddStudent)
	s.api("GET /api/v1/students/{id}", s.handleGetStudent)
	s.api("PATCH /api/v1/students/{id}", s.handleUpdateStudent)
	s.api("DELETE /api/v1/students/{id}", s.handleDeleteStudent)
	s.api("POST /api/v1/students/{id}/points", s.handleAdjustPoints)
	s.api("POST /api/v1/students/{id}/redemptions", s.handleRedeem)
	s.api("POST /api/v1/import", s.handleImport)

	// rewards
	s.api("GET /api/v1/rewards", s.handleListRewards)
	s.api("POST /api/v1/rewards", s.handleAddReward)
	s.api("PUT /api/v1/rewards/{id}", s.handleUpdateReward)
	s.api("DELETE /api/v1/rewards/{id}", s.handleDeleteReward)
	s.api("POST /api/v1/rewards/reset", s.handleResetRewards)

	// reports
	s.api("GET /api/v1/leaderboard", s.handleLeaderboard)
	s.api("GET /api/v1/statistics", s.handleStatistics)
	s.api("GET /api/v1/export/roster", s.handleExportRoster)
	s.api("GET /api/v1/export/leaderboard", s.handleExportLeaderboard)

	// storage
	if s.deps.Recovery != nil {
		s.api("POST /api/v1/snapshot/recover", s.handleRecoverSnapshot)
	}
}

// api registers a route behind Basic auth. Health and metrics stay open.
func (s *Server) api(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.auth.Middleware(h))
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// middleware wraps h; the first entry runs first.
func (s *Server) middleware(h http.Handler) http.Handler {
	chain := []handlers.MiddlewareFunc{s.recoverPanics, s.tagRequest}
	if s.config.LogRequests {
		chain = append(chain, s.logRequests)
	}
	if len(s.config.AllowedOrigins) > 0 {
		chain = append(chain, s.cors)
	}
	chain = append(chain, handlers.SecurityHeadersMiddleware, handlers.NoCacheMiddleware)
	if s.config.RequestTimeout > 0 {
		chain = append(chain, handlers.TimeoutMiddleware(s.config.RequestTimeout))
	}
	return handlers.ChainHandler(h, chain...)
}

type requestIDKey struct{}

// tagRequest keeps a caller-supplied X-Request-ID or makes one up.
func (s *Server) tagRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func getRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		s.logger.Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", sw.status),
			logger.Latency(time.Since(start)),
			logger.String("ip", clientIP(r)),
			logger.String("request_id", getRequestID(r.Context())),
		)
	})
}

// measure wraps the mux directly; r.Pattern is only set once the mux has
// matched the request.
func (s *Server) measure(next http.Handler) http.Handler {
	if s.deps.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.deps.Metrics.ObserveHTTP(r.Method, route, sw.status, time.Since(start))
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.logger.Error("panic recovered",
					logger.Any("error", v),
					logger.String("path", r.URL.Path),
					logger.String("stack", string(debug.Stack())),
				)
				writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "An unexpected error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	anyOrigin := slices.Contains(s.config.AllowedOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (anyOrigin || slices.Contains(s.config.AllowedOrigins, origin)) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
