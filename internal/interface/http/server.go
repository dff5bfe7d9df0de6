// Package http implements the REST API of classpoint: classes, students,
// points, redemptions, the reward catalog, leaderboards, statistics, CSV
// export and roster import, plus health and metrics endpoints.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/lhtc/classpoint/internal/application/command"
	"github.com/lhtc/classpoint/internal/application/query"
	"github.com/lhtc/classpoint/internal/interface/http/handlers"
	"github.com/lhtc/classpoint/pkg/logger"
)

// Config holds listener limits and API behaviour.
type Config struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// RequestTimeout bounds the context of every API request.
	RequestTimeout time.Duration

	MaxHeaderBytes int
	MaxBodyBytes   int64 // JSON bodies
	MaxImportBytes int64 // roster uploads

	// AllowedOrigins enables CORS; empty disables it.
	AllowedOrigins []string

	Realm       string // Basic auth realm
	LogRequests bool
	Version     string // reported on /health
}

// DefaultConfig listens on :8080 with conservative limits.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    time.Minute,
		RequestTimeout: 10 * time.Second,
		MaxHeaderBytes: 1 << 20,
		MaxBodyBytes:   64 << 10,
		MaxImportBytes: 1 << 20,
		AllowedOrigins: []string{"*"},
		Realm:          "classpoint",
		LogRequests:    true,
	}
}

// Address is the listen address.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// FeatureChecker reports whether a named feature is on.
type FeatureChecker interface {
	IsEnabled(name string) bool
}

// MetricsRecorder records request metrics and serves the exposition.
type MetricsRecorder interface {
	ObserveHTTP(method, route string, code int, d time.Duration)
	Handler() http.Handler
}

// SnapshotRecoverer backs up and repairs a corrupt stored snapshot.
type SnapshotRecoverer interface {
	Recover(ctx context.Context) (*command.RecoverResult, error)
}

// Dependencies are the application handlers the API calls into.
type Dependencies struct {
	Students *command.StudentHandler
	Classes  *command.ClassHandler
	Points   *command.PointsHandler
	Rewards  *command.RewardHandler

	ListClasses   *query.ListClassesHandler
	ListStudents  *query.ListStudentsHandler
	StudentDetail *query.StudentDetailHandler
	ListRewards   *query.ListRewardsHandler
	Leaderboard   *query.LeaderboardHandler
	Statistics    *query.ClassStatisticsHandler

	// State feeds the CSV exports.
	State query.StateReader

	// Optional; nil values switch the matching behaviour off.
	Accounts      handlers.Authenticator
	Features      FeatureChecker
	Metrics       MetricsRecorder
	HealthChecker handlers.HealthChecker
	Recovery      SnapshotRecoverer
	Logger        *logger.Logger
}

// Server is the classpoint API.
type Server struct {
	config Config
	deps   Dependencies
	mux    *http.ServeMux
	logger *logger.Logger
	auth   *handlers.BasicAuthMiddleware

	httpServer *http.Server
	startedAt  atomic.Int64 // unix nanos, 0 while stopped
}

// NewServer registers every route. Nothing listens until Run.
func NewServer(config Config, deps Dependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		config: config,
		deps:   deps,
		mux:    http.NewServeMux(),
		logger: log.With(logger.Component("http")),
	}
	s.auth = handlers.BasicAuth(deps.Accounts, config.Realm, func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
	})
	s.routes()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.Handler(),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}
	return s
}

// Handler is the mux wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.middleware(s.measure(s.mux))
}

// Run listens until ctx ends or the listener fails, then drains open
// requests for at most grace.
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	listenErr := make(chan error, 1)
	go func() {
		s.startedAt.Store(time.Now().UnixNano())
		s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		listenErr <- err
	}()

	var err error
	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server", logger.Duration("grace", grace))
	case err = <-listenErr:
		if err != nil {
			s.logger.Error("http server failed", logger.Err(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	shutdownErr := s.httpServer.Shutdown(shutdownCtx)
	s.startedAt.Store(0)
	return errors.Join(err, shutdownErr)
}

// Uptime is zero unless Run is listening.
func (s *Server) Uptime() time.Duration {
	started := s.startedAt.Load()
	if started == 0 {
		return 0
	}
	return time.Since(time.Unix(0, started))
}
