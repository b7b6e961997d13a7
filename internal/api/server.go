package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/roruizf/yahoo-finance-stock-db/internal/cache"
	"github.com/roruizf/yahoo-finance-stock-db/internal/database"
	"github.com/roruizf/yahoo-finance-stock-db/internal/services"
	"github.com/roruizf/yahoo-finance-stock-db/pkg/config"
)

// Server exposes the store and the sync engine over HTTP: series
// listings, stored bars, sync status, and a force-sync trigger.
type Server struct {
	cfg        *config.Config
	logger     *logrus.Logger
	router     *mux.Router
	httpServer *http.Server

	db      *database.SQLiteClient
	cache   *cache.RedisClient
	updater *services.Updater
}

// NewServer creates a new API server. The cache may be nil.
func NewServer(
	cfg *config.Config,
	logger *logrus.Logger,
	db *database.SQLiteClient,
	barCache *cache.RedisClient,
	updater *services.Updater,
) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		cache:   barCache,
		updater: updater,
	}

	s.setupRoutes()

	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	apiV1 := s.router.PathPrefix("/api/v1").Subrouter()

	apiV1.HandleFunc("/health", s.handleHealth).Methods("GET")
	apiV1.HandleFunc("/series", s.handleListSeries).Methods("GET")
	apiV1.HandleFunc("/series/{table}/bars", s.handleSeriesBars).Methods("GET")
	apiV1.HandleFunc("/series/{table}/latest", s.handleLatestBar).Methods("GET")
	apiV1.HandleFunc("/sync/status", s.handleSyncStatus).Methods("GET")
	apiV1.HandleFunc("/sync", s.handleForceSync).Methods("POST")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	var handler http.Handler = s.router

	if s.cfg.Security.CORSEnabled {
		handler = handlers.CORS(
			handlers.AllowedOrigins(s.cfg.Security.CORSOrigins),
			handlers.AllowedMethods(s.cfg.Security.CORSMethods),
			handlers.AllowedHeaders(s.cfg.Security.CORSHeaders),
		)(handler)
	}

	s.httpServer = &http.Server{
		Addr:         s.cfg.GetServerAddr(),
		Handler:      handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// loggingMiddleware logs every request
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.statusCode,
			"duration": time.Since(start).Milliseconds(),
		}).Debug("HTTP request")
	})
}

// recoveryMiddleware recovers from handler panics
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.WithField("panic", rec).Error("Handler panic recovered")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
