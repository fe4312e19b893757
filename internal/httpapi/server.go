package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"parasight/internal/domain"
	"parasight/internal/ingest"
	"parasight/internal/storage"
)

const DefaultShareNote = "Shared from iPhone"

// Ingester runs the ingestion pipeline.
type Ingester interface {
	ProcessOne(ctx context.Context, url, note string) ingest.Result
	ProcessBatch(ctx context.Context, urls []string, note string) []ingest.Result
}

// Grouper merges two stored links into one group.
type Grouper interface {
	Group(ctx context.Context, idA, idB string) (string, error)
}

// Store is the subset of the repository the maintenance routes need.
type Store interface {
	UpdateCategory(ctx context.Context, ids []string, update storage.CategoryUpdate) error
	RenameSubcategory(ctx context.Context, bucket domain.Bucket, from, to string) (int, error)
	Dedup(ctx context.Context) (storage.DedupReport, error)
}

type Config struct {
	Addr        string
	DefaultNote string
	// RateLimit is the sustained number of ingest requests per second.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Server is the share and maintenance HTTP API.
type Server struct {
	http     *http.Server
	cfg      Config
	ingester Ingester
	grouper  Grouper
	store    Store
	log      logrus.FieldLogger
}

func New(cfg Config, ingester Ingester, grouper Grouper, store Store, logger logrus.FieldLogger) *Server {
	if cfg.DefaultNote == "" {
		cfg.DefaultNote = DefaultShareNote
	}
	s := &Server{
		cfg:      cfg,
		ingester: ingester,
		grouper:  grouper,
		store:    store,
		log:      logger.WithField("component", "httpapi"),
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Tweet expansion chains several fetches per request.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(s.log))

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/share", s.handleShareInfo)

		r.Group(func(r chi.Router) {
			r.Use(rateLimit(newLimiter(s.cfg.RateLimit, s.cfg.RateBurst)))
			r.Post("/share", s.handleShare)
			r.Post("/batch", s.handleBatch)
		})

		r.Post("/groups", s.handleGroup)
		r.Post("/groups/rename", s.handleRename)
		r.Post("/links/{id}/category", s.handleCategory)
		r.Post("/maintenance/dedup", s.handleDedup)
	})
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.log.WithField("addr", s.http.Addr).Info("HTTP server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
