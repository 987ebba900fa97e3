// Package server exposes namespaces over HTTP.
//
// Every data route is mounted twice: at the root, serving the registry's
// default namespace, and under /ns/{namespace}/, serving that namespace.
package server

import (
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/roach88/entgraph/internal/engine"
)

// Options configures the HTTP surface.
type Options struct {
	// AllowedOrigins for CORS. Empty disables the CORS middleware.
	AllowedOrigins []string

	// RateLimit is the sustained requests per second admitted across all
	// clients; 0 disables limiting. Burst is the bucket size.
	RateLimit float64
	Burst     int

	// RequestTimeout bounds each request's wait on its namespace actor;
	// 0 means no timeout.
	RequestTimeout time.Duration
}

// Server routes HTTP requests to namespace actors.
type Server struct {
	registry *engine.Registry
	logger   *slog.Logger
	opts     Options
	validate *validator.Validate
	metrics  *Metrics
}

// New creates a Server over reg.
func New(reg *engine.Registry, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	// Report validation failures by their JSON names.
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Server{
		registry: reg,
		logger:   logger,
		opts:     opts,
		validate: validate,
		metrics:  NewMetrics(reg),
	}
}

// Handler builds the router with all middleware and routes.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(accessLog(s.logger))
	router.Use(s.metrics.Middleware)

	if len(s.opts.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", s.health)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	router.Group(func(r chi.Router) {
		if s.opts.RateLimit > 0 {
			r.Use(rateLimit(rate.NewLimiter(rate.Limit(s.opts.RateLimit), max(s.opts.Burst, 1))))
		}
		if s.opts.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(s.opts.RequestTimeout))
		}

		r.Group(func(r chi.Router) {
			r.Use(s.withActor)
			s.routes(r)
		})
		r.Route("/ns/{namespace}", func(r chi.Router) {
			r.Use(s.withActor)
			s.routes(r)
		})
	})

	return router
}

// routes registers the data routes on r.
func (s *Server) routes(r chi.Router) {
	r.Route("/data", func(r chi.Router) {
		r.Get("/", s.listRecords)
		r.Post("/", s.insertRecord)
		r.Get("/{id}", s.getRecord)
		r.Patch("/{id}", s.updateRecord)
		r.Delete("/{id}", s.deleteRecord)
	})

	r.Route("/rels", func(r chi.Router) {
		r.Get("/", s.listEdges)
		r.Post("/", s.upsertEdge)
		r.Delete("/delete", s.deleteEdge)
	})

	r.Get("/traverse", s.traverse)

	r.Get("/meta/version", s.version)
	r.Get("/meta/indexes", s.indexes)

	r.Route("/query", func(r chi.Router) {
		r.Get("/list", s.queryListGet)
		r.Post("/list", s.queryListPost)
		r.Post("/find", s.queryFind)
		r.Post("/search", s.querySearch)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"namespaces": s.registry.Namespaces(),
	})
}
