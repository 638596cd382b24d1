package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mash-protocol/mash-expose/internal/observability"
)

// elementPath is the prefix shared by every element route.
const elementPath = "/api/v1/{node}/{endpoint}/{cluster}"

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"Trace-ID", "X-Request-Id"},
			MaxAge:         300,
		}))
	}
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(observability.Middleware(s.tracer))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMethodNotAllowed(w, r.Method+" is not supported on this route")
	})

	r.Get("/", http.RedirectHandler("/html/nodes", http.StatusTemporaryRedirect).ServeHTTP)
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/html", func(r chi.Router) {
		r.Get("/nodes", s.handleNodesPage)
		r.Get("/swagger/{node}", s.handleSwaggerPage)
	})

	r.Get("/api/info", s.handleInfo)
	r.Get("/api/doc/{node}", s.handleDocument)

	r.Route(elementPath, func(r chi.Router) {
		r.Get("/attribute/{attribute}", s.handleReadAttribute)
		r.Post("/attribute/{attribute}", s.handleWriteAttribute)
		r.Post("/command/{command}", s.handleInvokeCommand)
		r.Get("/event/{event}", s.handleEventStream)
	})

	return r
}
