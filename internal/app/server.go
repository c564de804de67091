package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hashicorp/go-hclog"

	"github.com/markdave123-py/contexta-ingest/internal/api/handlers"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        hclog.Logger
}

// NewRouter builds and wires all routes.
func NewRouter(a *App) http.Handler {
	cfg := a.Config
	docHandler := handlers.NewDocumentHandler(a.Ingestor, a.ObjectClient(), cfg, a.Log.Named("http"))
	sysHandler := handlers.NewSystemHandler(a.Embedder, a.Ingestor, a.PDF.ToolAvailable,
		IngestConfigFrom(cfg).EmbeddingServiceAddress, cfg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/", sysHandler.Root)
	r.Method(http.MethodGet, "/metrics", a.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", sysHandler.Health)
		api.Get("/supported-types", sysHandler.SupportedTypes)
		api.Get("/test", sysHandler.Test)
		api.Post("/process-file", docHandler.ProcessFile)
		api.Post("/process-files", docHandler.ProcessFiles)
		api.Post("/process-object", docHandler.ProcessObject)
	})

	r.NotFound(sysHandler.NotFound)
	r.MethodNotAllowed(sysHandler.NotFound)

	return r
}

func NewServer(a *App) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:    ":" + a.Config.Port,
			Handler: NewRouter(a),
		},
		log: a.Log.Named("http"),
	}
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
