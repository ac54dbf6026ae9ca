// File: internal/infra/web/server.go
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"studygen/internal/infra/logging"
	"studygen/internal/usecase"
)

type Server struct {
	docUC  usecase.DocumentUseCase
	genUC  usecase.GenerateUseCase
	server *http.Server
	log    *zerolog.Logger
}

func NewServer(port int, docUC usecase.DocumentUseCase, genUC usecase.GenerateUseCase, logger *zerolog.Logger) *Server {
	s := &Server{docUC: docUC, genUC: genUC, log: logger}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: generation streams stay open for the life of a job
		// and are bounded by the pipeline's own deadlines.
	}
	return s
}

func (s *Server) router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.handleCreateDocument)
		r.Get("/documents/{documentID}", s.handleGetDocument)
		r.Get("/documents/{documentID}/materials", s.handleListMaterials)
		r.Post("/documents/{documentID}/generate", s.handleGenerate)
		r.Get("/jobs/{jobID}", s.handleGetJob)
	})
	return r
}

// traceMiddleware tags every request context with a trace id so downstream
// log lines can be correlated.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		if owner := r.Header.Get("X-Owner-ID"); owner != "" {
			ctx = logging.WithOwnerID(ctx, owner)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}
