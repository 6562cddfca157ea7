package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"face-insight-backend/internal/infra/logging"
	"face-insight-backend/internal/infra/storage"
	"face-insight-backend/internal/usecase"
)

type Server struct {
	analysisUC     usecase.AnalysisUseCase
	chatUC         usecase.ChatUseCase
	files          *storage.FileStore
	maxUploadBytes int64
	log            *zerolog.Logger
}

func NewServer(
	analysisUC usecase.AnalysisUseCase,
	chatUC usecase.ChatUseCase,
	files *storage.FileStore,
	maxUploadBytes int64,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		analysisUC:     analysisUC,
		chatUC:         chatUC,
		files:          files,
		maxUploadBytes: maxUploadBytes,
		log:            &l,
	}
}

// Routes builds the chi router for the public API.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/uploads", s.handleUpload)

		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Post("/jobs/{id}/start", s.handleStartJob)

		r.Post("/chat", s.handleAsk)
		r.Get("/chat/{id}/history", s.handleHistory)
		r.Get("/chat/{id}/summary", s.handleSummary)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
