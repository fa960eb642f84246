package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/usecase"
	"github.com/secmon-lab/grcbook/pkg/utils/errutil"
	"github.com/secmon-lab/grcbook/pkg/utils/metrics"
	"github.com/secmon-lab/grcbook/pkg/utils/safe"
)

// maxUploadBytes bounds import request bodies
const maxUploadBytes = 32 << 20

type Server struct {
	router   *chi.Mux
	uc       *usecase.UseCases
	apiToken string
	metrics  bool
	now      func() time.Time

	slackDirectory SlackDirectory
	slackSecret    string
	appURL         string
}

type Options func(*Server)

// WithAPIToken requires "Authorization: Bearer <token>" on /api routes
func WithAPIToken(token string) Options {
	return func(s *Server) {
		s.apiToken = token
	}
}

func WithMetrics(enabled bool) Options {
	return func(s *Server) {
		s.metrics = enabled
	}
}

func WithClock(now func() time.Time) Options {
	return func(s *Server) {
		s.now = now
	}
}

func New(uc *usecase.UseCases, opts ...Options) (*Server, error) {
	if uc == nil {
		return nil, goerr.New("use cases are required")
	}

	r := chi.NewRouter()
	s := &Server{
		router:  r,
		uc:      uc,
		metrics: true,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	if s.metrics {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if s.apiToken != "" {
			r.Use(apiTokenMiddleware(s.apiToken))
		}
		r.Post("/import", s.importHandler)
		r.Get("/export", s.exportHandler)
		r.Get("/digest", s.digestHandler)
		r.Post("/digest/flush", s.digestFlushHandler)
	})

	if s.slackDirectory != nil && s.slackSecret != "" {
		r.With(slackSignatureMiddleware(s.slackSecret, s.now)).
			Post("/slack/command", s.slashCommandHandler)
	}

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(r.Context(), w, data)
}
