// Package server provides the laughless HTTP service: event intake, session
// finalization, report aggregation and recommendation fan-out.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/hmoon-dev/laughless/internal/config"
	"github.com/hmoon-dev/laughless/internal/db"
	"github.com/hmoon-dev/laughless/internal/finalize"
	"github.com/hmoon-dev/laughless/internal/recommend"
)

// Service is the HTTP service wiring the event store, finalizer and fan-out
// behind the chi router.
type Service struct {
	cfg        *config.Config
	store      *db.Store
	eventStore *db.EventStore
	finalizer  *finalize.Finalizer
	fanout     *recommend.Fanout
	router     chi.Router
	startTime  time.Time
}

// New creates a Service and mounts its routes.
func New(cfg *config.Config, store *db.Store, eventStore *db.EventStore, finalizer *finalize.Finalizer, fanout *recommend.Fanout) *Service {
	svc := &Service{
		cfg:        cfg,
		store:      store,
		eventStore: eventStore,
		finalizer:  finalizer,
		fanout:     fanout,
		router:     chi.NewRouter(),
		startTime:  time.Now(),
	}
	svc.setupRoutes()
	return svc
}

// Router returns the HTTP handler.
func (s *Service) Router() http.Handler {
	return s.router
}

func (s *Service) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.Route("/laugh-event", func(r chi.Router) {
		r.Post("/", s.handleCreateEvent)
		r.Post("/llm-result", s.handleLlmResult)
		r.Get("/final", s.handleFinalEvents)
		r.Get("/{sessionID}", s.handleEventsBySession)
	})

	s.router.Post("/finish/{sessionID}", s.handleFinish)
	s.router.Get("/report/{sessionID}", s.handleReport)
	s.router.Get("/youtube/recommend/{sessionID}", s.handleRecommend)
}

// requestLogger logs one line per request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Service) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
