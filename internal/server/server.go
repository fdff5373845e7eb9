// Package server exposes the studycast pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/studycast/internal/app"
)

// Server routes HTTP requests to an App.
type Server struct {
	app    *app.App
	logger *slog.Logger
	router chi.Router
}

// New creates a Server for a.
func New(a *app.App) *Server {
	s := &Server{app: a, logger: a.Logger.With("component", "http")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/query", s.handleQuery)
	r.Get("/questions", s.handleQuestions)
	r.Post("/evaluate", s.handleEvaluate)
	r.Post("/podcasts", s.handlePodcasts)
	r.Post("/feedback_stream", s.handleFeedbackStream)
	r.Post("/upload_document", s.handleUpload)

	r.Get("/rss_feed", s.handleRSS)
	r.Get("/podcast_page", s.handlePage)
	r.Get("/audio/*", s.handleAudio)

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads re-run synthesis for every leaf skill.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown", "err", err)
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
