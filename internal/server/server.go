// Package server exposes the Klesify HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/klesify/klesify-backend/internal/analysis"
	"github.com/klesify/klesify-backend/internal/dataset"
	"github.com/klesify/klesify-backend/internal/extract"
	"github.com/klesify/klesify-backend/internal/network"
	"github.com/klesify/klesify-backend/internal/server/notifier"
	"github.com/klesify/klesify-backend/internal/transcribe"
	"github.com/klesify/klesify-backend/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Body size limits.
const (
	maxJSONBody      = 1 << 20
	maxMultipartBody = 32 << 20
)

// Geocoder resolves city names.
type Geocoder interface {
	Geocode(ctx context.Context, city, country string) (core.GeoPoint, error)
}

// Transcriber converts audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio transcribe.Audio) (string, error)
	TranscribeDetailed(ctx context.Context, audio transcribe.Audio) (transcribe.Detailed, error)
}

// Config wires the server's collaborators. Geocoder, Extractor,
// Transcriber, Store and Dataset are optional.
type Config struct {
	Host        string
	Port        int
	CORSOrigins []string
	Watch       bool

	Network     network.Network
	Geocoder    Geocoder
	Extractor   extract.Extractor
	Transcriber Transcriber
	Analysis    *analysis.Service
	Store       core.Store
	Notifier    *notifier.Notifier
	Dataset     *dataset.Dataset
	Logger      *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notifier.New()
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	return &Server{cfg: cfg, logger: cfg.Logger}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Hello World"})
	})
	r.Post("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Success"})
	})
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sim-swap/check", s.handleSimSwapCheck)
		r.Post("/sim-swap/retrieve-date", s.handleSimSwapDate)
		r.Post("/kyc/match", s.handleKYCMatch)
		r.Post("/location/verify", s.handleLocationVerify)
		r.Post("/location/verify-by-city", s.handleLocationVerifyByCity)
		r.Post("/location/retrieve", s.handleLocationRetrieve)
		r.Get("/geocode", s.handleGeocode)

		r.Post("/extract", s.handleExtract)
		r.Post("/transcribe", s.handleTranscribe)
		r.Post("/fraud/analyze", s.handleAnalyze)
		r.Post("/fraud/analyze-audio", s.handleAnalyzeAudio)

		r.Get("/analyses", s.handleListAnalyses)
		r.Get("/analyses/stream", s.handleAnalysesStream)
		r.Get("/analyses/{id}", s.handleGetAnalysis)
	})
	return r
}

// Serve listens on the configured address and blocks until ctx is
// cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting API server", "addr", "http://"+ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.Watch && s.cfg.Dataset != nil {
		eg.Go(func() error {
			err := s.cfg.Dataset.Watch(egctx, func() {
				s.logger.Info("mock dataset reloaded", "subscribers", len(s.cfg.Dataset.PhoneNumbers()))
			})
			if err != nil {
				// The API keeps serving without hot reload.
				s.logger.Error("dataset watcher stopped", "error", err)
			}
			return nil
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.cfg.Dataset != nil {
		resp["mock_subscribers"] = len(s.cfg.Dataset.PhoneNumbers())
	}
	writeJSON(w, http.StatusOK, resp)
}
