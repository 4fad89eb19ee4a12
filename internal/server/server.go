/*
Copyright (C) 2026 Moodify HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires the HTTP surface and all supporting services.
package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/moodifyhq/moodify/internal/api"
	"github.com/moodifyhq/moodify/internal/cache"
	"github.com/moodifyhq/moodify/internal/catalog"
	"github.com/moodifyhq/moodify/internal/config"
	"github.com/moodifyhq/moodify/internal/db"
	"github.com/moodifyhq/moodify/internal/dialogue"
	"github.com/moodifyhq/moodify/internal/events"
	"github.com/moodifyhq/moodify/internal/llm"
	"github.com/moodifyhq/moodify/internal/recommend"
	"github.com/moodifyhq/moodify/internal/session"
	"github.com/moodifyhq/moodify/internal/spotify"
	"github.com/moodifyhq/moodify/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db         *gorm.DB
	cache      *cache.Cache
	catalog    *catalog.Index
	engine     *recommend.Engine
	sessions   *session.Store
	controller *dialogue.Controller
	api        *api.API
	bus        *events.Bus

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(recovererMiddleware(logger))
	router.Use(securityHeadersMiddleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.FrontendOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

// recovererMiddleware turns handler panics into a generic JSON 500 so
// clients always get a parseable body, without leaking the panic value.
func recovererMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error().
						Interface("panic", rec).
						Str("path", r.URL.Path).
						Bytes("stack", debug.Stack()).
						Msg("panic recovered")
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"message":"internal server error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	// The catalog is loaded once; an empty song table is a startup error,
	// not something to limp along with.
	index, err := catalog.Load(database, s.logger)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	s.catalog = index

	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		trackCache, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
		} else {
			s.cache = trackCache
			s.DeferClose(func() error { return s.cache.Close() })
		}
	}

	var trackCache spotify.URLCache
	if s.cache != nil {
		trackCache = s.cache
	}
	var links dialogue.LinkResolver
	spotifyClient := spotify.New(s.cfg.SpotifyClientID, s.cfg.SpotifyClientSecret, trackCache, s.logger)
	if spotifyClient.Enabled() {
		links = spotifyClient
	}

	assistant := llm.New(llm.Config{
		APIKey:  s.cfg.GroqAPIKey,
		BaseURL: s.cfg.GroqBaseURL,
		Model:   s.cfg.GroqModel,
		Timeout: s.cfg.LLMTimeout,
	}, s.logger)

	s.engine = recommend.New(s.catalog, s.cfg.EngineSeed, s.logger)
	s.sessions = session.NewStore()
	s.controller = dialogue.NewController(s.sessions, s.engine, assistant, links, s.bus, s.cfg.MaxFollowups, s.logger)
	s.api = api.New(s.controller, s.logger)

	return nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.runActivityListener(ctx)
	}()
}

// runActivityListener subscribes to dialogue events and maintains the
// activity log and the live-session gauge.
func (s *Server) runActivityListener(ctx context.Context) {
	recommendations := s.bus.Subscribe(events.EventRecommendation)
	noMatches := s.bus.Subscribe(events.EventNoMatch)
	resets := s.bus.Subscribe(events.EventSessionReset)

	defer func() {
		s.bus.Unsubscribe(events.EventRecommendation, recommendations)
		s.bus.Unsubscribe(events.EventNoMatch, noMatches)
		s.bus.Unsubscribe(events.EventSessionReset, resets)
	}()

	s.logger.Info().Msg("activity listener started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("activity listener stopped")
			return

		case payload := <-recommendations:
			s.logger.Info().
				Interface("session_id", payload["session_id"]).
				Interface("song", payload["song"]).
				Interface("artist", payload["artist"]).
				Msg("recommendation")
			telemetry.ActiveSessions.Set(float64(s.sessions.Len()))

		case payload := <-noMatches:
			s.logger.Warn().
				Interface("session_id", payload["session_id"]).
				Msg("no matching song")

		case payload := <-resets:
			s.logger.Info().
				Interface("session_id", payload["session_id"]).
				Msg("session reset")
			telemetry.ActiveSessions.Set(float64(s.sessions.Len()))
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Handle("/metrics", telemetry.Handler())
	s.api.Routes(s.router)
}
