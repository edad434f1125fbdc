/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires configuration, storage, services and the HTTP router
// into one runnable unit.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/mimir_hire/internal/api"
	"github.com/friendsincode/mimir_hire/internal/audit"
	"github.com/friendsincode/mimir_hire/internal/availability"
	"github.com/friendsincode/mimir_hire/internal/cache"
	"github.com/friendsincode/mimir_hire/internal/config"
	"github.com/friendsincode/mimir_hire/internal/db"
	"github.com/friendsincode/mimir_hire/internal/directory"
	"github.com/friendsincode/mimir_hire/internal/eventbus"
	"github.com/friendsincode/mimir_hire/internal/events"
	"github.com/friendsincode/mimir_hire/internal/ledger"
	"github.com/friendsincode/mimir_hire/internal/scheduling"
	"github.com/friendsincode/mimir_hire/internal/telemetry"
)

// Server bundles the HTTP listener and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db         *gorm.DB
	slotCache  *cache.SlotCache
	bus        *events.Bus
	relay      *eventbus.Relay
	ledger     *ledger.Ledger
	directory  *directory.Directory
	scheduling *scheduling.Service
	auditSvc   *audit.Service
	api        *api.API

	metricsServer *http.Server

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
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
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
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

	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		cacheCfg.SlotTTL = s.cfg.SlotCacheTTL
		s.slotCache = cache.New(cacheCfg, s.logger)
	} else {
		s.slotCache = cache.Disabled(s.logger)
	}
	s.DeferClose(func() error { return s.slotCache.Close() })

	dayStart, err := availability.ParseDayClock(s.cfg.WorkDayStart)
	if err != nil {
		return err
	}
	dayEnd, err := availability.ParseDayClock(s.cfg.WorkDayEnd)
	if err != nil {
		return err
	}
	hours := ledger.WorkingHours{DayStart: dayStart, DayEnd: dayEnd}

	s.ledger = ledger.New(database, hours, s.logger)
	s.directory = directory.New(database, s.logger)

	modeDurations, err := s.cfg.ModeDurations()
	if err != nil {
		return err
	}
	s.scheduling = scheduling.New(s.ledger, s.directory, s.slotCache, s.bus, scheduling.Options{
		SlotDuration:  time.Duration(s.cfg.SlotMinutes) * time.Minute,
		ModeDurations: modeDurations,
	}, s.logger)

	s.auditSvc = audit.NewService(database, s.bus, s.logger)

	relay, err := eventbus.NewRelay(s.cfg.NATSURL, s.bus, s.logger)
	if err != nil {
		return err
	}
	s.relay = relay
	s.DeferClose(func() error { return s.relay.Close() })

	s.api = api.New([]byte(s.cfg.JWTSigningKey), s.scheduling, s.auditSvc, s.logger)
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

	s.relay.Start(ctx)

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.auditSvc.Start(ctx)
	}()

	// Metrics are served on a separate listener so they never ride the
	// public port.
	if s.cfg.MetricsBind != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler())
		s.metricsServer = &http.Server{
			Addr:              s.cfg.MetricsBind,
			Handler:           mux,
			ReadHeaderTimeout: 15 * time.Second,
		}
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error().Err(err).Msg("metrics listener exited")
			}
		}()
		s.logger.Info().Str("bind", s.cfg.MetricsBind).Msg("metrics listener started")
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = s.metricsServer.Shutdown(ctx)
		cancel()
		s.metricsServer = nil
	}
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.api.Routes(s.router)
}
