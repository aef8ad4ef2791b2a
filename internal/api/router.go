// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package api provides the admin/ops HTTP surface: health, Prometheus
// metrics, connected-player inspection, and tunable editing. It is the
// external configuration UI's only way into the binding layer.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wardenhq/warden/internal/binding"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/dispatch"
	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/player"
)

// Server is the admin HTTP server.
type Server struct {
	cfg     config.ServerConfig
	handler *Handler
	httpSrv *http.Server
}

// NewServer builds the admin server and its route tree.
func NewServer(cfg config.ServerConfig, players *player.Registry, dispatcher *dispatch.Dispatcher, tunables *binding.Group) *Server {
	h := &Handler{
		players:    players,
		dispatcher: dispatcher,
		tunables:   tunables,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))

		r.Get("/tunables", h.ListTunables)
		r.Get("/tunables/{name}", h.GetTunable)
		r.Put("/tunables/{name}", h.PutTunable)
		r.Get("/players", h.ListPlayers)
		r.Get("/executors", h.ListExecutors)
	})

	return &Server{
		cfg:     cfg,
		handler: h,
		httpSrv: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.Timeout,
			WriteTimeout:      cfg.Timeout,
		},
	}
}

// Handler returns the underlying handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Serve runs the admin server until the context is canceled. Implements
// suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()

	logging.Info().Str("addr", s.httpSrv.Addr).Msg("admin API listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			logging.Err(err).Msg("admin API shutdown")
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
