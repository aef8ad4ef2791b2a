// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/metrics"
	"github.com/wardenhq/warden/internal/packet"
	"github.com/wardenhq/warden/internal/player"
)

// Frame types the decoder sends over the ingest socket.
const (
	FrameConnect    = "connect"
	FrameDisconnect = "disconnect"
	FrameGameMode   = "game_mode"
	FramePacket     = "packet"
)

// WireFrame is one message from the protocol decoder: a connection
// lifecycle event or a decoded packet.
type WireFrame struct {
	Type     string        `json:"type"`
	PlayerID uuid.UUID     `json:"player_id"`
	Name     string        `json:"name,omitempty"`
	GameMode string        `json:"game_mode,omitempty"`
	Packet   *packet.Frame `json:"packet,omitempty"`
}

// Server accepts decoder connections and feeds their frames onto the
// bus. Each connection is rate limited independently.
type Server struct {
	cfg      config.IngestConfig
	bus      *Bus
	players  *player.Registry
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// NewServer creates the ingest server for the given config.
func NewServer(cfg config.IngestConfig, bus *Bus, players *player.Registry) *Server {
	s := &Server{
		cfg:     cfg,
		bus:     bus,
		players: players,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
			// The decoder runs on a trusted host; the admin surface
			// carries the origin policy, not this socket.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, s.handleUpgrade)
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Err(err).Msg("ingest upgrade failed")
		return
	}

	metrics.IngestConnections.Inc()
	defer metrics.IngestConnections.Dec()
	defer conn.Close()

	s.readLoop(conn)
}

func (s *Server) readLoop(conn *websocket.Conn) {
	var limiter *rate.Limiter
	if s.cfg.FramesPerSecond > 0 {
		burst := s.cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(s.cfg.FramesPerSecond), burst)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Err(err).Msg("ingest read failed")
			}
			return
		}

		if limiter != nil && !limiter.Allow() {
			metrics.IngestFrames.WithLabelValues("rate_limited").Inc()
			continue
		}

		var frame WireFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			metrics.IngestFrames.WithLabelValues("decode_error").Inc()
			logging.Err(err).Msg("malformed ingest frame")
			continue
		}
		s.apply(frame)
	}
}

// apply routes one wire frame: lifecycle events act on the player
// registry directly, packets go through the bus.
func (s *Server) apply(frame WireFrame) {
	switch frame.Type {
	case FrameConnect:
		mode := player.GameMode(frame.GameMode)
		if mode == "" {
			mode = player.ModeSurvival
		}
		s.players.Connect(frame.PlayerID, frame.Name, mode)
	case FrameDisconnect:
		s.players.Disconnect(frame.PlayerID)
	case FrameGameMode:
		if p, ok := s.players.Get(frame.PlayerID); ok {
			p.SetGameMode(player.GameMode(frame.GameMode))
		}
	case FramePacket:
		if frame.Packet == nil {
			metrics.IngestFrames.WithLabelValues("decode_error").Inc()
			return
		}
		if err := s.bus.Publish(Envelope{PlayerID: frame.PlayerID, Frame: *frame.Packet}); err != nil {
			logging.Err(err).Msg("publish packet envelope")
		}
	default:
		metrics.IngestFrames.WithLabelValues("decode_error").Inc()
		logging.Warn().Str("type", frame.Type).Msg("unknown ingest frame type")
	}
}

// Serve runs the ingest HTTP server until the context is canceled.
// Implements suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()

	logging.Info().Str("addr", s.httpSrv.Addr).Str("path", s.cfg.Path).Msg("ingest listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			logging.Err(err).Msg("ingest shutdown")
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
