// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package ingest is the boundary between the external protocol decoder
// and the dispatch pipeline. Decoded frames arrive over a WebSocket,
// cross an in-process Watermill bus, and are handed to the dispatcher's
// worker pool. The bus decouples packet arrival from dispatch so a burst
// never backs up into the decoder connection.
package ingest

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/wardenhq/warden/internal/dispatch"
	"github.com/wardenhq/warden/internal/errorsink"
	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/metrics"
	"github.com/wardenhq/warden/internal/packet"
	"github.com/wardenhq/warden/internal/player"
)

// TopicPackets is the bus topic carrying decoded packet envelopes.
const TopicPackets = "packets.decoded"

// Envelope is the bus message: the originating player identity plus the
// undecoded frame.
type Envelope struct {
	PlayerID uuid.UUID    `json:"player_id"`
	Frame    packet.Frame `json:"frame"`
}

// Bus moves packet envelopes from the ingest edge to the dispatcher.
type Bus struct {
	pubsub     *gochannel.GoChannel
	router     *message.Router
	players    *player.Registry
	dispatcher *dispatch.Dispatcher
	sink       *errorsink.Sink
}

// NewBus creates the in-process packet bus and wires its single handler
// to the dispatcher.
func NewBus(bufferSize int64, players *player.Registry, dispatcher *dispatch.Dispatcher, sink *errorsink.Sink) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logging.NewSlogLogger())

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: bufferSize,
	}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create ingest router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer, middleware.CorrelationID)

	b := &Bus{
		pubsub:     pubsub,
		router:     router,
		players:    players,
		dispatcher: dispatcher,
		sink:       sink,
	}
	router.AddNoPublisherHandler("warden.dispatch", TopicPackets, pubsub, b.handle)
	return b, nil
}

// Publish places an envelope on the bus.
func (b *Bus) Publish(env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	return b.pubsub.Publish(TopicPackets, msg)
}

// handle consumes one envelope: resolve the player, decode the frame,
// schedule the dispatch. Malformed traffic is reported and acked; the
// bus never redelivers what cannot become well-formed.
func (b *Bus) handle(msg *message.Message) error {
	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		metrics.IngestFrames.WithLabelValues("decode_error").Inc()
		b.sink.Report(fmt.Errorf("malformed envelope: %w", err))
		return nil
	}

	p, ok := b.players.Get(env.PlayerID)
	if !ok {
		// Disconnect raced the frame through the bus; nothing to do.
		metrics.IngestFrames.WithLabelValues("unknown_player").Inc()
		return nil
	}

	pkt, err := packet.Decode(env.Frame)
	if err != nil {
		metrics.IngestFrames.WithLabelValues("decode_error").Inc()
		b.sink.Report(fmt.Errorf("player %s: %w", env.PlayerID, err))
		return nil
	}

	metrics.IngestFrames.WithLabelValues("dispatched").Inc()
	b.dispatcher.Submit(p, pkt)
	return nil
}

// Serve runs the bus router until the context is canceled. Implements
// suture.Service.
func (b *Bus) Serve(ctx context.Context) error {
	err := b.router.Run(ctx)
	if closeErr := b.pubsub.Close(); closeErr != nil {
		logging.Err(closeErr).Msg("closing packet bus")
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

// Running returns a channel closed once the router is running. Tests use
// it to avoid publishing before the handler subscribes.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}
