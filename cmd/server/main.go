// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Command server runs the Warden detection substrate: the packet ingest
// edge, the dispatch pipeline with its state-maintenance executors, and
// the admin/ops HTTP surface, all under one supervision tree.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/wardenhq/warden/internal/api"
	"github.com/wardenhq/warden/internal/binding"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/detect"
	"github.com/wardenhq/warden/internal/dispatch"
	"github.com/wardenhq/warden/internal/errorsink"
	"github.com/wardenhq/warden/internal/ingest"
	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/player"
	"github.com/wardenhq/warden/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("configuration load failed")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	sink := errorsink.New()
	if cfg.Webhook.Enabled {
		forwarder := errorsink.NewWebhookForwarder(errorsink.WebhookConfig{
			URL:                     cfg.Webhook.URL,
			Timeout:                 cfg.Webhook.Timeout,
			BreakerFailureThreshold: cfg.Webhook.BreakerFailureThreshold,
			BreakerTimeout:          cfg.Webhook.BreakerTimeout,
		})
		sink.SetHandler(forwarder.Handler())
	}

	players := player.NewRegistry(player.DefaultKinds())
	pool := dispatch.NewPool(cfg.Dispatch.PoolIdleTimeout)
	dispatcher := dispatch.New(sink, pool)

	posture := detect.NewPostureExecutor("core:posture")
	movement := detect.NewMovementExecutor("core:movement")
	executors := []dispatch.Executor{
		posture,
		movement,
		detect.NewAbilitiesExecutor("core:abilities"),
		detect.NewTeleportExecutor("core:teleport"),
		detect.NewCommitExecutor("core:movement-commit"),
	}
	for _, exec := range executors {
		if err := dispatcher.Register(exec); err != nil {
			logging.Fatal().Err(err).Msg("executor registration failed")
		}
	}

	tunables := binding.NewGroup()
	addTunable(tunables, binding.Bind("posture.track_gliding", sink, posture,
		(*detect.PostureExecutor).TrackGliding,
		(*detect.PostureExecutor).SetTrackGliding,
	))
	addTunable(tunables, binding.Bind("movement.track_look", sink, movement,
		(*detect.MovementExecutor).TrackLook,
		(*detect.MovementExecutor).SetTrackLook,
	))

	bus, err := ingest.NewBus(cfg.Ingest.BufferSize, players, dispatcher, sink)
	if err != nil {
		logging.Fatal().Err(err).Msg("packet bus construction failed")
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDispatchService(dispatcher)
	tree.AddIngestService(bus)
	tree.AddIngestService(ingest.NewServer(cfg.Ingest, bus, players))
	tree.AddAPIService(api.NewServer(cfg.Server, players, dispatcher, tunables))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Int("admin_port", cfg.Server.Port).
		Int("ingest_port", cfg.Ingest.Port).
		Msg("warden starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor exited")
		os.Exit(1)
	}
	logging.Info().Msg("warden stopped")
}

func addTunable(group *binding.Group, v binding.Value) {
	if err := group.Add(v); err != nil {
		logging.Fatal().Err(err).Msg("tunable registration failed")
	}
}
