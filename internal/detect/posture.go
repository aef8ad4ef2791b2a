// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package detect contains the state-maintenance executors that keep each
// player's movement StateBuffer in step with the packet stream. Higher
// level cheat heuristics consume the snapshots these executors maintain;
// the heuristics themselves live outside this module.
package detect

import (
	"sync/atomic"

	"github.com/wardenhq/warden/internal/dispatch"
	"github.com/wardenhq/warden/internal/packet"
	"github.com/wardenhq/warden/internal/player"
)

// PostureExecutor applies EntityAction packets to the current snapshot's
// sneaking, sprinting, and gliding attributes. It is gated on the
// player's game mode: spectators have no posture to track, so the
// executor never runs for them.
type PostureExecutor struct {
	dispatch.Base

	// trackGliding is runtime-tunable via the binding layer; glide
	// tracking is noisy on servers that disable elytra.
	trackGliding atomic.Bool
}

// NewPostureExecutor creates the posture executor under the given
// identifier.
func NewPostureExecutor(identifier string) *PostureExecutor {
	e := &PostureExecutor{
		Base: dispatch.NewBase(identifier, packet.KindEntityAction, dispatch.TierProcessOne, false),
	}
	e.trackGliding.Store(true)
	return e
}

// TrackGliding reports whether glide transitions are applied.
func (e *PostureExecutor) TrackGliding() bool {
	return e.trackGliding.Load()
}

// SetTrackGliding toggles glide tracking.
func (e *PostureExecutor) SetTrackGliding(v bool) {
	e.trackGliding.Store(v)
}

// CanRun gates posture tracking on a game mode that has posture.
func (e *PostureExecutor) CanRun(p *player.Player, _ packet.Packet) bool {
	return p.GameMode() != player.ModeSpectator
}

// Execute applies the posture transition to the current snapshot.
func (e *PostureExecutor) Execute(p *player.Player, pkt packet.Packet) (dispatch.Result, error) {
	action, ok := pkt.(packet.EntityAction)
	if !ok {
		return dispatch.Continue, nil
	}

	movement, err := p.Data().Movement()
	if err != nil {
		return dispatch.Continue, err
	}

	switch action.Action {
	case packet.StartSneaking:
		movement.SetSneaking(true)
	case packet.StopSneaking:
		movement.SetSneaking(false)
	case packet.StartSprinting:
		movement.SetSprinting(true)
	case packet.StopSprinting:
		movement.SetSprinting(false)
	case packet.StartGliding:
		if e.trackGliding.Load() {
			movement.SetGliding(true)
		}
	}

	return dispatch.Continue, nil
}
