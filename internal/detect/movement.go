// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package detect

import (
	"sync/atomic"

	"github.com/wardenhq/warden/internal/dispatch"
	"github.com/wardenhq/warden/internal/packet"
	"github.com/wardenhq/warden/internal/player"
)

// MovementExecutor applies Flying packets to the current snapshot's
// position, look, and on-ground attributes.
type MovementExecutor struct {
	dispatch.Base

	// trackLook is runtime-tunable; look angles are only needed by
	// aim-oriented heuristics.
	trackLook atomic.Bool
}

// NewMovementExecutor creates the movement executor under the given
// identifier.
func NewMovementExecutor(identifier string) *MovementExecutor {
	e := &MovementExecutor{
		Base: dispatch.NewBase(identifier, packet.KindFlying, dispatch.TierProcessOne, false),
	}
	e.trackLook.Store(true)
	return e
}

// TrackLook reports whether look angles are recorded.
func (e *MovementExecutor) TrackLook() bool {
	return e.trackLook.Load()
}

// SetTrackLook toggles look angle recording.
func (e *MovementExecutor) SetTrackLook(v bool) {
	e.trackLook.Store(v)
}

// Execute records the movement claim into the current snapshot.
func (e *MovementExecutor) Execute(p *player.Player, pkt packet.Packet) (dispatch.Result, error) {
	flying, ok := pkt.(packet.Flying)
	if !ok {
		return dispatch.Continue, nil
	}

	movement, err := p.Data().Movement()
	if err != nil {
		return dispatch.Continue, err
	}

	if flying.HasPosition {
		movement.SetPosition(flying.X, flying.Y, flying.Z)
	}
	if flying.HasLook && e.trackLook.Load() {
		movement.SetLook(flying.Yaw, flying.Pitch)
	}
	movement.SetOnGround(flying.OnGround)

	return dispatch.Continue, nil
}

// AbilitiesExecutor applies the client's flight toggle to the current
// snapshot.
type AbilitiesExecutor struct {
	dispatch.Base
}

// NewAbilitiesExecutor creates the abilities executor under the given
// identifier.
func NewAbilitiesExecutor(identifier string) *AbilitiesExecutor {
	return &AbilitiesExecutor{
		Base: dispatch.NewBase(identifier, packet.KindAbilities, dispatch.TierProcessOne, false),
	}
}

// Execute records the flight claim into the current snapshot.
func (e *AbilitiesExecutor) Execute(p *player.Player, pkt packet.Packet) (dispatch.Result, error) {
	abilities, ok := pkt.(packet.Abilities)
	if !ok {
		return dispatch.Continue, nil
	}

	movement, err := p.Data().Movement()
	if err != nil {
		return dispatch.Continue, err
	}
	movement.SetFlying(abilities.Flying)

	return dispatch.Continue, nil
}

// TeleportExecutor applies server-forced positions to the current
// snapshot so later movement deltas are measured from the right origin.
type TeleportExecutor struct {
	dispatch.Base
}

// NewTeleportExecutor creates the teleport executor under the given
// identifier.
func NewTeleportExecutor(identifier string) *TeleportExecutor {
	return &TeleportExecutor{
		Base: dispatch.NewBase(identifier, packet.KindTeleport, dispatch.TierProcessOne, false),
	}
}

// Execute overwrites position and look with the forced values.
func (e *TeleportExecutor) Execute(p *player.Player, pkt packet.Packet) (dispatch.Result, error) {
	teleport, ok := pkt.(packet.Teleport)
	if !ok {
		return dispatch.Continue, nil
	}

	movement, err := p.Data().Movement()
	if err != nil {
		return dispatch.Continue, err
	}
	movement.SetPosition(teleport.X, teleport.Y, teleport.Z)
	movement.SetLook(teleport.Yaw, teleport.Pitch)

	return dispatch.Continue, nil
}

// CommitExecutor advances the snapshot epoch at the end of each movement
// dispatch. It runs in the post tier so every same-dispatch mutation
// lands in the epoch being committed.
type CommitExecutor struct {
	dispatch.Base
}

// NewCommitExecutor creates the commit executor under the given
// identifier.
func NewCommitExecutor(identifier string) *CommitExecutor {
	return &CommitExecutor{
		Base: dispatch.NewBase(identifier, packet.KindFlying, dispatch.TierPost, false),
	}
}

// Execute commits the player's movement snapshot.
func (e *CommitExecutor) Execute(p *player.Player, _ packet.Packet) (dispatch.Result, error) {
	movement, err := p.Data().Movement()
	if err != nil {
		return dispatch.Continue, err
	}
	movement.Commit()
	return dispatch.Continue, nil
}
