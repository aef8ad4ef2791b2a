// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package packet defines the closed family of decoded game-protocol
// packets Warden dispatches on. The wire decoder lives outside this
// process; packets arrive here already parsed and typed. The family is
// sealed so every consumer switches over a known set of variants with
// no silent fallthrough for unrecognized traffic.
package packet

import "fmt"

// Direction identifies which side of the connection produced the packet.
type Direction string

const (
	// Serverbound packets travel from the game client to the server.
	Serverbound Direction = "serverbound"

	// Clientbound packets travel from the server to the game client.
	Clientbound Direction = "clientbound"
)

// Kind identifies a packet variant. The set is closed; executors register
// against exactly one kind.
type Kind string

const (
	KindEntityAction Kind = "entity_action"
	KindFlying       Kind = "flying"
	KindAbilities    Kind = "abilities"
	KindVelocity     Kind = "velocity"
	KindTeleport     Kind = "teleport"
)

// Kinds returns every kind in the family, serverbound first.
func Kinds() []Kind {
	return []Kind{KindEntityAction, KindFlying, KindAbilities, KindVelocity, KindTeleport}
}

// Packet is a decoded, typed unit of protocol traffic associated with one
// player connection. The unexported method seals the family.
type Packet interface {
	Kind() Kind
	Direction() Direction

	sealed()
}

// Action is the sub-action carried by an EntityAction packet.
type Action string

const (
	StartSneaking   Action = "start_sneaking"
	StopSneaking    Action = "stop_sneaking"
	StartSprinting  Action = "start_sprinting"
	StopSprinting   Action = "stop_sprinting"
	StartGliding    Action = "start_gliding"
)

// EntityAction is the serverbound posture-change packet: the client
// announces the start or stop of sneaking, sprinting, or gliding.
type EntityAction struct {
	Action Action `json:"action"`
}

func (EntityAction) Kind() Kind           { return KindEntityAction }
func (EntityAction) Direction() Direction { return Serverbound }
func (EntityAction) sealed()              {}

// Flying is the serverbound movement packet: position and/or look plus
// the client's on-ground claim. HasPosition and HasLook distinguish the
// position-only, look-only, and combined wire forms.
type Flying struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	Yaw         float32 `json:"yaw"`
	Pitch       float32 `json:"pitch"`
	OnGround    bool    `json:"on_ground"`
	HasPosition bool    `json:"has_position"`
	HasLook     bool    `json:"has_look"`
}

func (Flying) Kind() Kind           { return KindFlying }
func (Flying) Direction() Direction { return Serverbound }
func (Flying) sealed()              {}

// Abilities is the serverbound ability-toggle packet; only the flight
// flag is client-writable.
type Abilities struct {
	Flying bool `json:"flying"`
}

func (Abilities) Kind() Kind           { return KindAbilities }
func (Abilities) Direction() Direction { return Serverbound }
func (Abilities) sealed()              {}

// Velocity is the clientbound knockback packet; detectors use it to
// discount server-initiated motion.
type Velocity struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
	DZ float64 `json:"dz"`
}

func (Velocity) Kind() Kind           { return KindVelocity }
func (Velocity) Direction() Direction { return Clientbound }
func (Velocity) sealed()              {}

// Teleport is the clientbound forced-position packet.
type Teleport struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Yaw   float32 `json:"yaw"`
	Pitch float32 `json:"pitch"`
}

func (Teleport) Kind() Kind           { return KindTeleport }
func (Teleport) Direction() Direction { return Clientbound }
func (Teleport) sealed()              {}

// ValidKind reports whether k names a packet variant in the family.
func ValidKind(k Kind) bool {
	switch k {
	case KindEntityAction, KindFlying, KindAbilities, KindVelocity, KindTeleport:
		return true
	}
	return false
}

// ValidAction reports whether a is a recognized entity action.
func ValidAction(a Action) bool {
	switch a {
	case StartSneaking, StopSneaking, StartSprinting, StopSprinting, StartGliding:
		return true
	}
	return false
}

// UnknownKindError is returned when a frame names a kind outside the family.
type UnknownKindError struct {
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown packet kind %q", e.Kind)
}
