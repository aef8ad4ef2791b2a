// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package player holds the per-player behavioral state Warden maintains:
// the authoritative registry of connected players, each player's
// extensible data-kind registry, and the dual-buffered movement state
// detectors diff against.
package player

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/metrics"
)

// GameMode is the player's current game mode as reported by the host
// server. Gating predicates use it to skip detectors that cannot apply.
type GameMode string

const (
	ModeSurvival  GameMode = "survival"
	ModeCreative  GameMode = "creative"
	ModeAdventure GameMode = "adventure"
	ModeSpectator GameMode = "spectator"
)

// Player is one connected player: an opaque stable session identity plus
// its data registry. The identity is unique for the lifetime of the
// connection and never reused while it is open.
type Player struct {
	id   uuid.UUID
	name string
	mode atomic.Value // GameMode
	data *DataRegistry
}

// ID returns the player's session identity.
func (p *Player) ID() uuid.UUID { return p.id }

// Name returns the player's display name.
func (p *Player) Name() string { return p.name }

// GameMode returns the player's current game mode.
func (p *Player) GameMode() GameMode {
	return p.mode.Load().(GameMode)
}

// SetGameMode updates the player's game mode.
func (p *Player) SetGameMode(mode GameMode) {
	p.mode.Store(mode)
}

// Data returns the player's data registry.
func (p *Player) Data() *DataRegistry { return p.data }

// Registry is the authoritative set of connected players. Components
// receive it at construction; there is no ambient global player list.
type Registry struct {
	kinds *KindSet

	mu      sync.RWMutex
	players map[uuid.UUID]*Player
}

// NewRegistry creates a Registry whose players carry the given data kinds.
func NewRegistry(kinds *KindSet) *Registry {
	return &Registry{
		kinds:   kinds,
		players: make(map[uuid.UUID]*Player),
	}
}

// Connect registers a player identity and creates its data registry. If
// the identity is already connected the existing player is returned.
func (r *Registry) Connect(id uuid.UUID, name string, mode GameMode) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.players[id]; ok {
		return existing
	}

	p := &Player{id: id, name: name}
	p.mode.Store(mode)
	p.data = newDataRegistry(p, r.kinds)
	r.players[id] = p

	metrics.ConnectedPlayers.Set(float64(len(r.players)))
	logging.Debug().Str("player", id.String()).Str("name", name).Msg("player connected")
	return p
}

// Disconnect evicts the player and destroys its data registry in full.
// Unknown identities are ignored.
func (r *Registry) Disconnect(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return
	}
	delete(r.players, id)
	p.data.destroy()

	metrics.ConnectedPlayers.Set(float64(len(r.players)))
	logging.Debug().Str("player", id.String()).Msg("player disconnected")
}

// Get returns the player for id, if connected.
func (r *Registry) Get(id uuid.UUID) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	return p, ok
}

// List returns a snapshot of all connected players.
func (r *Registry) List() []*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	players := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	return players
}

// Len returns the number of connected players.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}
