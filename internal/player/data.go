// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package player

import (
	"fmt"
	"sync"
)

// Kind tags one payload type in a player's data registry. At most one
// payload instance exists per kind per player.
type Kind string

// KindMovement is the built-in movement/posture state payload, backed by
// a StateBuffer.
const KindMovement Kind = "movement"

// Factory constructs a kind's payload for one player. It is invoked at
// most once per player per kind, on first access.
type Factory func(p *Player) any

// KindSet holds the payload factories a Registry injects into every
// player's data registry. It is populated during wiring and read-only
// afterwards; there are no ambient global kinds.
type KindSet struct {
	mu        sync.RWMutex
	factories map[Kind]Factory
}

// NewKindSet creates an empty KindSet.
func NewKindSet() *KindSet {
	return &KindSet{factories: make(map[Kind]Factory)}
}

// DefaultKinds returns a KindSet with the built-in movement kind.
func DefaultKinds() *KindSet {
	ks := NewKindSet()
	ks.Register(KindMovement, func(*Player) any { return NewStateBuffer() })
	return ks
}

// Register adds a factory for kind. Registering the same kind twice
// keeps the first factory (insertion is idempotent per kind).
func (ks *KindSet) Register(kind Kind, factory Factory) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if _, ok := ks.factories[kind]; ok {
		return
	}
	ks.factories[kind] = factory
}

func (ks *KindSet) factory(kind Kind) (Factory, bool) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	f, ok := ks.factories[kind]
	return f, ok
}

// DataRegistry maps data kinds to payload instances for one player. It is
// created at connect and destroyed in full at disconnect; no entry
// outlives its player.
type DataRegistry struct {
	owner *Player
	kinds *KindSet

	mu      sync.RWMutex
	entries map[Kind]any
}

func newDataRegistry(owner *Player, kinds *KindSet) *DataRegistry {
	return &DataRegistry{
		owner:   owner,
		kinds:   kinds,
		entries: make(map[Kind]any),
	}
}

// GetOrCreate returns the payload for kind, lazily constructing it on
// first access. Under concurrent first access exactly one construction
// wins and all callers observe the winner's instance.
func (r *DataRegistry) GetOrCreate(kind Kind) (any, error) {
	r.mu.RLock()
	payload, ok := r.entries[kind]
	r.mu.RUnlock()
	if ok {
		return payload, nil
	}

	factory, ok := r.kinds.factory(kind)
	if !ok {
		return nil, fmt.Errorf("no factory registered for data kind %q", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if payload, ok := r.entries[kind]; ok {
		return payload, nil
	}
	payload = factory(r.owner)
	r.entries[kind] = payload
	return payload, nil
}

// Get returns the payload for kind if it has been created.
func (r *DataRegistry) Get(kind Kind) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payload, ok := r.entries[kind]
	return payload, ok
}

// Kinds returns the kinds that currently hold a payload.
func (r *DataRegistry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.entries))
	for k := range r.entries {
		kinds = append(kinds, k)
	}
	return kinds
}

// destroy drops every entry. Called once, at disconnect.
func (r *DataRegistry) destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[Kind]any)
}

// DataAs fetches (or lazily creates) the payload for kind and asserts it
// to T. A payload of the wrong type is a wiring bug and yields an error.
func DataAs[T any](r *DataRegistry, kind Kind) (T, error) {
	var zero T
	payload, err := r.GetOrCreate(kind)
	if err != nil {
		return zero, err
	}
	typed, ok := payload.(T)
	if !ok {
		return zero, fmt.Errorf("data kind %q holds %T, not %T", kind, payload, zero)
	}
	return typed, nil
}

// Movement returns the player's movement StateBuffer.
func (r *DataRegistry) Movement() (*StateBuffer, error) {
	return DataAs[*StateBuffer](r, KindMovement)
}
