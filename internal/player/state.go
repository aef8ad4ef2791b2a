// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package player

import (
	"sync/atomic"

	"github.com/wardenhq/warden/internal/metrics"
)

// Snapshot is one epoch of a player's observable behavioral attributes.
// Detectors compare the current and previous snapshots to recognize
// transitions ("sprint just started") rather than absolute states.
type Snapshot struct {
	Sneaking  bool    `json:"sneaking"`
	Sprinting bool    `json:"sprinting"`
	Gliding   bool    `json:"gliding"`
	Flying    bool    `json:"flying"`
	OnGround  bool    `json:"on_ground"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Yaw       float32 `json:"yaw"`
	Pitch     float32 `json:"pitch"`
}

// snapshotPair is the immutable (current, previous) value StateBuffer
// publishes. Readers load the whole pair in one atomic operation, so a
// commit can never be observed half-applied.
type snapshotPair struct {
	current  Snapshot
	previous Snapshot
}

// StateBuffer is the dual-buffered behavioral state of one player.
//
// Mutators rewrite the current snapshot; Commit atomically copies current
// into previous and opens a new mutation epoch. Concurrent mutators from
// same-tier executors race last-writer-wins on individual attributes; that
// race is an accepted property of the tier model (same-tier order is
// undefined), not something this type serializes away. The pair itself is
// always internally consistent.
type StateBuffer struct {
	pair atomic.Pointer[snapshotPair]
}

// NewStateBuffer creates a StateBuffer with zero-valued snapshots.
func NewStateBuffer() *StateBuffer {
	b := &StateBuffer{}
	b.pair.Store(&snapshotPair{})
	return b
}

// Snapshots returns a consistent (current, previous) pair: both values
// belong to the same publication, never a mix of two epochs.
func (b *StateBuffer) Snapshots() (current, previous Snapshot) {
	p := b.pair.Load()
	return p.current, p.previous
}

// Current returns the current snapshot.
func (b *StateBuffer) Current() Snapshot {
	return b.pair.Load().current
}

// Previous returns the snapshot as of the most recent commit.
func (b *StateBuffer) Previous() Snapshot {
	return b.pair.Load().previous
}

// Commit atomically publishes current as the new previous and begins a
// new mutation epoch. Safe to call concurrently with readers and
// mutators; every reader sees either the full pre-commit or the full
// post-commit pair.
func (b *StateBuffer) Commit() {
	for {
		old := b.pair.Load()
		next := &snapshotPair{current: old.current, previous: old.current}
		if b.pair.CompareAndSwap(old, next) {
			metrics.SnapshotCommits.Inc()
			return
		}
	}
}

// update applies fn to a copy of the current snapshot and publishes it.
// The CAS loop keeps the pair consistent under concurrent mutation;
// which concurrent attribute write lands last is unspecified.
func (b *StateBuffer) update(fn func(s *Snapshot)) {
	for {
		old := b.pair.Load()
		next := &snapshotPair{current: old.current, previous: old.previous}
		fn(&next.current)
		if b.pair.CompareAndSwap(old, next) {
			return
		}
	}
}

// SetSneaking updates the sneaking attribute of the current snapshot.
func (b *StateBuffer) SetSneaking(v bool) {
	b.update(func(s *Snapshot) { s.Sneaking = v })
}

// SetSprinting updates the sprinting attribute of the current snapshot.
func (b *StateBuffer) SetSprinting(v bool) {
	b.update(func(s *Snapshot) { s.Sprinting = v })
}

// SetGliding updates the gliding attribute of the current snapshot.
func (b *StateBuffer) SetGliding(v bool) {
	b.update(func(s *Snapshot) { s.Gliding = v })
}

// SetFlying updates the flying attribute of the current snapshot.
func (b *StateBuffer) SetFlying(v bool) {
	b.update(func(s *Snapshot) { s.Flying = v })
}

// SetOnGround updates the on-ground attribute of the current snapshot.
func (b *StateBuffer) SetOnGround(v bool) {
	b.update(func(s *Snapshot) { s.OnGround = v })
}

// SetPosition updates the position of the current snapshot.
func (b *StateBuffer) SetPosition(x, y, z float64) {
	b.update(func(s *Snapshot) {
		s.X, s.Y, s.Z = x, y, z
	})
}

// SetLook updates the look angles of the current snapshot.
func (b *StateBuffer) SetLook(yaw, pitch float32) {
	b.update(func(s *Snapshot) {
		s.Yaw, s.Pitch = yaw, pitch
	})
}
