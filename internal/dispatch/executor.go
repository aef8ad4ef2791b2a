// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package dispatch routes decoded packets through the registered
// executor pipeline: deterministic tier ordering, optional gating,
// optional halting, and per-executor fault isolation. A failing or slow
// executor degrades only the signal it produces, never its siblings.
package dispatch

import (
	"errors"
	"fmt"

	"github.com/wardenhq/warden/internal/packet"
	"github.com/wardenhq/warden/internal/player"
)

// Tier is a coarse ordered priority bucket. Cross-tier order is total;
// executors within a tier have no defined relative order and must not
// depend on one.
type Tier int

const (
	TierPre Tier = iota
	TierProcessOne
	TierProcessTwo
	TierPost

	tierCount
)

// Tiers returns all tiers in ascending dispatch order.
func Tiers() []Tier {
	return []Tier{TierPre, TierProcessOne, TierProcessTwo, TierPost}
}

func (t Tier) String() string {
	switch t {
	case TierPre:
		return "pre"
	case TierProcessOne:
		return "process_1"
	case TierProcessTwo:
		return "process_2"
	case TierPost:
		return "post"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Result is an executor's verdict on further propagation of the packet.
type Result int

const (
	// Continue lets the dispatch proceed to remaining executors.
	Continue Result = iota

	// Stop terminates the dispatch, provided the executor is haltable.
	Stop
)

// ErrStopNotSupported is returned by OnStop when the executor has no
// in-progress state to cancel. Returning it keeps unimplemented hooks
// visible instead of silently succeeding.
var ErrStopNotSupported = errors.New("executor has no cancellable state")

// Executor is a named, prioritized unit of detection work bound to one
// packet kind. Execute must be non-blocking; an executor that needs to
// wait on another subsystem must do so asynchronously.
type Executor interface {
	// Identifier is unique within the executor's packet kind.
	Identifier() string

	// PacketKind is the single kind this executor receives.
	PacketKind() packet.Kind

	// Tier is the executor's priority bucket.
	Tier() Tier

	// Haltable reports whether a Stop result from this executor
	// terminates the dispatch.
	Haltable() bool

	// Execute reads or mutates the player's data registry entries and
	// decides whether propagation continues.
	Execute(p *player.Player, pkt packet.Packet) (Result, error)

	// OnStop is invoked when an owning teardown path cancels rather
	// than completes. Executors without an in-progress state return
	// ErrStopNotSupported.
	OnStop(p *player.Player, pkt packet.Packet) error
}

// Gated is implemented by executors with a runtime precondition. CanRun
// is evaluated before Execute; it must be cheap and side-effect-free.
type Gated interface {
	CanRun(p *player.Player, pkt packet.Packet) bool
}

// Base carries the registration record shared by all executors. Embed it
// and implement Execute (and CanRun where gating applies).
type Base struct {
	identifier string
	kind       packet.Kind
	tier       Tier
	haltable   bool
}

// NewBase creates the registration record for an executor.
func NewBase(identifier string, kind packet.Kind, tier Tier, haltable bool) Base {
	return Base{identifier: identifier, kind: kind, tier: tier, haltable: haltable}
}

func (b Base) Identifier() string      { return b.identifier }
func (b Base) PacketKind() packet.Kind { return b.kind }
func (b Base) Tier() Tier              { return b.tier }
func (b Base) Haltable() bool          { return b.haltable }

// OnStop reports that the executor has nothing to cancel. Executors with
// in-progress state override this.
func (b Base) OnStop(*player.Player, packet.Packet) error {
	return fmt.Errorf("%s: %w", b.identifier, ErrStopNotSupported)
}
