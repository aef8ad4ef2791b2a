// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wardenhq/warden/internal/errorsink"
	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/metrics"
	"github.com/wardenhq/warden/internal/packet"
	"github.com/wardenhq/warden/internal/player"
)

// ErrDuplicateIdentifier is returned by Register when another executor
// with the same identifier already exists for the packet kind. The first
// registration stays active.
var ErrDuplicateIdentifier = errors.New("duplicate executor identifier")

// ExecutorFault wraps a failure caught at the dispatch boundary: a panic
// or returned error from CanRun, Execute, or OnStop. Faults go to the
// error sink; they never propagate to sibling executors or the caller.
type ExecutorFault struct {
	Identifier string
	Kind       packet.Kind
	Phase      string // "can_run", "execute", "on_stop"
	Err        error
}

func (f *ExecutorFault) Error() string {
	return fmt.Sprintf("executor %s (%s, %s): %v", f.Identifier, f.Kind, f.Phase, f.Err)
}

func (f *ExecutorFault) Unwrap() error { return f.Err }

// Dispatcher owns the registered executors and drives each incoming
// packet through the applicable subset in tier order.
type Dispatcher struct {
	sink *errorsink.Sink
	pool *Pool

	mu sync.RWMutex
	// byKind holds, per packet kind, one executor slice per tier plus
	// the identifier set guarding registration uniqueness.
	byKind map[packet.Kind]*kindRegistrations
}

type kindRegistrations struct {
	tiers [tierCount][]Executor
	ids   map[string]struct{}
}

// New creates a Dispatcher reporting faults to sink and scheduling
// asynchronous work onto pool.
func New(sink *errorsink.Sink, pool *Pool) *Dispatcher {
	return &Dispatcher{
		sink:   sink,
		pool:   pool,
		byKind: make(map[packet.Kind]*kindRegistrations),
	}
}

// Register adds an executor under its declared packet kind and tier.
// A duplicate identifier within the kind fails with
// ErrDuplicateIdentifier and leaves existing registrations untouched.
func (d *Dispatcher) Register(exec Executor) error {
	kind := exec.PacketKind()
	if !packet.ValidKind(kind) {
		return fmt.Errorf("executor %s: %w", exec.Identifier(), &packet.UnknownKindError{Kind: kind})
	}
	tier := exec.Tier()
	if tier < TierPre || tier >= tierCount {
		return fmt.Errorf("executor %s: invalid tier %d", exec.Identifier(), tier)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	regs, ok := d.byKind[kind]
	if !ok {
		regs = &kindRegistrations{ids: make(map[string]struct{})}
		d.byKind[kind] = regs
	}
	if _, exists := regs.ids[exec.Identifier()]; exists {
		return fmt.Errorf("%w: %q for kind %s", ErrDuplicateIdentifier, exec.Identifier(), kind)
	}

	regs.ids[exec.Identifier()] = struct{}{}
	regs.tiers[tier] = append(regs.tiers[tier], exec)

	logging.Debug().
		Str("executor", exec.Identifier()).
		Str("kind", string(kind)).
		Str("tier", tier.String()).
		Bool("haltable", exec.Haltable()).
		Msg("registered executor")
	return nil
}

// Unregister removes the executor with the given identifier from the
// kind's registration set. Removal is idempotent.
func (d *Dispatcher) Unregister(identifier string, kind packet.Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	regs, ok := d.byKind[kind]
	if !ok {
		return
	}
	if _, exists := regs.ids[identifier]; !exists {
		return
	}
	delete(regs.ids, identifier)

	for t := range regs.tiers {
		executors := regs.tiers[t]
		for i, exec := range executors {
			if exec.Identifier() == identifier {
				regs.tiers[t] = append(executors[:i:i], executors[i+1:]...)
				break
			}
		}
	}
}

// Submit schedules a dispatch onto the worker pool. Packets for
// different players, and successive packets for the same player, may be
// dispatched concurrently; detectors rely on snapshot-commit atomicity,
// not per-player serialization.
func (d *Dispatcher) Submit(p *player.Player, pkt packet.Packet) {
	d.pool.Submit(func() {
		d.Dispatch(p, pkt)
	})
}

// Dispatch drives pkt through every eligible executor registered for its
// kind, in ascending tier order. Gating predicates are evaluated first;
// a haltable executor returning Stop terminates the dispatch. Faults are
// isolated per executor and forwarded to the error sink.
func (d *Dispatcher) Dispatch(p *player.Player, pkt packet.Packet) {
	kind := pkt.Kind()

	d.mu.RLock()
	regs, ok := d.byKind[kind]
	var tiers [tierCount][]Executor
	if ok {
		for t := range regs.tiers {
			if len(regs.tiers[t]) > 0 {
				tiers[t] = append([]Executor(nil), regs.tiers[t]...)
			}
		}
	}
	d.mu.RUnlock()

	if !ok {
		return
	}

	start := time.Now()
	metrics.DispatchesTotal.WithLabelValues(string(kind)).Inc()
	defer func() {
		metrics.DispatchDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}()

	for _, tier := range tiers {
		for _, exec := range tier {
			if gated, ok := exec.(Gated); ok {
				eligible, err := d.runGate(gated, exec, p, pkt)
				if err != nil {
					d.fault(exec, "can_run", err)
					continue
				}
				if !eligible {
					continue
				}
			}

			result, err := d.runExecute(exec, p, pkt)
			if err != nil {
				d.fault(exec, "execute", err)
				continue
			}

			if result == Stop && exec.Haltable() {
				metrics.DispatchHalts.WithLabelValues(exec.Identifier()).Inc()
				return
			}
		}
	}
}

// runGate evaluates a gating predicate with panic isolation.
func (d *Dispatcher) runGate(gated Gated, exec Executor, p *player.Player, pkt packet.Packet) (eligible bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			eligible = false
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return gated.CanRun(p, pkt), nil
}

// runExecute invokes an executor with panic isolation.
func (d *Dispatcher) runExecute(exec Executor, p *player.Player, pkt packet.Packet) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = Continue
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return exec.Execute(p, pkt)
}

// CancelAll invokes OnStop on every executor registered for pkt's kind.
// Hooks without cancellable state surface ErrStopNotSupported through
// the sink's handler only when debugging; they are not faults.
func (d *Dispatcher) CancelAll(p *player.Player, pkt packet.Packet) {
	kind := pkt.Kind()

	d.mu.RLock()
	regs, ok := d.byKind[kind]
	var executors []Executor
	if ok {
		for t := range regs.tiers {
			executors = append(executors, regs.tiers[t]...)
		}
	}
	d.mu.RUnlock()

	for _, exec := range executors {
		err := d.runOnStop(exec, p, pkt)
		switch {
		case err == nil:
		case errors.Is(err, ErrStopNotSupported):
			logging.Debug().Str("executor", exec.Identifier()).Msg("on_stop not applicable")
		default:
			d.fault(exec, "on_stop", err)
		}
	}
}

func (d *Dispatcher) runOnStop(exec Executor, p *player.Player, pkt packet.Packet) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return exec.OnStop(p, pkt)
}

func (d *Dispatcher) fault(exec Executor, phase string, err error) {
	metrics.ExecutorFaults.WithLabelValues(exec.Identifier()).Inc()
	d.sink.Report(&ExecutorFault{
		Identifier: exec.Identifier(),
		Kind:       exec.PacketKind(),
		Phase:      phase,
		Err:        err,
	})
}

// Registered returns the identifiers registered for kind, tier order
// first. Intended for the admin surface and tests.
func (d *Dispatcher) Registered(kind packet.Kind) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	regs, ok := d.byKind[kind]
	if !ok {
		return nil
	}
	var ids []string
	for t := range regs.tiers {
		for _, exec := range regs.tiers[t] {
			ids = append(ids, exec.Identifier())
		}
	}
	return ids
}

// Serve runs the dispatcher under supervision: it blocks until the
// context is canceled, then stops the worker pool.
func (d *Dispatcher) Serve(ctx context.Context) error {
	logging.Info().Msg("dispatch pipeline started")
	<-ctx.Done()
	logging.Info().Msg("dispatch pipeline shutting down")
	d.pool.Stop()
	return ctx.Err()
}
