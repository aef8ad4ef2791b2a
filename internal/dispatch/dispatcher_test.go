// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/internal/errorsink"
	"github.com/wardenhq/warden/internal/packet"
	"github.com/wardenhq/warden/internal/player"
)

// recorder collects executor invocations in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, id)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// stubExecutor is a configurable executor for pipeline tests.
type stubExecutor struct {
	Base
	rec    *recorder
	result Result
	err    error
	panics bool
}

func newStub(id string, kind packet.Kind, tier Tier, haltable bool, rec *recorder) *stubExecutor {
	return &stubExecutor{
		Base: NewBase(id, kind, tier, haltable),
		rec:  rec,
	}
}

func (s *stubExecutor) Execute(*player.Player, packet.Packet) (Result, error) {
	if s.rec != nil {
		s.rec.record(s.Identifier())
	}
	if s.panics {
		panic("stub executor exploded")
	}
	return s.result, s.err
}

// gatedStub is a stubExecutor with a fixed gate.
type gatedStub struct {
	*stubExecutor
	eligible  bool
	gateCalls int
	gatePanic bool
	mu        sync.Mutex
}

func (g *gatedStub) CanRun(*player.Player, packet.Packet) bool {
	g.mu.Lock()
	g.gateCalls++
	g.mu.Unlock()
	if g.gatePanic {
		panic("gate exploded")
	}
	return g.eligible
}

// collectingSink returns a sink whose reports accumulate into the slice.
func collectingSink(t *testing.T) (*errorsink.Sink, func() []error) {
	t.Helper()
	var mu sync.Mutex
	var reported []error
	sink := errorsink.New()
	sink.SetHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, err)
	})
	return sink, func() []error {
		mu.Lock()
		defer mu.Unlock()
		return append([]error(nil), reported...)
	}
}

func testPlayer() *player.Player {
	reg := player.NewRegistry(player.DefaultKinds())
	return reg.Connect(uuid.New(), "tester", player.ModeSurvival)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, func() []error) {
	t.Helper()
	sink, reported := collectingSink(t)
	pool := NewPool(0)
	t.Cleanup(pool.Stop)
	return New(sink, pool), reported
}

func indexOf(calls []string, id string) int {
	for i, c := range calls {
		if c == id {
			return i
		}
	}
	return -1
}

func TestDispatchTierOrdering(t *testing.T) {
	d, _ := newTestDispatcher(t)
	rec := &recorder{}

	// Registered deliberately out of tier order.
	for _, exec := range []Executor{
		newStub("post-a", packet.KindFlying, TierPost, false, rec),
		newStub("pre-a", packet.KindFlying, TierPre, false, rec),
		newStub("p2-a", packet.KindFlying, TierProcessTwo, false, rec),
		newStub("p1-a", packet.KindFlying, TierProcessOne, false, rec),
		newStub("p1-b", packet.KindFlying, TierProcessOne, false, rec),
	} {
		if err := d.Register(exec); err != nil {
			t.Fatalf("Register(%s): %v", exec.Identifier(), err)
		}
	}

	for i := 0; i < 5; i++ {
		rec.mu.Lock()
		rec.calls = nil
		rec.mu.Unlock()

		d.Dispatch(testPlayer(), packet.Flying{})

		calls := rec.snapshot()
		if len(calls) != 5 {
			t.Fatalf("dispatch %d: got %d calls, want 5: %v", i, len(calls), calls)
		}
		pre := indexOf(calls, "pre-a")
		p1a := indexOf(calls, "p1-a")
		p1b := indexOf(calls, "p1-b")
		p2 := indexOf(calls, "p2-a")
		post := indexOf(calls, "post-a")
		if pre > p1a || pre > p1b {
			t.Errorf("dispatch %d: pre tier ran after process_1: %v", i, calls)
		}
		if p1a > p2 || p1b > p2 {
			t.Errorf("dispatch %d: process_1 ran after process_2: %v", i, calls)
		}
		if p2 > post {
			t.Errorf("dispatch %d: process_2 ran after post: %v", i, calls)
		}
	}
}

func TestDispatchHalt(t *testing.T) {
	t.Run("haltable executor stops later tiers", func(t *testing.T) {
		d, _ := newTestDispatcher(t)
		rec := &recorder{}

		halter := newStub("halter", packet.KindFlying, TierPre, true, rec)
		halter.result = Stop
		later := newStub("later", packet.KindFlying, TierProcessOne, false, rec)

		for _, exec := range []Executor{halter, later} {
			if err := d.Register(exec); err != nil {
				t.Fatalf("Register: %v", err)
			}
		}

		d.Dispatch(testPlayer(), packet.Flying{})

		calls := rec.snapshot()
		if indexOf(calls, "later") != -1 {
			t.Errorf("later tier ran after halt: %v", calls)
		}
	})

	t.Run("stop from non-haltable executor is ignored", func(t *testing.T) {
		d, _ := newTestDispatcher(t)
		rec := &recorder{}

		stopper := newStub("stopper", packet.KindFlying, TierPre, false, rec)
		stopper.result = Stop
		later := newStub("later", packet.KindFlying, TierPost, false, rec)

		for _, exec := range []Executor{stopper, later} {
			if err := d.Register(exec); err != nil {
				t.Fatalf("Register: %v", err)
			}
		}

		d.Dispatch(testPlayer(), packet.Flying{})

		if indexOf(rec.snapshot(), "later") == -1 {
			t.Error("later tier skipped despite non-haltable stop")
		}
	})
}

func TestRegisterDuplicateIdentifier(t *testing.T) {
	d, _ := newTestDispatcher(t)
	rec := &recorder{}

	first := newStub("dup", packet.KindFlying, TierPre, false, rec)
	if err := d.Register(first); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	second := newStub("dup", packet.KindFlying, TierPost, false, rec)
	err := d.Register(second)
	if !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("second Register: got %v, want ErrDuplicateIdentifier", err)
	}

	// Same identifier on a different kind is fine.
	other := newStub("dup", packet.KindAbilities, TierPre, false, rec)
	if err := d.Register(other); err != nil {
		t.Fatalf("Register on other kind: %v", err)
	}

	// The first registration stays active.
	d.Dispatch(testPlayer(), packet.Flying{})
	if got := rec.snapshot(); len(got) != 1 || got[0] != "dup" {
		t.Errorf("dispatch after duplicate: calls = %v, want [dup]", got)
	}
}

func TestUnregisterIdempotent(t *testing.T) {
	d, _ := newTestDispatcher(t)
	rec := &recorder{}

	if err := d.Register(newStub("gone", packet.KindFlying, TierPre, false, rec)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	d.Unregister("gone", packet.KindFlying)
	d.Unregister("gone", packet.KindFlying)
	d.Unregister("never-existed", packet.KindFlying)
	d.Unregister("gone", packet.KindVelocity)

	d.Dispatch(testPlayer(), packet.Flying{})
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("unregistered executor still ran: %v", got)
	}

	// Re-registration under the removed identifier works.
	if err := d.Register(newStub("gone", packet.KindFlying, TierPre, false, rec)); err != nil {
		t.Errorf("Register after Unregister: %v", err)
	}
}

func TestGatedExecutorNeverRunsWhenIneligible(t *testing.T) {
	d, _ := newTestDispatcher(t)
	rec := &recorder{}

	gated := &gatedStub{
		stubExecutor: newStub("gated", packet.KindFlying, TierPre, false, rec),
		eligible:     false,
	}
	if err := d.Register(gated); err != nil {
		t.Fatalf("Register: %v", err)
	}

	p := testPlayer()
	for i := 0; i < 10; i++ {
		d.Dispatch(p, packet.Flying{})
	}

	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("ineligible executor executed %d times", len(got))
	}
	gated.mu.Lock()
	defer gated.mu.Unlock()
	if gated.gateCalls != 10 {
		t.Errorf("gate evaluated %d times, want 10", gated.gateCalls)
	}
}

func TestExecutorFaultIsolation(t *testing.T) {
	t.Run("panic in execute", func(t *testing.T) {
		d, reported := newTestDispatcher(t)
		rec := &recorder{}

		faulty := newStub("faulty", packet.KindFlying, TierPre, false, rec)
		faulty.panics = true
		sibling := newStub("sibling", packet.KindFlying, TierPre, false, rec)
		later := newStub("later", packet.KindFlying, TierPost, false, rec)

		for _, exec := range []Executor{faulty, sibling, later} {
			if err := d.Register(exec); err != nil {
				t.Fatalf("Register: %v", err)
			}
		}

		d.Dispatch(testPlayer(), packet.Flying{})

		calls := rec.snapshot()
		if indexOf(calls, "sibling") == -1 {
			t.Error("same-tier sibling did not run after fault")
		}
		if indexOf(calls, "later") == -1 {
			t.Error("later tier did not run after fault")
		}

		errs := reported()
		if len(errs) != 1 {
			t.Fatalf("sink received %d errors, want exactly 1: %v", len(errs), errs)
		}
		var fault *ExecutorFault
		if !errors.As(errs[0], &fault) {
			t.Fatalf("sink received %T, want *ExecutorFault", errs[0])
		}
		if fault.Identifier != "faulty" || fault.Phase != "execute" {
			t.Errorf("fault = %+v, want identifier=faulty phase=execute", fault)
		}
	})

	t.Run("returned error", func(t *testing.T) {
		d, reported := newTestDispatcher(t)
		rec := &recorder{}

		failing := newStub("failing", packet.KindFlying, TierPre, false, rec)
		failing.err = fmt.Errorf("state unavailable")
		sibling := newStub("sibling", packet.KindFlying, TierPre, false, rec)

		for _, exec := range []Executor{failing, sibling} {
			if err := d.Register(exec); err != nil {
				t.Fatalf("Register: %v", err)
			}
		}

		d.Dispatch(testPlayer(), packet.Flying{})

		if indexOf(rec.snapshot(), "sibling") == -1 {
			t.Error("sibling did not run after returned error")
		}
		if errs := reported(); len(errs) != 1 {
			t.Errorf("sink received %d errors, want 1", len(errs))
		}
	})

	t.Run("panic in gate skips executor only", func(t *testing.T) {
		d, reported := newTestDispatcher(t)
		rec := &recorder{}

		gated := &gatedStub{
			stubExecutor: newStub("gate-panics", packet.KindFlying, TierPre, false, rec),
			gatePanic:    true,
		}
		sibling := newStub("sibling", packet.KindFlying, TierPre, false, rec)

		for _, exec := range []Executor{gated, sibling} {
			if err := d.Register(exec); err != nil {
				t.Fatalf("Register: %v", err)
			}
		}

		d.Dispatch(testPlayer(), packet.Flying{})

		calls := rec.snapshot()
		if indexOf(calls, "gate-panics") != -1 {
			t.Error("executor ran despite gate panic")
		}
		if indexOf(calls, "sibling") == -1 {
			t.Error("sibling did not run after gate panic")
		}

		errs := reported()
		if len(errs) != 1 {
			t.Fatalf("sink received %d errors, want 1", len(errs))
		}
		var fault *ExecutorFault
		if !errors.As(errs[0], &fault) || fault.Phase != "can_run" {
			t.Errorf("fault = %v, want phase=can_run", errs[0])
		}
	})
}

func TestCancelAll(t *testing.T) {
	d, reported := newTestDispatcher(t)
	rec := &recorder{}

	// Base's OnStop reports no cancellable state; that is not a fault.
	if err := d.Register(newStub("plain", packet.KindFlying, TierPre, false, rec)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	d.CancelAll(testPlayer(), packet.Flying{})

	if errs := reported(); len(errs) != 0 {
		t.Errorf("ErrStopNotSupported was reported as a fault: %v", errs)
	}
}

func TestOnStopNotSupported(t *testing.T) {
	base := NewBase("plain", packet.KindFlying, TierPre, false)
	err := base.OnStop(nil, nil)
	if !errors.Is(err, ErrStopNotSupported) {
		t.Fatalf("OnStop = %v, want ErrStopNotSupported", err)
	}
}

func TestConcurrentDispatch(t *testing.T) {
	d, reported := newTestDispatcher(t)
	rec := &recorder{}

	if err := d.Register(newStub("worker", packet.KindFlying, TierPre, false, rec)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	p := testPlayer()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch(p, packet.Flying{})
		}()
	}
	wg.Wait()

	if got := len(rec.snapshot()); got != 32 {
		t.Errorf("executed %d times, want 32", got)
	}
	if errs := reported(); len(errs) != 0 {
		t.Errorf("unexpected faults: %v", errs)
	}
}
