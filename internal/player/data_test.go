// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package player

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
)

func newTestPlayer(t *testing.T, kinds *KindSet) *Player {
	t.Helper()
	reg := NewRegistry(kinds)
	return reg.Connect(uuid.New(), "tester", ModeSurvival)
}

func TestGetOrCreateLazySingleton(t *testing.T) {
	var constructions atomic.Int32
	kinds := NewKindSet()
	kinds.Register("counter", func(*Player) any {
		constructions.Add(1)
		return new(int)
	})
	p := newTestPlayer(t, kinds)

	if got := constructions.Load(); got != 0 {
		t.Fatalf("factory ran %d times before first access", got)
	}

	first, err := p.Data().GetOrCreate("counter")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	second, err := p.Data().GetOrCreate("counter")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if first != second {
		t.Error("repeated access returned distinct payloads")
	}
	if got := constructions.Load(); got != 1 {
		t.Errorf("factory ran %d times, want 1", got)
	}
}

func TestGetOrCreateConcurrentFirstAccess(t *testing.T) {
	var constructions atomic.Int32
	kinds := NewKindSet()
	kinds.Register("shared", func(*Player) any {
		constructions.Add(1)
		return &struct{ n int }{}
	})
	p := newTestPlayer(t, kinds)

	const goroutines = 64
	results := make([]any, goroutines)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			payload, err := p.Data().GetOrCreate("shared")
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			results[i] = payload
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d observed a different payload instance", i)
		}
	}
	if got := constructions.Load(); got != 1 {
		t.Errorf("factory ran %d times under contention, want 1", got)
	}
}

func TestGetOrCreateUnknownKind(t *testing.T) {
	p := newTestPlayer(t, DefaultKinds())
	if _, err := p.Data().GetOrCreate("nope"); err == nil {
		t.Error("GetOrCreate accepted an unregistered kind")
	}
	if _, ok := p.Data().Get("nope"); ok {
		t.Error("Get reported a payload for an unregistered kind")
	}
}

func TestKindSetRegisterIdempotent(t *testing.T) {
	kinds := NewKindSet()
	kinds.Register("k", func(*Player) any { return "first" })
	kinds.Register("k", func(*Player) any { return "second" })

	p := newTestPlayer(t, kinds)
	payload, err := p.Data().GetOrCreate("k")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if payload != "first" {
		t.Errorf("payload = %v, want the first registered factory to win", payload)
	}
}

func TestDataAs(t *testing.T) {
	p := newTestPlayer(t, DefaultKinds())

	buf, err := DataAs[*StateBuffer](p.Data(), KindMovement)
	if err != nil {
		t.Fatalf("DataAs: %v", err)
	}
	if buf == nil {
		t.Fatal("DataAs returned nil buffer")
	}

	if _, err := DataAs[*int](p.Data(), KindMovement); err == nil {
		t.Error("DataAs accepted a wrong payload type")
	}
}

func TestMovementConvenience(t *testing.T) {
	p := newTestPlayer(t, DefaultKinds())
	buf, err := p.Data().Movement()
	if err != nil {
		t.Fatalf("Movement: %v", err)
	}
	again, err := p.Data().Movement()
	if err != nil {
		t.Fatalf("Movement: %v", err)
	}
	if buf != again {
		t.Error("Movement returned distinct buffers")
	}
}
