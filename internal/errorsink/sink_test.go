// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package errorsink

import (
	"errors"
	"sync"
	"testing"
)

func TestReportDeliversToHandler(t *testing.T) {
	sink := New()

	var mu sync.Mutex
	var got []error
	sink.SetHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, err)
	})

	want := errors.New("detector wobbled")
	sink.Report(want)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || !errors.Is(got[0], want) {
		t.Errorf("handler received %v, want [%v]", got, want)
	}
}

func TestReportIgnoresNil(t *testing.T) {
	sink := New()

	calls := 0
	sink.SetHandler(func(error) { calls++ })

	sink.Report(nil)
	if calls != 0 {
		t.Errorf("handler invoked %d times for nil error", calls)
	}
}

func TestSetHandlerReplaces(t *testing.T) {
	sink := New()

	var first, second int
	sink.SetHandler(func(error) { first++ })
	sink.Report(errors.New("one"))

	sink.SetHandler(func(error) { second++ })
	sink.Report(errors.New("two"))

	if first != 1 || second != 1 {
		t.Errorf("deliveries = (%d, %d), want (1, 1)", first, second)
	}
}

func TestSetHandlerNilRestoresDefault(t *testing.T) {
	sink := New()

	sink.SetHandler(func(error) {})
	sink.SetHandler(nil)

	// The default handler only logs; reporting through it must not panic.
	sink.Report(errors.New("back to default"))
}

func TestReportSurvivesHandlerPanic(t *testing.T) {
	sink := New()
	sink.SetHandler(func(error) {
		panic("handler exploded")
	})

	// Must not propagate to the reporter.
	sink.Report(errors.New("trigger"))

	// The sink stays usable with the same handler still installed.
	sink.Report(errors.New("again"))
}

func TestReportConcurrent(t *testing.T) {
	sink := New()

	var mu sync.Mutex
	count := 0
	sink.SetHandler(func(error) {
		mu.Lock()
		defer mu.Unlock()
		count++
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				sink.Report(errors.New("burst"))
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if count != 800 {
		t.Errorf("handler ran %d times, want 800", count)
	}
}
