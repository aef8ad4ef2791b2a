// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package errorsink provides the process-wide capture point for failures
// that have no caller to propagate to: executor faults caught at the
// dispatch boundary, binding access failures, and anything else the
// pipeline must survive. The handler is replaceable at runtime so the
// operator decides how failures are rendered or persisted.
package errorsink

import (
	"fmt"
	"sync"

	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/metrics"
)

// Handler consumes a reported error. It runs synchronously on whichever
// goroutine called Report.
type Handler func(err error)

// Sink holds the single current error handler.
type Sink struct {
	mu      sync.RWMutex
	handler Handler
}

// New creates a Sink with the default handler, which logs at error level.
func New() *Sink {
	return &Sink{handler: defaultHandler}
}

func defaultHandler(err error) {
	logging.Err(err).Msg("unhandled failure")
}

// SetHandler replaces the current handler. A nil handler restores the
// default logging handler.
func (s *Sink) SetHandler(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h == nil {
		h = defaultHandler
	}
	s.handler = h
}

// Handler returns the current handler.
func (s *Sink) Handler() Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

// Report delivers err to the current handler. A nil error is ignored.
// The handler invocation is panic-isolated: a misbehaving handler must
// not crash the dispatch loop that reported the error.
func (s *Sink) Report(err error) {
	if err == nil {
		return
	}

	metrics.ErrorsReported.Inc()

	h := s.Handler()
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Str("panic", fmt.Sprint(r)).
				AnErr("reported", err).
				Msg("error handler panicked")
		}
	}()
	h(err)
}
