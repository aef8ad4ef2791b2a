// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package binding

import (
	"fmt"
	"sync"
)

// Group is a named collection of bindings the admin surface enumerates.
// Components add their tunables during wiring.
type Group struct {
	mu     sync.RWMutex
	values map[string]Value
	order  []string
}

// NewGroup creates an empty Group.
func NewGroup() *Group {
	return &Group{values: make(map[string]Value)}
}

// Add registers a binding under its name. Duplicate names fail; the
// first binding stays.
func (g *Group) Add(v Value) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.values[v.Name()]; exists {
		return fmt.Errorf("binding %q already registered", v.Name())
	}
	g.values[v.Name()] = v
	g.order = append(g.order, v.Name())
	return nil
}

// Get returns the binding registered under name.
func (g *Group) Get(name string) (Value, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.values[name]
	return v, ok
}

// List returns all bindings in registration order.
func (g *Group) List() []Value {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Value, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.values[name])
	}
	return out
}
