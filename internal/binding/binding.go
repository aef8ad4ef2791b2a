// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package binding exposes tunable detection parameters to the external
// configuration layer without pinning their owners in memory. A binding
// holds a weak reference to the owning object plus a getter/setter
// capability the owner supplied when it opted in; once the owner is
// reclaimed, reads degrade to the cached last-known value and writes
// update only the cache. Liveness is re-resolved on every operation,
// never cached.
package binding

import (
	"fmt"
	"reflect"
	"sync"
	"weak"

	"github.com/wardenhq/warden/internal/errorsink"
	"github.com/wardenhq/warden/internal/metrics"
)

// TypeMismatchError reports a SetRaw value incompatible with the
// binding's declared type. It is surfaced to the caller, not swallowed.
type TypeMismatchError struct {
	Name string
	Want string
	Got  any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("binding %s: cannot convert %T to %s", e.Name, e.Got, e.Want)
}

// AccessFailure reports a capability read or write that panicked. It is
// delivered to the error sink; the caller proceeds with the cache.
type AccessFailure struct {
	Name string
	Op   string // "get" or "set"
	Err  error
}

func (e *AccessFailure) Error() string {
	return fmt.Sprintf("binding %s: %s failed: %v", e.Name, e.Op, e.Err)
}

func (e *AccessFailure) Unwrap() error { return e.Err }

// Value is the untyped view of a binding, used by the admin surface to
// enumerate and edit tunables without knowing their declared types.
type Value interface {
	// Name is the binding's unique name within its group.
	Name() string

	// TypeName is the declared value type, e.g. "float64".
	TypeName() string

	// Raw returns the current value per Get semantics.
	Raw() (any, bool)

	// SetRaw converts and writes a value per SetRaw semantics.
	SetRaw(v any) error
}

// Binding is a named, typed handle onto a tunable value owned by O.
type Binding[O, T any] struct {
	name  string
	owner weak.Pointer[O]
	get   func(*O) T
	set   func(*O, T)
	sink  *errorsink.Sink

	mu    sync.Mutex
	last  T
	known bool
}

// Bind creates a binding onto owner using the getter/setter capability
// the owner exposes. The binding never strongly retains owner; set may
// be nil for read-only tunables.
func Bind[O, T any](name string, sink *errorsink.Sink, owner *O, get func(*O) T, set func(*O, T)) *Binding[O, T] {
	return &Binding[O, T]{
		name:  name,
		owner: weak.Make(owner),
		get:   get,
		set:   set,
		sink:  sink,
	}
}

// Name returns the binding's name.
func (b *Binding[O, T]) Name() string { return b.name }

// TypeName returns the declared value type.
func (b *Binding[O, T]) TypeName() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

// Get returns the bound value. While the owner is live the value is read
// through the capability and the cache refreshed; after the owner has
// been reclaimed the cached last-known value is returned. A capability
// failure is reported to the sink and yields no value for this call,
// leaving the cache untouched.
func (b *Binding[O, T]) Get() (T, bool) {
	owner := b.owner.Value()
	if owner == nil {
		b.mu.Lock()
		defer b.mu.Unlock()
		metrics.BindingReads.WithLabelValues("cached").Inc()
		return b.last, b.known
	}

	v, err := b.read(owner)
	if err != nil {
		metrics.BindingReads.WithLabelValues("failed").Inc()
		b.sink.Report(&AccessFailure{Name: b.name, Op: "get", Err: err})
		var zero T
		return zero, false
	}

	b.mu.Lock()
	b.last = v
	b.known = true
	b.mu.Unlock()
	metrics.BindingReads.WithLabelValues("live").Inc()
	return v, true
}

func (b *Binding[O, T]) read(owner *O) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return b.get(owner), nil
}

// Set updates the last-known value unconditionally and writes through to
// the live owner when it is still reachable. A write-through failure is
// reported to the sink and does not affect the cache update.
func (b *Binding[O, T]) Set(v T) {
	b.mu.Lock()
	b.last = v
	b.known = true
	b.mu.Unlock()
	metrics.BindingWrites.Inc()

	owner := b.owner.Value()
	if owner == nil || b.set == nil {
		return
	}
	if err := b.write(owner, v); err != nil {
		b.sink.Report(&AccessFailure{Name: b.name, Op: "set", Err: err})
	}
}

func (b *Binding[O, T]) write(owner *O, v T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	b.set(owner, v)
	return nil
}

// SetRaw converts v to the declared type and delegates to Set. A value
// that cannot convert yields a TypeMismatchError and leaves the
// last-known value unchanged.
func (b *Binding[O, T]) SetRaw(v any) error {
	typed, err := convert[T](b.name, v)
	if err != nil {
		return err
	}
	b.Set(typed)
	return nil
}

// Raw returns the current value per Get semantics.
func (b *Binding[O, T]) Raw() (any, bool) {
	v, ok := b.Get()
	if !ok {
		return nil, false
	}
	return v, true
}

// convert attempts a direct assertion, then a numeric conversion. JSON
// decoding hands numbers over as float64, so numeric tunables accept any
// numeric source type.
func convert[T any](name string, raw any) (T, error) {
	if v, ok := raw.(T); ok {
		return v, nil
	}

	var zero T
	target := reflect.TypeOf(zero)
	if raw != nil && target != nil {
		rv := reflect.ValueOf(raw)
		if numericKind(rv.Kind()) && numericKind(target.Kind()) && rv.Type().ConvertibleTo(target) {
			return rv.Convert(target).Interface().(T), nil
		}
	}
	return zero, &TypeMismatchError{Name: name, Want: fmt.Sprintf("%T", zero), Got: raw}
}

func numericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
