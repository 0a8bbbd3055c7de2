// Copyright (C) 2024 The Lattice Authors.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package lattice implements an in-process columnar entity container (a
// "Universe"): typed tables and singleton properties are mutated by
// submitting kernels, functions whose parameter types declare, at
// compile time, exactly which resources they read or write.
package lattice

import (
	"reflect"
	"sync"
)

// Logger receives non-fatal diagnostics. Mirrors the minimal logging
// seam the teacher uses for its caches (one Printf method, nil-safe).
type Logger interface {
	Printf(format string, args ...any)
}

// Option configures a Universe at construction time.
type Option func(*Universe)

// WithLogger attaches a diagnostic logger. Nil (the default) discards
// diagnostics silently.
func WithLogger(l Logger) Option {
	return func(u *Universe) { u.logger = l }
}

// WithCapacityHint preallocates room for n resources in the slot map, to
// avoid rehashing during table registration.
func WithCapacityHint(n int) Option {
	return func(u *Universe) { u.capacityHint = n }
}

// Universe is the container keyed by type tag. Every table header, id
// list, column, tracker and property registered with it lives behind one
// Locked slot in u.slots.
type Universe struct {
	mu    sync.Mutex
	cond  *sync.Cond
	slots map[reflect.Type]*slot

	frozen bool

	logger       Logger
	capacityHint int
}

// NewUniverse constructs an empty, unfrozen Universe.
func NewUniverse(opts ...Option) *Universe {
	u := &Universe{slots: make(map[reflect.Type]*slot)}
	for _, opt := range opts {
		opt(u)
	}
	if u.capacityHint > 0 {
		u.slots = make(map[reflect.Type]*slot, u.capacityHint)
	}
	u.cond = sync.NewCond(&u.mu)
	return u
}

func (u *Universe) logf(format string, args ...any) {
	if u.logger != nil {
		u.logger.Printf(format, args...)
	}
}

// tagOf returns the process-stable type tag for T: the reflect.Type of
// T, which is stable for the lifetime of the process and identical
// across all producers and consumers that name the same Go type.
func tagOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Add registers a new resource of type T under its type tag. Panics
// with AccessConflict if the Universe is frozen or the tag is already
// present.
func Add[T any](u *Universe, value T) {
	u.mu.Lock()
	defer u.mu.Unlock()
	// Slots always store a pointer so that Write access (and any direct
	// mutation performed by a kernel body through a view) is visible
	// across subsequent acquisitions rather than operating on a copy.
	boxed := value
	u.addLocked(tagOf[T](), reflect.TypeOf(value).String(), &boxed)
}

func (u *Universe) addLocked(tag reflect.Type, name string, value any) {
	if u.frozen {
		fault(AccessConflict, name, "Universe is frozen; cannot add new resources")
	}
	if _, ok := u.slots[tag]; ok {
		fault(AccessConflict, name, "resource already registered")
	}
	u.slots[tag] = newSlot(name, value)
}

// Remove deletes the resource registered under T. Fails if the Universe
// is frozen. Blocks until the slot is Open (no outstanding readers or
// writer) before removing it.
func Remove[T any](u *Universe) {
	tag := tagOf[T]()
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.frozen {
		fault(AccessConflict, tag.String(), "Universe is frozen; cannot remove resources")
	}
	s, ok := u.slots[tag]
	if !ok {
		return
	}
	for !s.can(Write) {
		u.cond.Wait()
	}
	delete(u.slots, tag)
}

// Has reports whether a resource of type T is registered.
func Has[T any](u *Universe) bool {
	tag := tagOf[T]()
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.slots[tag]
	return ok
}

// GetOrAdd returns the existing resource of type T, or registers one
// built by zero() if none exists yet. Used by trackers and indexes,
// which are lazily materialized on first registration rather than
// requiring an explicit up-front Add.
func GetOrAdd[T any](u *Universe, zero func() T) {
	tag := tagOf[T]()
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.slots[tag]; ok {
		return
	}
	if u.frozen {
		fault(AccessConflict, tag.String(), "Universe is frozen; cannot add new resources")
	}
	v := zero()
	u.slots[tag] = newSlot(reflect.TypeOf(v).String(), &v)
}

// Freeze disables further structural changes (Add/Remove). It does not
// affect Read/Write access to already-registered resources.
func (u *Universe) Freeze() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.frozen = true
}

// With blocks until T can be granted acc, then invokes f with a pointer
// to the stored value. The map lock is held only while manipulating slot
// state, never while f runs. A deferred release guarantees the slot is
// released (and poisoned, if acc was Write) even if f panics; the panic
// is re-raised afterward.
func With[T any](u *Universe, acc Access, f func(v *T)) {
	tag := tagOf[T]()
	who := newOwner()
	s := u.stage(tag, acc, who)

	release := func(panicked bool) {
		u.mu.Lock()
		if panicked && acc == Write {
			s.poison()
		} else {
			s.release(acc, who)
		}
		u.mu.Unlock()
		u.cond.Broadcast()
	}

	done := false
	defer func() {
		if !done {
			release(true)
		}
	}()

	v := s.contents().(*T)
	f(v)
	done = true
	release(false)
}

// stage waits for and then acquires the slot for tag, returning it with
// the map lock already released.
func (u *Universe) stage(tag reflect.Type, acc Access, who owner) *slot {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, ok := u.slots[tag]
	if !ok {
		fault(ResourceAbsent, tag.String(), "no such resource registered in this Universe")
	}
	for !s.can(acc) && s.kind != statePoison {
		u.cond.Wait()
		// re-fetch in case of concurrent remove (won't happen while held,
		// but Remove can race the wait loop before acquire).
		s, ok = u.slots[tag]
		if !ok {
			fault(ResourceAbsent, tag.String(), "resource was removed while waiting for access")
		}
	}
	s.acquire(acc, who)
	return s
}
