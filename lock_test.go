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

package lattice

import "testing"

func TestSlotOpenReadWriteTransitions(t *testing.T) {
	s := newSlot("t", 0)
	a, b := newOwner(), newOwner()

	if !s.can(Read) || !s.can(Write) {
		t.Fatalf("open slot should grant both accesses")
	}
	s.acquire(Read, a)
	if s.can(Write) {
		t.Fatalf("write should not be grantable while a reader holds the slot")
	}
	s.acquire(Read, b)
	s.release(Read, a)
	if s.kind != stateRead {
		t.Fatalf("slot should still be Read-held with one reader left")
	}
	s.release(Read, b)
	if s.kind != stateOpen {
		t.Fatalf("slot should return to Open once the last reader releases")
	}
}

func TestSlotWriteExclusion(t *testing.T) {
	s := newSlot("t", 0)
	a, b := newOwner(), newOwner()
	s.acquire(Write, a)

	func() {
		defer func() {
			f, ok := recover().(*Fault)
			if !ok || f.Kind != AccessConflict {
				t.Fatalf("expected AccessConflict fault, got %v", recover())
			}
		}()
		s.acquire(Read, b)
	}()
}

func TestSlotReentrantWriteDeadlockDetected(t *testing.T) {
	s := newSlot("t", 0)
	a := newOwner()
	s.acquire(Write, a)

	defer func() {
		f, ok := recover().(*Fault)
		if !ok || f.Kind != AccessConflict {
			t.Fatalf("expected AccessConflict fault for re-entrant write, got %v", recover())
		}
	}()
	s.acquire(Write, a)
}

func TestSlotPoisonDeniesFutureAccess(t *testing.T) {
	s := newSlot("t", 0)
	a := newOwner()
	s.acquire(Write, a)
	s.poison()

	defer func() {
		f, ok := recover().(*Fault)
		if !ok || f.Kind != PoisonedSlot {
			t.Fatalf("expected PoisonedSlot fault, got %v", recover())
		}
	}()
	s.acquire(Read, newOwner())
}

func TestSlotReleaseMismatchFaults(t *testing.T) {
	s := newSlot("t", 0)
	a := newOwner()
	s.acquire(Read, a)

	defer func() {
		f, ok := recover().(*Fault)
		if !ok || f.Kind != AccessViolation {
			t.Fatalf("expected AccessViolation fault, got %v", recover())
		}
	}()
	s.release(Write, a)
}

func TestWithPanicPoisonsWriteSlot(t *testing.T) {
	u := NewUniverse()
	Add(u, 0)

	func() {
		defer func() { recover() }()
		With[int](u, Write, func(v *int) {
			*v = 1
			panic("boom")
		})
	}()

	defer func() {
		f, ok := recover().(*Fault)
		if !ok || f.Kind != PoisonedSlot {
			t.Fatalf("expected PoisonedSlot after a Write-holding panic, got %v", recover())
		}
	}()
	With[int](u, Read, func(v *int) {})
}

func TestWithPanicDuringReadDoesNotPoison(t *testing.T) {
	u := NewUniverse()
	Add(u, 0)

	func() {
		defer func() { recover() }()
		With[int](u, Read, func(v *int) { panic("boom") })
	}()

	// A Read-holding panic must not poison the slot: only Write panics do.
	With[int](u, Read, func(v *int) {})
}
