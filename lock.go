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

import (
	"fmt"

	"github.com/google/uuid"
)

// Access is the kind of hold a kernel parameter wants on a resource.
type Access int

const (
	// Read grants a shared hold; any number of readers may coexist.
	Read Access = iota
	// Write grants an exclusive hold.
	Write
)

func (a Access) String() string {
	if a == Write {
		return "write"
	}
	return "read"
}

// FaultKind classifies a programmer error raised by the engine. Every
// case here is unrecoverable by design: a well-formed kernel never
// triggers one.
type FaultKind int

const (
	ResourceAbsent FaultKind = iota
	AccessConflict
	AccessViolation
	DisorderedEdit
	OOBId
	FlushInvariant
	PoisonedSlot
	TypeMismatch
)

func (k FaultKind) String() string {
	switch k {
	case ResourceAbsent:
		return "ResourceAbsent"
	case AccessConflict:
		return "AccessConflict"
	case AccessViolation:
		return "AccessViolation"
	case DisorderedEdit:
		return "DisorderedEdit"
	case OOBId:
		return "OOBId"
	case FlushInvariant:
		return "FlushInvariant"
	case PoisonedSlot:
		return "PoisonedSlot"
	case TypeMismatch:
		return "TypeMismatch"
	default:
		return "Unknown"
	}
}

// Fault is the value every engine-level panic carries. It implements
// error so `recover().(error)` keeps working for callers that don't
// care about the structured fields.
type Fault struct {
	Kind     FaultKind
	Resource string // name of the offending type tag, if any
	Detail   string
}

func (f *Fault) Error() string {
	if f.Resource == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
	}
	return fmt.Sprintf("%s(%s): %s", f.Kind, f.Resource, f.Detail)
}

func fault(kind FaultKind, resource, format string, args ...any) {
	panic(&Fault{Kind: kind, Resource: resource, Detail: fmt.Sprintf(format, args...)})
}

// Raise panics with a *Fault of the given kind, for use by packages
// layered on top of lattice (e.g. table) that need to signal the same
// programmer-error taxonomy described in spec.md §7.
func Raise(kind FaultKind, resource, format string, args ...any) {
	fault(kind, resource, format, args...)
}

// owner identifies the logical unit of work holding a Write slot. It
// replaces an OS thread id (see SPEC_FULL.md, "Kernel identity") since
// goroutines are not pinned to OS threads.
type owner = uuid.UUID

func newOwner() owner { return uuid.New() }

// stateKind is the Locked-slot state machine of SPEC_FULL.md / spec.md §3.
type stateKind int

const (
	stateOpen stateKind = iota
	stateRead
	stateWrite
	statePoison
)

// slot wraps one heap-owned value plus its read/write state. Every
// acquire is paired with a release, including on panic: see With and run.
type slot struct {
	name  string // type tag name, for diagnostics
	value any

	kind   stateKind
	nread  int   // valid when kind == stateRead; count is nread+1 readers
	writer owner // valid when kind == stateWrite
}

func newSlot(name string, value any) *slot {
	return &slot{name: name, value: value, kind: stateOpen}
}

// can reports whether access could be granted right now without blocking.
func (s *slot) can(acc Access) bool {
	switch s.kind {
	case stateOpen:
		return true
	case stateRead:
		return acc == Read
	case stateWrite:
		return false
	case statePoison:
		return false
	default:
		return false
	}
}

// acquire promotes the slot's state. Panics on any contradiction: a
// writer colliding with anything, a same-owner write re-entry (deadlock),
// or a poisoned slot.
func (s *slot) acquire(acc Access, who owner) {
	switch s.kind {
	case statePoison:
		fault(PoisonedSlot, s.name, "slot was poisoned by an earlier panic")
	case stateOpen:
		if acc == Read {
			s.kind = stateRead
			s.nread = 0
		} else {
			s.kind = stateWrite
			s.writer = who
		}
	case stateRead:
		if acc != Read {
			fault(AccessConflict, s.name, "write requested while %d reader(s) hold the slot", s.nread+1)
		}
		s.nread++
	case stateWrite:
		if s.writer == who {
			fault(AccessConflict, s.name, "thread deadlock: re-entrant acquire of a Write slot already held by this kernel invocation")
		}
		fault(AccessConflict, s.name, "requested while a writer holds the slot")
	default:
		fault(AccessConflict, s.name, "unknown slot state")
	}
}

// release demotes the slot's state. Panics on mismatched release
// (releasing Write when Read was held, etc). A poisoned slot silently
// absorbs any release, since the holder is unwinding.
func (s *slot) release(acc Access, who owner) {
	switch s.kind {
	case statePoison:
		return
	case stateRead:
		if acc != Read {
			fault(AccessViolation, s.name, "released Write but slot was Read-held")
		}
		if s.nread == 0 {
			s.kind = stateOpen
		} else {
			s.nread--
		}
	case stateWrite:
		if acc != Write {
			fault(AccessViolation, s.name, "released Read but slot was Write-held")
		}
		if s.writer != who {
			fault(AccessViolation, s.name, "released by a different owner than the one that acquired it")
		}
		s.kind = stateOpen
	case stateOpen:
		fault(AccessViolation, s.name, "released a slot that was never held")
	}
}

// poison forces the slot into the terminal Poison state. Called when a
// panic unwinds through a held Write slot.
func (s *slot) poison() {
	s.kind = statePoison
}

// contents returns the raw value for the caller to type-assert, having
// already proven (via acquire) that it holds appropriate access.
func (s *slot) contents() any {
	return s.value
}
