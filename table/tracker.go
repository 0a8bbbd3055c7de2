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

package table

import "github.com/latticedb/lattice"

// Tracker holds the ordered handler list for one event type E. It is
// itself an ordinary Universe resource: submitting an event acquires
// Write on the Tracker[E] slot like any other resource, so a tracker
// participates in the same deadlock-free scheduling as everything else.
type Tracker[E any] struct {
	handlers []func(*lattice.Universe, *E)
}

// AddTracker registers a handler for event type E, creating the
// Tracker[E] slot on first use.
func AddTracker[E any](u *lattice.Universe, handler func(*lattice.Universe, *E)) {
	lattice.GetOrAdd(u, func() Tracker[E] { return Tracker[E]{} })
	lattice.With[Tracker[E]](u, lattice.Write, func(t *Tracker[E]) {
		t.handlers = append(t.handlers, handler)
	})
}

// HasTracker reports whether any handler is registered for E. Used to
// skip building/publishing an event nobody will observe.
func HasTracker[E any](u *lattice.Universe) bool {
	if !lattice.Has[Tracker[E]](u) {
		return false
	}
	has := false
	lattice.With[Tracker[E]](u, lattice.Read, func(t *Tracker[E]) {
		has = len(t.handlers) > 0
	})
	return has
}

// SubmitEvent invokes every handler registered for E, in registration
// order, under the Tracker[E] slot's Write lock. A Tracker with no
// registered handlers (or none at all) is a silent no-op: events are
// optional observers, not a required delivery mechanism.
func SubmitEvent[E any](u *lattice.Universe, ev *E) {
	if !lattice.Has[Tracker[E]](u) {
		return
	}
	lattice.With[Tracker[E]](u, lattice.Write, func(t *Tracker[E]) {
		for _, h := range t.handlers {
			h(u, ev)
		}
	})
}
