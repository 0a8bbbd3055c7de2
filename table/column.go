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

import (
	"reflect"

	"github.com/latticedb/lattice"
)

// editEntry is one ordered edit-log entry: the value a row held before
// the edit (captured at Set time, while the column was still reachable)
// and the value it is being changed to. Capturing old here rather than
// re-reading the column during PostCleanup is what spec.md §4.I means
// by "this is why Edit clones the old value into the log during
// index_mut": the log is self-contained, so index maintenance never
// needs to touch column storage outside its own lock.
type editEntry[M Marker, T any] struct {
	id  Id[M]
	old T
	new T
}

// Column is one attribute's storage for table M: a Vec<T> plus the
// marker. Direct length mutation outside the table's IdList bookkeeping
// is not exposed: all tables registered together keep equi-length
// columns (spec.md §4.F, §8 invariant 1).
type Column[M Marker, T any] struct {
	data []T

	// tracked, when true, means index/FK/event trackers observe this
	// column and Edit access must go through the ascending-id log
	// discipline rather than FastEdit.
	tracked bool
}

// NewColumn constructs an empty column. tracked should be true iff a
// ColumnIndex (or foreign-key machinery) is registered against it.
func NewColumn[M Marker, T any](tracked bool) *Column[M, T] {
	return &Column[M, T]{tracked: tracked}
}

// Len returns the number of live+free rows currently backing the
// column (its Vec length, not the table's live-row count).
func (c *Column[M, T]) Len() int { return len(c.data) }

// at returns the stored value for a raw id, without any bounds check;
// callers must have already validated raw < len(c.data).
func (c *Column[M, T]) at(raw uint64) T { return c.data[raw] }

func (c *Column[M, T]) setAt(raw uint64, v T) { c.data[raw] = v }

// ---- Read view --------------------------------------------------------

// Read is a shared, indexable view over a column.
type Read[M Marker, T any] struct {
	col *Column[M, T]
}

func ReadColumn[M Marker, T any]() *Read[M, T] { return &Read[M, T]{} }

func (r *Read[M, T]) EachResource(f func(reflect.Type, lattice.Access)) {
	f(columnTag[M, T](), lattice.Read)
}

func (r *Read[M, T]) Extract(u *lattice.Universe, feed *lattice.ResourceFeed) {
	r.col = lattice.Next[Column[M, T]](feed, lattice.Read)
}

func (r *Read[M, T]) PreCleanup(*lattice.Universe)  {}
func (r *Read[M, T]) PostCleanup(*lattice.Universe) {}

// Index returns the value stored for a validated id. Any Check (a plain
// Id, bounds-checked here, or an already-CheckedId, trusted) may be
// used.
func (r *Read[M, T]) Index(c Check[M]) T {
	checked := c.checkAgainst(uint64(len(r.col.data)))
	return r.col.at(checked.raw)
}

// Len returns the column's current length.
func (r *Read[M, T]) Len() int { return r.col.Len() }

// ---- Edit view ---------------------------------------------------------

// Edit mutates existing elements without changing the column's length.
// Writes through a tracked column must arrive in strictly ascending id
// order; they are captured into an append-only log so index/FK trackers
// can observe old/new pairs without re-scanning the whole column.
type Edit[M Marker, T any] struct {
	col *Column[M, T]
	log []editEntry[M, T]

	// pre-cleanup capture
	mustLog bool
	drained []editEntry[M, T]
}

func EditColumn[M Marker, T any]() *Edit[M, T] { return &Edit[M, T]{} }

func (e *Edit[M, T]) EachResource(f func(reflect.Type, lattice.Access)) {
	f(columnTag[M, T](), lattice.Write)
}

func (e *Edit[M, T]) Extract(u *lattice.Universe, feed *lattice.ResourceFeed) {
	e.col = lattice.Next[Column[M, T]](feed, lattice.Write)
}

// Index reads the logged value for id if one exists, else the stored
// value. Accessing in decreasing id order is a programmer error.
func (e *Edit[M, T]) Index(id Id[M]) T {
	checked := id.checkAgainst(uint64(len(e.col.data)))
	if n := len(e.log); n > 0 {
		last := e.log[n-1].id
		if checked.raw < last.raw {
			lattice.Raise(lattice.DisorderedEdit, "", "read id %d after already editing id %d", checked.raw, last.raw)
		}
		if checked.raw == last.raw {
			return e.log[n-1].new
		}
	}
	return e.col.at(checked.raw)
}

// Set writes a new value for id, logging the edit if the column is
// tracked. Access out of ascending id order panics.
func (e *Edit[M, T]) Set(id Id[M], v T) {
	checked := id.checkAgainst(uint64(len(e.col.data)))
	if n := len(e.log); n > 0 {
		last := e.log[n-1].id
		if checked.raw < last.raw {
			lattice.Raise(lattice.DisorderedEdit, "", "disordered column access: wrote id %d after already editing id %d", checked.raw, last.raw)
		}
		if checked.raw == last.raw {
			e.log[n-1].new = v
			return
		}
	}
	if !e.col.tracked {
		e.col.setAt(checked.raw, v)
		return
	}
	e.log = append(e.log, editEntry[M, T]{id: checked.Id(), old: e.col.at(checked.raw), new: v})
}

func (e *Edit[M, T]) PreCleanup(*lattice.Universe) {
	e.mustLog = e.col.tracked && len(e.log) > 0
	e.drained = e.log
	e.log = nil
}

func (e *Edit[M, T]) PostCleanup(u *lattice.Universe) {
	if !e.mustLog {
		return
	}
	ev := &Edit_[M, T]{Col: e.col, Entries: e.drained}
	SubmitEvent(u, ev)
	lattice.With[Column[M, T]](u, lattice.Write, func(c *Column[M, T]) {
		for _, ent := range ev.Entries {
			c.setAt(ent.id.raw, ent.new)
		}
	})
}

// ---- Write view ---------------------------------------------------------

// Write is an append-only view: existing rows cannot be mutated, but new
// rows may be pushed. Emitting the Push event for a tracked column is the
// job of the table's IdList (see Ids.PostCleanup / IdList.Flush), which
// alone knows whether the batch is LOGICAL or LOAD; Write itself stays
// silent so a kernel combining Ids and Write doesn't double-index the
// same rows.
type Write[M Marker, T any] struct {
	col *Column[M, T]
}

func WriteColumn[M Marker, T any]() *Write[M, T] { return &Write[M, T]{} }

func (w *Write[M, T]) EachResource(f func(reflect.Type, lattice.Access)) {
	f(columnTag[M, T](), lattice.Write)
}

func (w *Write[M, T]) Extract(u *lattice.Universe, feed *lattice.ResourceFeed) {
	w.col = lattice.Next[Column[M, T]](feed, lattice.Write)
}

// Push appends a new row's value, returning the id it was assigned.
// Callers coordinate row-id allocation with the table's IdList
// separately; Write only tracks the column's own growth. Push only ever
// appends, so it populates a Recycle's Extension ids; a Replace id
// (a reused slot) is repopulated with Edit.Set instead.
func (w *Write[M, T]) Push(v T) Id[M] {
	w.col.data = append(w.col.data, v)
	return Id[M]{raw: uint64(len(w.col.data) - 1)}
}

// Index reads an already-committed (pre-kernel) row. Write exposes no
// IndexMut: existing rows are immutable through this view.
func (w *Write[M, T]) Index(c Check[M]) T {
	checked := c.checkAgainst(uint64(len(w.col.data)))
	return w.col.at(checked.raw)
}

func (w *Write[M, T]) Len() int { return w.col.Len() }

func (w *Write[M, T]) PreCleanup(*lattice.Universe) {}

// PostCleanup is a no-op: see the Write doc comment. A tracked column's
// Push event is always the IdList's to emit.
func (w *Write[M, T]) PostCleanup(*lattice.Universe) {}

// ---- FastEdit view ------------------------------------------------------

// FastEdit mutates elements in place with no logging. It is rejected at
// runtime (panics) if the column is tracked: index/FK trackers would
// otherwise silently miss the change.
type FastEdit[M Marker, T any] struct {
	col *Column[M, T]
}

func FastEditColumn[M Marker, T any]() *FastEdit[M, T] { return &FastEdit[M, T]{} }

func (e *FastEdit[M, T]) EachResource(f func(reflect.Type, lattice.Access)) {
	f(columnTag[M, T](), lattice.Write)
}

func (e *FastEdit[M, T]) Extract(u *lattice.Universe, feed *lattice.ResourceFeed) {
	e.col = lattice.Next[Column[M, T]](feed, lattice.Write)
	if e.col.tracked {
		lattice.Raise(lattice.AccessConflict, "", "FastEdit used on a tracked column; use Edit so indexes stay consistent")
	}
}

func (e *FastEdit[M, T]) Index(c Check[M]) T {
	checked := c.checkAgainst(uint64(len(e.col.data)))
	return e.col.at(checked.raw)
}

func (e *FastEdit[M, T]) Set(c Check[M], v T) {
	checked := c.checkAgainst(uint64(len(e.col.data)))
	e.col.setAt(checked.raw, v)
}

func (e *FastEdit[M, T]) PreCleanup(*lattice.Universe)  {}
func (e *FastEdit[M, T]) PostCleanup(*lattice.Universe) {}

// columnTag is the process-stable type tag a Column[M,T] is registered
// under in the Universe.
func columnTag[M Marker, T any]() reflect.Type {
	return reflect.TypeOf((*Column[M, T])(nil)).Elem()
}
