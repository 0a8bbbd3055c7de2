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
	"sort"

	"golang.org/x/exp/constraints"

	"github.com/latticedb/lattice"
)

// indexEntry is one (value, id) pair in a ColumnIndex.
type indexEntry[T constraints.Ordered] struct {
	value T
	id    uint64
}

func lessEntry[T constraints.Ordered](a, b indexEntry[T]) bool {
	if a.value != b.value {
		return a.value < b.value
	}
	return a.id < b.id
}

// ColumnIndex is an ordered (value, id) index over one column of table
// M, kept sorted by value then id. No third-party ordered-map type in
// the example pack fits a generic (value,id) key, so this uses a sorted
// slice with binary search; see DESIGN.md.
type ColumnIndex[M Marker, T constraints.Ordered] struct {
	entries []indexEntry[T]
}

func (ix *ColumnIndex[M, T]) searchLowerBound(e indexEntry[T]) int {
	return sort.Search(len(ix.entries), func(i int) bool {
		return !lessEntry(ix.entries[i], e)
	})
}

func (ix *ColumnIndex[M, T]) insert(value T, id uint64) {
	e := indexEntry[T]{value: value, id: id}
	i := ix.searchLowerBound(e)
	ix.entries = append(ix.entries, indexEntry[T]{})
	copy(ix.entries[i+1:], ix.entries[i:])
	ix.entries[i] = e
}

func (ix *ColumnIndex[M, T]) remove(value T, id uint64) {
	e := indexEntry[T]{value: value, id: id}
	i := ix.searchLowerBound(e)
	if i < len(ix.entries) && ix.entries[i] == e {
		ix.entries = append(ix.entries[:i], ix.entries[i+1:]...)
	}
}

// FullRange calls f for every id whose indexed value equals v, in
// ascending id order.
func (ix *ColumnIndex[M, T]) FullRange(v T, f func(id uint64)) {
	i := ix.searchLowerBound(indexEntry[T]{value: v, id: 0})
	for ; i < len(ix.entries) && ix.entries[i].value == v; i++ {
		f(ix.entries[i].id)
	}
}

// Between calls f for every (value, id) with lo <= value <= hi, in
// ascending (value, id) order.
func (ix *ColumnIndex[M, T]) Between(lo, hi T, f func(value T, id uint64)) {
	i := ix.searchLowerBound(indexEntry[T]{value: lo, id: 0})
	for ; i < len(ix.entries) && ix.entries[i].value <= hi; i++ {
		f(ix.entries[i].value, ix.entries[i].id)
	}
}

func indexTag[M Marker, T constraints.Ordered]() reflect.Type {
	return reflect.TypeOf((*ColumnIndex[M, T])(nil)).Elem()
}

// RegisterIndex installs a ColumnIndex over column col and three
// trackers that keep it auto-maintained: Push inserts newly-pushed
// values, Edit_ moves an entry from its old to its new value, and
// Delete removes entries for deleted ids. col must have been
// constructed with tracked=true.
func RegisterIndex[M Marker, T constraints.Ordered](u *lattice.Universe, col *Column[M, T]) {
	lattice.GetOrAdd(u, func() ColumnIndex[M, T] { return ColumnIndex[M, T]{} })

	AddTracker[Push[M]](u, func(u *lattice.Universe, ev *Push[M]) {
		// Flush emits a MEMORY event and a LOGICAL/LOAD event for the same
		// ids; only react to the latter so each pushed row is indexed once.
		if ev.Stage == MemoryStage {
			return
		}
		lattice.With[Column[M, T]](u, lattice.Read, func(c *Column[M, T]) {
			lattice.With[ColumnIndex[M, T]](u, lattice.Write, func(ix *ColumnIndex[M, T]) {
				ev.Ids.IterSingles(func(id Id[M]) {
					ix.insert(c.at(id.raw), id.raw)
				})
			})
		})
	})

	AddTracker[Edit_[M, T]](u, func(u *lattice.Universe, ev *Edit_[M, T]) {
		if ev.Col != col {
			return
		}
		lattice.With[ColumnIndex[M, T]](u, lattice.Write, func(ix *ColumnIndex[M, T]) {
			for _, ent := range ev.Entries {
				ix.remove(ent.old, ent.id.Raw())
				ix.insert(ent.new, ent.id.Raw())
			}
		})
	})

	AddTracker[Delete[M]](u, func(u *lattice.Universe, ev *Delete[M]) {
		lattice.With[Column[M, T]](u, lattice.Read, func(c *Column[M, T]) {
			lattice.With[ColumnIndex[M, T]](u, lattice.Write, func(ix *ColumnIndex[M, T]) {
				ev.Ids.IterSingles(func(id Id[M]) {
					ix.remove(c.at(id.raw), id.raw)
				})
			})
		})
	})
}
