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

// TableIter is a read-only view over a table's live-id membership: it
// walks ids in ascending order, skipping anything currently in the free
// list, so deleted rows are never yielded (spec.md §8 invariant 5). Pair
// it with Read column views in the same kernel to iterate rows; it
// claims Read on the IdList itself, so it cannot share a kernel with an
// Ids[M] (Write) parameter for the same table.
type TableIter[M Marker] struct {
	list *IdList[M]
}

// IterOf builds the resource parameter for table M's live-id iteration.
func IterOf[M Marker]() *TableIter[M] { return &TableIter[M]{} }

func (t *TableIter[M]) EachResource(f func(reflect.Type, lattice.Access)) {
	f(idListTag[M](), lattice.Read)
}

func (t *TableIter[M]) Extract(u *lattice.Universe, feed *lattice.ResourceFeed) {
	t.list = lattice.Next[IdList[M]](feed, lattice.Read)
}

func (t *TableIter[M]) PreCleanup(*lattice.Universe)  {}
func (t *TableIter[M]) PostCleanup(*lattice.Universe) {}

// Each calls f for every currently-live id in ascending order. Returning
// false stops iteration early.
func (t *TableIter[M]) Each(f func(Id[M]) bool) {
	for raw := uint64(0); raw < t.list.outerCapacity; raw++ {
		id := Id[M]{raw: raw}
		if t.list.free.Contains(id) {
			continue
		}
		if !f(id) {
			return
		}
	}
}

// Len returns the table's current live-row count.
func (t *TableIter[M]) Len() int { return int(t.list.LiveCount()) }
