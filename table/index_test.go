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
	"testing"

	"github.com/latticedb/lattice"
)

func collectRange(u *lattice.Universe, lo, hi int) []uint64 {
	var got []uint64
	lattice.With[ColumnIndex[widgets, int]](u, lattice.Read, func(ix *ColumnIndex[widgets, int]) {
		ix.Between(lo, hi, func(value int, id uint64) { got = append(got, id) })
	})
	return got
}

func TestIndexedColumnTracksPushes(t *testing.T) {
	u := lattice.NewUniverse()
	tb := NewTable[widgets](u)
	IndexedColumn[widgets, int](tb)

	lattice.Run2(u, IdsOf[widgets](), WriteColumn[widgets, int](), func(ids *Ids[widgets], w *Write[widgets, int]) {
		ids.RecycleIds(3)
		w.Push(30)
		w.Push(10)
		w.Push(20)
	})

	got := collectRange(u, 0, 100)
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 0 {
		t.Fatalf("expected ids ordered by value (10@1, 20@2, 30@0), got %v", got)
	}
}

func TestIndexedColumnTracksEdits(t *testing.T) {
	u := lattice.NewUniverse()
	tb := NewTable[widgets](u)
	IndexedColumn[widgets, int](tb)

	lattice.Run2(u, IdsOf[widgets](), WriteColumn[widgets, int](), func(ids *Ids[widgets], w *Write[widgets, int]) {
		ids.RecycleIds(2)
		w.Push(1)
		w.Push(2)
	})
	lattice.Run1(u, EditColumn[widgets, int](), func(e *Edit[widgets, int]) {
		e.Set(IdFromRaw[widgets](0), 100)
	})

	got := collectRange(u, 0, 1000)
	if len(got) != 2 || got[0] != 1 || got[1] != 0 {
		t.Fatalf("expected id 1 (value 2) before id 0 (value 100), got %v", got)
	}
}

func TestIndexedColumnTracksDeletes(t *testing.T) {
	u := lattice.NewUniverse()
	tb := NewTable[widgets](u)
	IndexedColumn[widgets, int](tb)

	lattice.Run2(u, IdsOf[widgets](), WriteColumn[widgets, int](), func(ids *Ids[widgets], w *Write[widgets, int]) {
		ids.RecycleIds(2)
		w.Push(5)
		w.Push(6)
	})
	lattice.Run1(u, IdsOf[widgets](), func(ids *Ids[widgets]) {
		ids.Removing(func(d Deleter[widgets]) bool {
			if d.Id().Raw() == 0 {
				d.Remove()
			}
			return true
		})
	})

	got := collectRange(u, 0, 1000)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected only id 1 left indexed, got %v", got)
	}
}

func TestColumnIndexFullRangeMatchesExactValue(t *testing.T) {
	var ix ColumnIndex[widgets, int]
	ix.insert(5, 0)
	ix.insert(5, 1)
	ix.insert(6, 2)

	var got []uint64
	ix.FullRange(5, func(id uint64) { got = append(got, id) })
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("got %v", got)
	}
}
