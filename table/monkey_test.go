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
	"math/rand"
	"testing"

	"github.com/latticedb/lattice"
)

// TestMonkeyPushDeleteEditChurn hammers one tracked, indexed column with
// an initial bulk push followed by many rounds of random edits and
// deletes, then checks the column, the live-row count and the index all
// still agree with a plain Go map tracking the same history.
func TestMonkeyPushDeleteEditChurn(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	u := lattice.NewUniverse()
	tb := NewTable[widgets](u)
	IndexedColumn[widgets, int](tb)

	const initial = 64
	live := make(map[uint64]int) // raw id -> current value, for ids believed live
	var liveIds []uint64

	lattice.Run2(u, IdsOf[widgets](), WriteColumn[widgets, int](), func(ids *Ids[widgets], w *Write[widgets, int]) {
		r := ids.RecycleIds(initial)
		r.Extension.Iter(func(id Id[widgets]) {
			v := rng.Intn(1000)
			w.Push(v)
			live[id.Raw()] = v
			liveIds = append(liveIds, id.Raw())
		})
	})

	const rounds = 500
	for i := 0; i < rounds; i++ {
		if len(liveIds) == 0 {
			break
		}
		if rng.Intn(2) == 0 {
			// edit a random live row
			target := liveIds[rng.Intn(len(liveIds))]
			v := rng.Intn(1000)
			lattice.Run1(u, EditColumn[widgets, int](), func(e *Edit[widgets, int]) {
				e.Set(IdFromRaw[widgets](target), v)
			})
			live[target] = v
		} else {
			// delete a random live row
			victim := liveIds[rng.Intn(len(liveIds))]
			lattice.Run1(u, IdsOf[widgets](), func(ids *Ids[widgets]) {
				ids.Removing(func(d Deleter[widgets]) bool {
					if d.Id().Raw() == victim {
						d.Remove()
						return false
					}
					return true
				})
			})
			delete(live, victim)
			for i, raw := range liveIds {
				if raw == victim {
					liveIds = append(liveIds[:i], liveIds[i+1:]...)
					break
				}
			}
		}
	}

	lattice.Run1(u, IdsOf[widgets](), func(ids *Ids[widgets]) {
		if int(ids.LiveCount()) != len(live) {
			t.Fatalf("live count mismatch: engine says %d, model says %d", ids.LiveCount(), len(live))
		}
	})

	lattice.Run1(u, ReadColumn[widgets, int](), func(r *Read[widgets, int]) {
		for raw, want := range live {
			if got := r.Index(IdFromRaw[widgets](raw)); got != want {
				t.Fatalf("row %d: got %d, want %d", raw, got, want)
			}
		}
	})

	// The index must agree with the model on count and membership.
	var indexed int
	lattice.With[ColumnIndex[widgets, int]](u, lattice.Read, func(ix *ColumnIndex[widgets, int]) {
		indexed = len(ix.entries)
	})
	if indexed != len(live) {
		t.Fatalf("index has %d entries, model has %d live rows", indexed, len(live))
	}
}
