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

func newWidgetTable(t *testing.T) *lattice.Universe {
	t.Helper()
	u := lattice.NewUniverse()
	NewTable[widgets](u)
	return u
}

func TestRecycleIdsGrowsCapacity(t *testing.T) {
	u := newWidgetTable(t)
	lattice.Run1(u, IdsOf[widgets](), func(ids *Ids[widgets]) {
		r := ids.RecycleIds(3)
		if r.Extension.Len() != 3 || r.Replace.Len() != 0 {
			t.Fatalf("got %+v", r)
		}
		if ids.OuterCapacity() != 3 {
			t.Fatalf("got capacity %d", ids.OuterCapacity())
		}
	})
}

func TestDeleterRemoveThenFlushFreesTheSlot(t *testing.T) {
	u := newWidgetTable(t)
	lattice.Run1(u, IdsOf[widgets](), func(ids *Ids[widgets]) {
		ids.RecycleIds(3)
	})
	lattice.Run1(u, IdsOf[widgets](), func(ids *Ids[widgets]) {
		ids.Removing(func(d Deleter[widgets]) bool {
			if d.Id().Raw() == 1 {
				d.Remove()
			}
			return true
		})
	})
	lattice.Run1(u, IdsOf[widgets](), func(ids *Ids[widgets]) {
		if ids.LiveCount() != 2 {
			t.Fatalf("expected 2 live rows after deleting one of three, got %d", ids.LiveCount())
		}
	})
}

func TestRemovingSkipsAlreadyDeletedIds(t *testing.T) {
	u := newWidgetTable(t)
	lattice.Run1(u, IdsOf[widgets](), func(ids *Ids[widgets]) { ids.RecycleIds(2) })
	lattice.Run1(u, IdsOf[widgets](), func(ids *Ids[widgets]) {
		ids.Removing(func(d Deleter[widgets]) bool { d.Remove(); return true })
	})
	lattice.Run1(u, IdsOf[widgets](), func(ids *Ids[widgets]) {
		seen := 0
		ids.Removing(func(d Deleter[widgets]) bool { seen++; return true })
		if seen != 0 {
			t.Fatalf("expected Removing to skip freed ids entirely, saw %d", seen)
		}
	})
}

func TestRecycleIdsReusesFreedSlotBeforeGrowing(t *testing.T) {
	u := newWidgetTable(t)
	lattice.Run1(u, IdsOf[widgets](), func(ids *Ids[widgets]) { ids.RecycleIds(2) })
	lattice.Run1(u, IdsOf[widgets](), func(ids *Ids[widgets]) {
		ids.Removing(func(d Deleter[widgets]) bool {
			if d.Id().Raw() == 0 {
				d.Remove()
			}
			return true
		})
	})
	lattice.Run1(u, IdsOf[widgets](), func(ids *Ids[widgets]) {
		r := ids.RecycleIds(1)
		if r.Replace.Len() != 1 || r.Extension.Len() != 0 {
			t.Fatalf("expected the freed slot to be recycled, got %+v", r)
		}
		if ids.OuterCapacity() != 2 {
			t.Fatalf("capacity must not grow when a freed slot is available, got %d", ids.OuterCapacity())
		}
	})
}

func TestFlushReenteredWithinSameKernelFaults(t *testing.T) {
	u := newWidgetTable(t)
	defer func() {
		f, ok := recover().(*lattice.Fault)
		if !ok || f.Kind != lattice.FlushInvariant {
			t.Fatalf("expected FlushInvariant, got %v", recover())
		}
	}()
	lattice.With[IdList[widgets]](u, lattice.Write, func(l *IdList[widgets]) {
		l.RecycleIds(1)
		l.flushing = true
		l.Flush(u, false)
	})
}

func TestMixingPushAndDeleteBatchFaults(t *testing.T) {
	u := newWidgetTable(t)
	lattice.Run1(u, IdsOf[widgets](), func(ids *Ids[widgets]) { ids.RecycleIds(1) })
	defer func() {
		f, ok := recover().(*lattice.Fault)
		if !ok || f.Kind != lattice.FlushInvariant {
			t.Fatalf("expected FlushInvariant, got %v", recover())
		}
	}()
	lattice.Run1(u, IdsOf[widgets](), func(ids *Ids[widgets]) {
		ids.RecycleIds(1) // latches commitPush
		ids.Removing(func(d Deleter[widgets]) bool { d.Remove(); return true }) // latches commitDelete: conflict
	})
}
