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
)

func ids(raws ...uint64) []Id[widgets] {
	out := make([]Id[widgets], len(raws))
	for i, r := range raws {
		out[i] = IdFromRaw[widgets](r)
	}
	return out
}

func TestRunListPushMergesAscendingRun(t *testing.T) {
	var r RunList[widgets]
	for _, raw := range []uint64{3, 4, 5, 2} {
		r.Push(IdFromRaw[widgets](raw))
	}
	if r.Len() != 4 {
		t.Fatalf("got len %d", r.Len())
	}
	var runs [][2]uint64
	r.IterRuns(func(lo, hi Id[widgets]) { runs = append(runs, [2]uint64{lo.Raw(), hi.Raw()}) })
	if len(runs) != 1 || runs[0] != [2]uint64{2, 5} {
		t.Fatalf("expected one merged run [2,5], got %v", runs)
	}
}

func TestRunListPushDuplicateIsNoOp(t *testing.T) {
	var r RunList[widgets]
	r.Push(IdFromRaw[widgets](1))
	r.Push(IdFromRaw[widgets](1))
	if r.Len() != 1 {
		t.Fatalf("got len %d", r.Len())
	}
}

func TestRunListPushNonAdjacentBecomesUnorderedPair(t *testing.T) {
	var r RunList[widgets]
	r.Push(IdFromRaw[widgets](10))
	r.Push(IdFromRaw[widgets](20))
	if r.Len() != 2 {
		t.Fatalf("got len %d", r.Len())
	}
	if !r.Contains(IdFromRaw[widgets](10)) || !r.Contains(IdFromRaw[widgets](20)) {
		t.Fatalf("both ids should be present")
	}
	if r.Contains(IdFromRaw[widgets](15)) {
		t.Fatalf("an unordered pair must not behave like a range")
	}
}

func TestRunListPushRunExtendsAdjacentTail(t *testing.T) {
	var r RunList[widgets]
	r.PushRun(IdFromRaw[widgets](0), IdFromRaw[widgets](2))
	r.PushRun(IdFromRaw[widgets](3), IdFromRaw[widgets](5))
	if r.Len() != 6 {
		t.Fatalf("got len %d", r.Len())
	}
	var runs [][2]uint64
	r.IterRuns(func(lo, hi Id[widgets]) { runs = append(runs, [2]uint64{lo.Raw(), hi.Raw()}) })
	if len(runs) != 1 || runs[0] != [2]uint64{0, 5} {
		t.Fatalf("expected merged [0,5], got %v", runs)
	}
}

func TestRunListPopDrainsInLIFOOrder(t *testing.T) {
	var r RunList[widgets]
	r.PushRun(IdFromRaw[widgets](0), IdFromRaw[widgets](2))
	var popped []uint64
	for {
		id, ok := r.Pop()
		if !ok {
			break
		}
		popped = append(popped, id.Raw())
	}
	if len(popped) != 3 || popped[0] != 2 || popped[2] != 0 {
		t.Fatalf("got %v", popped)
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty after draining, got len %d", r.Len())
	}
}

func TestRunListSortCanonicalizesOverlappingRuns(t *testing.T) {
	var r RunList[widgets]
	r.PushRun(IdFromRaw[widgets](10), IdFromRaw[widgets](12))
	r.PushRun(IdFromRaw[widgets](0), IdFromRaw[widgets](2))
	r.PushRun(IdFromRaw[widgets](3), IdFromRaw[widgets](4))
	r.Sort()

	var runs [][2]uint64
	r.IterRuns(func(lo, hi Id[widgets]) { runs = append(runs, [2]uint64{lo.Raw(), hi.Raw()}) })
	want := [][2]uint64{{0, 4}, {10, 12}}
	if len(runs) != len(want) {
		t.Fatalf("got %v", runs)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Fatalf("got %v, want %v", runs, want)
		}
	}
}

func TestRunListMergeFrom(t *testing.T) {
	var a, b RunList[widgets]
	a.PushRun(IdFromRaw[widgets](0), IdFromRaw[widgets](1))
	b.PushRun(IdFromRaw[widgets](2), IdFromRaw[widgets](3))
	a.mergeFrom(&b)
	a.Sort()
	if a.Len() != 4 {
		t.Fatalf("got len %d", a.Len())
	}
}

func TestRunListIterSinglesCoversUnorderedPair(t *testing.T) {
	var r RunList[widgets]
	r.Push(IdFromRaw[widgets](5))
	r.Push(IdFromRaw[widgets](50))
	var seen []uint64
	r.IterSingles(func(id Id[widgets]) { seen = append(seen, id.Raw()) })
	if len(seen) != 2 {
		t.Fatalf("got %v", seen)
	}
}
