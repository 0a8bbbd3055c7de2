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
	"sync"

	"github.com/latticedb/lattice"
)

// commitment is the "None -> Push | Delete" latch of spec.md §3:
// once latched, mixing the other kind of batch into the same
// pre-flush window is a programmer error.
type commitment int

const (
	commitNone commitment = iota
	commitPush
	commitDelete
)

// Recycle is the result of reserving n fresh ids: some may have been
// drawn from the free list (Replace), the remainder from growing the
// table's outer capacity (Extension).
type Recycle[M Marker] struct {
	Replace   RunList[M]
	Extension IdRange[M]
}

// IdList owns the lifecycle state for one table's rows: the free list,
// what's been pushed/deleted since the last flush, and the table's
// outer capacity.
type IdList[M Marker] struct {
	free    RunList[M]
	pushing RunList[M]

	delMu    sync.Mutex
	deleting RunList[M]

	outerCapacity uint64
	commit        commitment
	flushing      bool
}

// OuterCapacity returns the current upper bound used for bounds
// checking and storage allocation.
func (l *IdList[M]) OuterCapacity() uint64 { return l.outerCapacity }

// LiveCount returns outerCapacity - len(free), the number of rows not in
// the free list. Rows marked for deletion but not yet flushed still
// count as live.
func (l *IdList[M]) LiveCount() uint64 {
	return l.outerCapacity - uint64(l.free.Len())
}

func (l *IdList[M]) latch(c commitment) {
	if l.commit == commitNone {
		l.commit = c
		return
	}
	if l.commit != c {
		lattice.Raise(lattice.FlushInvariant, "", "mixed Push and Delete batches in the same pre-flush window")
	}
}

// RecycleId reserves a single fresh id. See RecycleIds.
func (l *IdList[M]) RecycleId() (Id[M], Recycle[M]) {
	r := l.RecycleIds(1)
	if r.Replace.Len() > 0 {
		var id Id[M]
		r.Replace.IterSingles(func(x Id[M]) { id = x })
		return id, r
	}
	return r.Extension.Start, r
}

// RecycleIds reserves n fresh ids: first by draining the free list, then
// by growing outerCapacity for any remainder.
func (l *IdList[M]) RecycleIds(n int) Recycle[M] {
	var out Recycle[M]
	if n == 0 {
		return out
	}
	remaining := n
	for remaining > 0 {
		id, ok := l.free.Pop()
		if !ok {
			break
		}
		out.Replace.Push(id)
		l.pushing.Push(id)
		remaining--
	}
	if remaining > 0 {
		start := l.outerCapacity
		l.outerCapacity += uint64(remaining)
		out.Extension = IdRange[M]{Start: Id[M]{raw: start}, End: Id[M]{raw: l.outerCapacity}}
		l.pushing.PushRun(out.Extension.Start, Id[M]{raw: l.outerCapacity - 1})
	}
	l.latch(commitPush)
	return out
}

// RecycleIdsContiguous reserves n ids backed by a single contiguous run,
// trying the free list (searched from its tail) before growing
// outerCapacity.
func (l *IdList[M]) RecycleIdsContiguous(n int) Recycle[M] {
	var out Recycle[M]
	if n == 0 {
		return out
	}
	need := uint64(n)
	for i := len(l.free.pairs) - 1; i >= 0; i-- {
		p := l.free.pairs[i]
		if p.a > p.b {
			continue // unordered pair, not a usable contiguous run
		}
		length := p.b - p.a + 1
		if length < need {
			continue
		}
		carveLo := p.b - need + 1
		if carveLo == p.a {
			l.free.pairs = append(l.free.pairs[:i], l.free.pairs[i+1:]...)
		} else {
			l.free.pairs[i] = pair{p.a, carveLo - 1}
		}
		l.free.n -= n
		out.Replace.PushRun(Id[M]{raw: carveLo}, Id[M]{raw: p.b})
		l.pushing.PushRun(Id[M]{raw: carveLo}, Id[M]{raw: p.b})
		l.latch(commitPush)
		return out
	}
	start := l.outerCapacity
	l.outerCapacity += need
	out.Extension = IdRange[M]{Start: Id[M]{raw: start}, End: Id[M]{raw: l.outerCapacity}}
	l.pushing.PushRun(out.Extension.Start, Id[M]{raw: l.outerCapacity - 1})
	l.latch(commitPush)
	return out
}

// Deleter is the handle an item yielded by Removing carries; calling
// Remove marks its id for deletion at the next Flush.
type Deleter[M Marker] struct {
	list *IdList[M]
	row  Id[M]
}

// Id returns the row id this handle refers to.
func (d Deleter[M]) Id() Id[M] { return d.row }

// Remove marks the row for deletion. Safe to call concurrently with
// other Removing iterations over the same IdList: deleting is guarded by
// its own mutex independent of the table's Read/Write lock, so a Read
// iterator may request deletions while the list is shared.
func (d Deleter[M]) Remove() {
	d.list.delMu.Lock()
	d.list.deleting.Push(d.row)
	d.list.delMu.Unlock()
	d.list.latch(commitDelete)
}

// Removing iterates every currently-live id (skipping ids already in the
// free list or already marked for deletion), calling f with a Deleter
// for each. Returning false from f stops iteration early. Each live id
// is yielded exactly once regardless of concurrent deletions from other
// goroutines iterating the same IdList.
func (l *IdList[M]) Removing(f func(Deleter[M]) bool) {
	for raw := uint64(0); raw < l.outerCapacity; raw++ {
		id := Id[M]{raw: raw}
		if l.free.Contains(id) {
			continue
		}
		l.delMu.Lock()
		already := l.deleting.Contains(id)
		l.delMu.Unlock()
		if already {
			continue
		}
		if !f(Deleter[M]{list: l, row: id}) {
			return
		}
	}
}

// Flush publishes the batch accumulated since the last flush (a Push or
// a Delete, never both at once) as events, then merges any delete batch
// into the free list. loadMode selects the LOAD lifestage instead of
// LOGICAL. A no-op if nothing was reserved or deleted since the last
// flush.
func (l *IdList[M]) Flush(u *lattice.Universe, loadMode bool) {
	if l.commit == commitNone {
		return
	}
	if l.flushing {
		lattice.Raise(lattice.FlushInvariant, "", "Flush re-entered for the same table while already flushing")
	}
	l.flushing = true
	defer func() { l.flushing = false }()

	semantic := LogicalStage
	if loadMode {
		semantic = LoadStage
	}

	switch l.commit {
	case commitPush:
		pushing := l.pushing
		l.pushing = RunList[M]{}
		if HasTracker[Push[M]](u) {
			memEv := &Push[M]{Stage: MemoryStage, Ids: pushing}
			SubmitEvent(u, memEv)
			semEv := &Push[M]{Stage: semantic, Ids: pushing}
			SubmitEvent(u, semEv)
		}
	case commitDelete:
		l.delMu.Lock()
		deleting := l.deleting
		l.deleting = RunList[M]{}
		l.delMu.Unlock()

		semEv := &Delete[M]{Stage: semantic, Ids: deleting}
		SubmitEvent(u, semEv)
		memEv := &Delete[M]{Stage: MemoryStage, Ids: semEv.Ids}
		SubmitEvent(u, memEv)

		l.free.mergeFrom(&memEv.Ids)
		l.free.Sort()
	}
	l.commit = commitNone
}

func idListTag[M Marker]() reflect.Type {
	return reflect.TypeOf((*IdList[M])(nil)).Elem()
}

// Ids is the kernel-facing resource view over a table's IdList: it
// grants Write access to the free/pushing/deleting bookkeeping and
// flushes automatically in PostCleanup, once the kernel's locks have
// released, so a Read observed within the same kernel never sees a
// partially-deleted state.
type Ids[M Marker] struct {
	list     *IdList[M]
	loadMode bool
}

// IdsOf builds the resource parameter for table M's id list.
func IdsOf[M Marker]() *Ids[M] { return &Ids[M]{} }

// AsLoad marks the next flush as a bulk-import (LOAD lifestage instead
// of LOGICAL). Call before the kernel runs.
func (x *Ids[M]) AsLoad() *Ids[M] { x.loadMode = true; return x }

func (x *Ids[M]) EachResource(f func(reflect.Type, lattice.Access)) {
	f(idListTag[M](), lattice.Write)
}

func (x *Ids[M]) Extract(u *lattice.Universe, feed *lattice.ResourceFeed) {
	x.list = lattice.Next[IdList[M]](feed, lattice.Write)
}

func (x *Ids[M]) PreCleanup(*lattice.Universe) {}

func (x *Ids[M]) PostCleanup(u *lattice.Universe) {
	x.list.Flush(u, x.loadMode)
}

// RecycleId reserves a single fresh id.
func (x *Ids[M]) RecycleId() (Id[M], Recycle[M]) { return x.list.RecycleId() }

// RecycleIds reserves n fresh ids.
func (x *Ids[M]) RecycleIds(n int) Recycle[M] { return x.list.RecycleIds(n) }

// RecycleIdsContiguous reserves n fresh, contiguously-numbered ids.
func (x *Ids[M]) RecycleIdsContiguous(n int) Recycle[M] { return x.list.RecycleIdsContiguous(n) }

// Removing iterates every live id, offering a Deleter for each.
func (x *Ids[M]) Removing(f func(Deleter[M]) bool) { x.list.Removing(f) }

// LiveCount returns the table's current live-row count.
func (x *Ids[M]) LiveCount() uint64 { return x.list.LiveCount() }

// OuterCapacity returns the table's current outer capacity.
func (x *Ids[M]) OuterCapacity() uint64 { return x.list.OuterCapacity() }
