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

// fkIndex maps a foreign table's raw id to the set of local rows whose FK
// column currently points at it. Id[FM] is a struct, not
// constraints.Ordered, so this can't reuse ColumnIndex; a plain map keyed
// by the foreign raw id stands in for it.
type fkIndex[LM Marker, FM Marker] struct {
	byForeign map[uint64]RunList[LM]
}

func (x *fkIndex[LM, FM]) insert(fid uint64, lid Id[LM]) {
	if x.byForeign == nil {
		x.byForeign = make(map[uint64]RunList[LM])
	}
	rl := x.byForeign[fid]
	rl.Push(lid)
	x.byForeign[fid] = rl
}

func (x *fkIndex[LM, FM]) remove(fid uint64, lid Id[LM]) {
	rl, ok := x.byForeign[fid]
	if !ok {
		return
	}
	var rest RunList[LM]
	rl.IterSingles(func(id Id[LM]) {
		if id != lid {
			rest.Push(id)
		}
	})
	if rest.Len() == 0 {
		delete(x.byForeign, fid)
		return
	}
	x.byForeign[fid] = rest
}

// RegisterForeignKey declares that column col of table LM holds a single
// Id[FM] per row, referencing table FM. It installs an index from foreign
// id to matching local ids, kept current by Push/Edit_/Delete trackers on
// LM, and wires the cascade: deleting a row from FM marks every LM row
// that referenced it for deletion too, and a Select[FM] walk fans out to
// the matching local ids (recursively, if LM is itself referenced by
// another table).
func RegisterForeignKey[LM Marker, FM Marker](u *lattice.Universe, col *Column[LM, Id[FM]]) {
	lattice.GetOrAdd(u, func() fkIndex[LM, FM] { return fkIndex[LM, FM]{} })

	AddTracker[Push[LM]](u, func(u *lattice.Universe, ev *Push[LM]) {
		lattice.With[Column[LM, Id[FM]]](u, lattice.Read, func(c *Column[LM, Id[FM]]) {
			lattice.With[fkIndex[LM, FM]](u, lattice.Write, func(x *fkIndex[LM, FM]) {
				ev.Ids.IterSingles(func(lid Id[LM]) {
					x.insert(c.at(lid.raw).raw, lid)
				})
			})
		})
	})

	AddTracker[Edit_[LM, Id[FM]]](u, func(u *lattice.Universe, ev *Edit_[LM, Id[FM]]) {
		if ev.Col != col {
			return
		}
		lattice.With[fkIndex[LM, FM]](u, lattice.Write, func(x *fkIndex[LM, FM]) {
			for _, ent := range ev.Entries {
				x.remove(ent.old.raw, ent.id)
				x.insert(ent.new.raw, ent.id)
			}
		})
	})

	AddTracker[Delete[LM]](u, func(u *lattice.Universe, ev *Delete[LM]) {
		lattice.With[Column[LM, Id[FM]]](u, lattice.Read, func(c *Column[LM, Id[FM]]) {
			lattice.With[fkIndex[LM, FM]](u, lattice.Write, func(x *fkIndex[LM, FM]) {
				ev.Ids.IterSingles(func(lid Id[LM]) {
					x.remove(c.at(lid.raw).raw, lid)
				})
			})
		})
	})

	AddTracker[Delete[FM]](u, func(u *lattice.Universe, ev *Delete[FM]) {
		var matched RunList[LM]
		lattice.With[fkIndex[LM, FM]](u, lattice.Read, func(x *fkIndex[LM, FM]) {
			ev.Ids.IterSingles(func(fid Id[FM]) {
				if rl, ok := x.byForeign[fid.raw]; ok {
					matched.mergeFrom(&rl)
				}
			})
		})
		if matched.Len() == 0 {
			return
		}
		// The cascade completes the delete immediately rather than
		// leaving LM's batch pending for whenever its own Ids[LM] is next
		// used: a cascade is just another kernel (see DESIGN.md,
		// "Cascades flush immediately").
		lattice.With[IdList[LM]](u, lattice.Write, func(l *IdList[LM]) {
			l.delMu.Lock()
			matched.IterRuns(func(lo, hi Id[LM]) { l.deleting.PushRun(lo, hi) })
			l.delMu.Unlock()
			l.latch(commitDelete)
			l.Flush(u, false)
		})
	})

	AddTracker[Select[FM]](u, func(u *lattice.Universe, ev *Select[FM]) {
		var matched RunList[LM]
		lattice.With[fkIndex[LM, FM]](u, lattice.Read, func(x *fkIndex[LM, FM]) {
			ev.Query.IterSingles(func(fid Id[FM]) {
				if rl, ok := x.byForeign[fid.raw]; ok {
					matched.mergeFrom(&rl)
				}
			})
		})
		if matched.Len() == 0 {
			return
		}
		RunListOf[LM](ev.Result).mergeFrom(&matched)
		if HasTracker[Select[LM]](u) {
			SubmitEvent(u, &Select[LM]{Query: matched, Result: ev.Result})
		}
	})
}

// RegisterRangeForeignKey declares that column col of table LM holds an
// IdRange[FM] per row (a row referencing every foreign id in a span,
// rather than exactly one). Deleting a foreign id cascades to every local
// row whose range contains it, per the "range FK" case: a ranged
// reference is hit by any deletion landing inside it, not only by an
// exact match. No interval-tree dependency exists in the example pack (see
// DESIGN.md), so membership is resolved with a linear scan of the column
// rather than an index.
func RegisterRangeForeignKey[LM Marker, FM Marker](u *lattice.Universe, col *Column[LM, IdRange[FM]]) {
	scan := func(u *lattice.Universe, hit func(IdRange[FM]) bool, f func(lid Id[LM])) {
		lattice.With[Column[LM, IdRange[FM]]](u, lattice.Read, func(c *Column[LM, IdRange[FM]]) {
			for raw := 0; raw < len(c.data); raw++ {
				if hit(c.data[raw]) {
					f(Id[LM]{raw: uint64(raw)})
				}
			}
		})
	}

	AddTracker[Delete[FM]](u, func(u *lattice.Universe, ev *Delete[FM]) {
		var matched RunList[LM]
		scan(u, func(r IdRange[FM]) bool {
			hit := false
			ev.Ids.IterSingles(func(fid Id[FM]) {
				if r.Contains(fid) {
					hit = true
				}
			})
			return hit
		}, func(lid Id[LM]) { matched.Push(lid) })
		if matched.Len() == 0 {
			return
		}
		lattice.With[IdList[LM]](u, lattice.Write, func(l *IdList[LM]) {
			l.delMu.Lock()
			matched.IterRuns(func(lo, hi Id[LM]) { l.deleting.PushRun(lo, hi) })
			l.delMu.Unlock()
			l.latch(commitDelete)
			l.Flush(u, false)
		})
	})

	AddTracker[Select[FM]](u, func(u *lattice.Universe, ev *Select[FM]) {
		var matched RunList[LM]
		scan(u, func(r IdRange[FM]) bool {
			hit := false
			ev.Query.IterSingles(func(fid Id[FM]) {
				if r.Contains(fid) {
					hit = true
				}
			})
			return hit
		}, func(lid Id[LM]) { matched.Push(lid) })
		if matched.Len() == 0 {
			return
		}
		RunListOf[LM](ev.Result).mergeFrom(&matched)
		if HasTracker[Select[LM]](u) {
			SubmitEvent(u, &Select[LM]{Query: matched, Result: ev.Result})
		}
	})
}
