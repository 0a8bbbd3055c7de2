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
	"golang.org/x/exp/slices"

	"github.com/latticedb/lattice"
)

// pair is one entry of a RunList's small-vector. Encoding: a<b is the
// closed range a..=b; a==b is the singleton {a}; a>b is the unordered
// pair {a,b}.
type pair struct{ a, b uint64 }

// RunList is a run-compressed set of ids: a small-vector of (a,b) pairs
// plus a maintained length, per spec.md §4.E.
type RunList[M Marker] struct {
	pairs []pair
	n     int
}

// Len returns the number of ids currently in the list.
func (r *RunList[M]) Len() int { return r.n }

// Clear empties the list.
func (r *RunList[M]) Clear() {
	r.pairs = r.pairs[:0]
	r.n = 0
}

func inRange(p pair, v uint64) bool {
	switch {
	case p.a < p.b:
		return v >= p.a && v <= p.b
	case p.a == p.b:
		return v == p.a
	default:
		return v == p.a || v == p.b
	}
}

// Contains reports whether id is present.
func (r *RunList[M]) Contains(id Id[M]) bool {
	for _, p := range r.pairs {
		if inRange(p, id.raw) {
			return true
		}
	}
	return false
}

func isSentinel[M Marker](v uint64) bool {
	return v == Last[M]().raw
}

// Push inserts a single id. A duplicate insertion is a no-op. Adjacent
// ids merge into the same run rather than growing the pair count.
func (r *RunList[M]) Push(id Id[M]) {
	v := id.raw
	if r.Contains(id) {
		return
	}
	if len(r.pairs) > 0 {
		last := &r.pairs[len(r.pairs)-1]
		switch {
		case last.a < last.b: // ascending run
			if !isSentinel[M](last.b) && v == last.b+1 {
				last.b = v
				r.n++
				return
			}
			if last.a > 0 && v == last.a-1 {
				last.a = v
				r.n++
				return
			}
		case last.a == last.b: // singleton
			if !isSentinel[M](last.a) && v == last.a+1 {
				last.b = v // becomes ascending run a..=v
				r.n++
				return
			}
			if last.a > 0 && v == last.a-1 {
				last.a = v // becomes ascending run v..=a
				r.n++
				return
			}
			// not adjacent: encode as the unordered pair {v, a} or {a, v},
			// whichever keeps a>b so it isn't misread as a range.
			if v > last.a {
				*last = pair{v, last.a}
			} else {
				*last = pair{last.a, v}
			}
			r.n++
			return
		default: // already an unordered pair of two ids; it's full
		}
	}
	r.pairs = append(r.pairs, pair{v, v})
	r.n++
}

// PushRun inserts the inclusive range [lo, hi]. If the tail is a
// strictly-ascending run whose end is immediately followed by lo, the
// tail is extended in place; otherwise a fresh pair is appended. Unlike
// Push, PushRun does not scan for duplicates against the rest of the
// list: callers use it to record freshly-allocated or freshly-known-live
// ranges.
func (r *RunList[M]) PushRun(lo, hi Id[M]) {
	l, h := lo.raw, hi.raw
	if h < l {
		lattice.Raise(lattice.OOBId, "", "PushRun called with hi %d < lo %d", h, l)
	}
	count := int(h - l + 1)
	if len(r.pairs) > 0 {
		last := &r.pairs[len(r.pairs)-1]
		if last.a < last.b && !isSentinel[M](last.b) && last.b+1 == l {
			last.b = h
			r.n += count
			return
		}
	}
	r.pairs = append(r.pairs, pair{l, h})
	r.n += count
}

// Pop removes and returns an arbitrary id from the list.
func (r *RunList[M]) Pop() (Id[M], bool) {
	if len(r.pairs) == 0 {
		return Id[M]{}, false
	}
	last := &r.pairs[len(r.pairs)-1]
	var out uint64
	switch {
	case last.a < last.b:
		out = last.b
		last.b--
	case last.a == last.b:
		out = last.a
		r.pairs = r.pairs[:len(r.pairs)-1]
	default: // unordered pair
		out = last.a
		last.a = last.b // collapses to a singleton {b,b}
	}
	r.n--
	return Id[M]{raw: out}, true
}

// IterSingles flattens the list to individual ids, in stored
// (not necessarily ascending) order.
func (r *RunList[M]) IterSingles(f func(Id[M])) {
	for _, p := range r.pairs {
		switch {
		case p.a < p.b:
			for v := p.a; v <= p.b; v++ {
				f(Id[M]{raw: v})
			}
		case p.a == p.b:
			f(Id[M]{raw: p.a})
		default:
			f(Id[M]{raw: p.a})
			f(Id[M]{raw: p.b})
		}
	}
}

// IterRuns yields each pair's contents as one or two ascending inclusive
// ranges ([lo,hi]), in stored order.
func (r *RunList[M]) IterRuns(f func(lo, hi Id[M])) {
	for _, p := range r.pairs {
		if p.a <= p.b {
			f(Id[M]{raw: p.a}, Id[M]{raw: p.b})
		} else {
			f(Id[M]{raw: p.b}, Id[M]{raw: p.b})
			f(Id[M]{raw: p.a}, Id[M]{raw: p.a})
		}
	}
}

// Sort canonicalizes the list: after Sort, ranges are disjoint and
// non-decreasing in start. Sort is idempotent.
func (r *RunList[M]) Sort() {
	type span struct{ lo, hi uint64 }
	var spans []span
	r.IterRuns(func(lo, hi Id[M]) { spans = append(spans, span{lo.raw, hi.raw}) })
	slices.SortFunc(spans, func(a, b span) bool { return a.lo < b.lo })

	merged := spans[:0]
	for _, s := range spans {
		if n := len(merged); n > 0 && merged[n-1].hi+1 >= s.lo {
			if s.hi > merged[n-1].hi {
				merged[n-1].hi = s.hi
			}
			continue
		}
		merged = append(merged, s)
	}

	r.pairs = r.pairs[:0]
	r.n = 0
	for _, s := range merged {
		r.PushRun(Id[M]{raw: s.lo}, Id[M]{raw: s.hi})
	}
}

// mergeFrom appends every id of other into r via PushRun over its
// canonical ranges. Used to fold a flushed `deleting` batch into `free`.
func (r *RunList[M]) mergeFrom(other *RunList[M]) {
	other.IterRuns(func(lo, hi Id[M]) { r.PushRun(lo, hi) })
}
