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
	"fmt"

	"github.com/latticedb/lattice"
)

// Id is a raw row id wrapped by its table marker, so ids of different
// tables are distinct Go types and cannot be mixed up at compile time.
type Id[M Marker] struct {
	raw uint64
}

// IdFromRaw builds an Id directly from a raw value. Callers are
// responsible for the value being meaningful for M.
func IdFromRaw[M Marker](raw uint64) Id[M] { return Id[M]{raw: raw} }

// Raw returns the underlying integer.
func (id Id[M]) Raw() uint64 { return id.raw }

// Zero is the identity element: the first possible id of M.
func Zero[M Marker]() Id[M] { return Id[M]{raw: 0} }

// Last is the sentinel meaning "invalid" for M, the maximum value
// representable in M's declared IDWidth.
func Last[M Marker]() Id[M] {
	var m M
	return Id[M]{raw: maxForWidth(m.IDWidth())}
}

// IsLast reports whether id is the invalid sentinel.
func (id Id[M]) IsLast() bool { return id == Last[M]() }

// Step offsets id by a signed delta. The caller guarantees the result is
// meaningful; Step does not check for overflow (use StepChecked for
// that).
func (id Id[M]) Step(d int64) Id[M] {
	return Id[M]{raw: uint64(int64(id.raw) + d)}
}

// StepChecked offsets id by d, reporting false instead of wrapping if
// the result would fall outside [0, Last).
func (id Id[M]) StepChecked(d int64) (Id[M], bool) {
	r := id.raw + uint64(d)
	if (d < 0 && r > id.raw) || (d > 0 && r < id.raw) || r >= Last[M]().raw {
		return Id[M]{}, false
	}
	return Id[M]{raw: r}, true
}

func (id Id[M]) String() string {
	var m M
	return fmt.Sprintf("%s[%d]", m.TableName(), id.raw)
}

// Less orders ids by raw value, for use with sort/slices helpers.
func (id Id[M]) Less(other Id[M]) bool { return id.raw < other.raw }

// Check is implemented by anything that can be converted into a
// CheckedId against a table's current outer capacity: a plain Id (which
// is validated) or an already-CheckedId (which passes through).
type Check[M Marker] interface {
	checkAgainst(cap uint64) CheckedId[M]
}

func (id Id[M]) checkAgainst(cap uint64) CheckedId[M] {
	if id.raw >= cap {
		lattice.Raise(lattice.OOBId, "", "id %d is out of bounds for capacity %d", id.raw, cap)
	}
	return CheckedId[M]{raw: id.raw}
}

// CheckedId is an id already validated against a known outer capacity.
// Indexing a Read/Write/FastEdit column view with a CheckedId is
// bounds-check free by contract: the caller has already paid for the
// check once.
type CheckedId[M Marker] struct {
	raw uint64
}

func (c CheckedId[M]) checkAgainst(uint64) CheckedId[M] { return c }

// Raw returns the underlying integer.
func (c CheckedId[M]) Raw() uint64 { return c.raw }

// Id converts back to a plain Id.
func (c CheckedId[M]) Id() Id[M] { return Id[M]{raw: c.raw} }

// CheckOf validates c against n, the table's current element count,
// producing a CheckedId. Panics with OOBId if id is out of range.
func CheckOf[M Marker, C Check[M]](c C, n uint64) CheckedId[M] {
	return c.checkAgainst(n)
}

// IdRange is a half-open [Start, End) slice of ids into a table, used
// both for bulk-push bookkeeping and as an IdRange-typed foreign key.
type IdRange[M Marker] struct {
	Start Id[M]
	End   Id[M]
}

// Len returns the number of ids the range covers.
func (r IdRange[M]) Len() uint64 {
	if r.End.raw <= r.Start.raw {
		return 0
	}
	return r.End.raw - r.Start.raw
}

// Contains reports whether id falls within [Start, End).
func (r IdRange[M]) Contains(id Id[M]) bool {
	return id.raw >= r.Start.raw && id.raw < r.End.raw
}

// Iter calls f for every id in the range, in ascending order.
func (r IdRange[M]) Iter(f func(Id[M])) {
	for v := r.Start.raw; v < r.End.raw; v++ {
		f(Id[M]{raw: v})
	}
}
