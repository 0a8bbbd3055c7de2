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
	"golang.org/x/exp/constraints"

	"github.com/latticedb/lattice"
)

// TableBuilder accumulates the registration calls for one table M: a
// TableHeader and IdList are inserted immediately on NewTable, and each
// subsequent AddColumn/IndexedColumn/ForeignKeyColumn/RangeForeignKeyColumn
// call adds one
// attribute. Host code keeps the returned *Column[M,T] handles to build
// Read/Edit/Write/FastEdit views against later.
type TableBuilder[M Marker] struct {
	u *lattice.Universe
}

// tableHeaderOf holds table M's TableHeader under a type tag of its own,
// so each registered table gets its own header slot.
type tableHeaderOf[M Marker] struct{ TableHeader }

// NewTable declares table M: it registers the table's TableHeader and an
// empty IdList[M], then returns a builder for adding attribute columns.
func NewTable[M Marker](u *lattice.Universe) *TableBuilder[M] {
	var m M
	lattice.Add(u, tableHeaderOf[M]{TableHeader{Name: m.TableName()}})
	lattice.Add(u, IdList[M]{})
	return &TableBuilder[M]{u: u}
}

// storedColumn registers a freshly built column and returns the pointer
// actually held by the Universe's slot, which is the identity later
// compared against in Edit_ events and kernel extraction — not the
// locally-built value, which Add copies into its own boxed storage.
func storedColumn[M Marker, T any](u *lattice.Universe, tracked bool) *Column[M, T] {
	lattice.Add(u, *NewColumn[M, T](tracked))
	var stored *Column[M, T]
	lattice.With[Column[M, T]](u, lattice.Write, func(c *Column[M, T]) { stored = c })
	return stored
}

// AddColumn adds an attribute column of type T to table M. Pass
// tracked=true if a ColumnIndex or foreign key will be registered
// against it afterward.
func AddColumn[M Marker, T any](b *TableBuilder[M], tracked bool) *Column[M, T] {
	return storedColumn[M, T](b.u, tracked)
}

// IndexedColumn adds an attribute column of ordered type T and
// immediately registers a ColumnIndex over it, auto-maintained via
// Push/Edit_/Delete trackers (§4.I).
func IndexedColumn[M Marker, T constraints.Ordered](b *TableBuilder[M]) *Column[M, T] {
	col := storedColumn[M, T](b.u, true)
	RegisterIndex[M, T](b.u, col)
	return col
}

// ForeignKeyColumn adds a single-valued foreign-key column (one Id[FM]
// per row of LM) and wires the index/cascade/selection machinery of
// §4.I: deleting fid from FM cascades to every LM row referencing it,
// and a Select[FM] walk fans out to the matching LM ids.
func ForeignKeyColumn[LM Marker, FM Marker](b *TableBuilder[LM]) *Column[LM, Id[FM]] {
	col := storedColumn[LM, Id[FM]](b.u, true)
	RegisterForeignKey[LM, FM](b.u, col)
	return col
}

// RangeForeignKeyColumn adds a ranged foreign-key column (each LM row
// references every id in an IdRange[FM]) and wires the cascade/selection
// handlers for it.
func RangeForeignKeyColumn[LM Marker, FM Marker](b *TableBuilder[LM]) *Column[LM, IdRange[FM]] {
	col := storedColumn[LM, IdRange[FM]](b.u, true)
	RegisterRangeForeignKey[LM, FM](b.u, col)
	return col
}
