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

import "reflect"

// Stage distinguishes structural events (MEMORY: the Vec actually grew
// or shrank) from semantic ones (LOGICAL: application-visible rows
// appeared/vanished; LOAD: the same but during bulk import). MEMORY
// wraps LOGICAL/LOAD like RAII: on push, MEMORY precedes LOGICAL/LOAD;
// on delete, LOGICAL/LOAD precedes MEMORY.
type Stage int

const (
	MemoryStage Stage = iota
	LogicalStage
	LoadStage
)

// Push is the batched "these ids now exist" event for table M.
type Push[M Marker] struct {
	Stage Stage
	Ids   RunList[M]
}

// Delete is the batched "these ids no longer exist" event for table M.
type Delete[M Marker] struct {
	Stage Stage
	Ids   RunList[M]
}

// Edit_ carries one column's drained edit log: (id, old value, new
// value) triples in strictly ascending id order. The trailing underscore
// avoids shadowing the table.Edit column view in this package.
type Edit_[M Marker, T any] struct {
	Col     *Column[M, T]
	Entries []editEntry[M, T]
}

// Selection accumulates, per referenced table marker, the set of local
// ids a Select walk has discovered so far.
type Selection struct {
	sets map[reflect.Type]any
}

// RunListOf returns (creating if necessary) the accumulator RunList for
// table LM within a Selection.
func RunListOf[LM Marker](s *Selection) *RunList[LM] {
	tag := reflect.TypeOf((*LM)(nil)).Elem()
	if s.sets == nil {
		s.sets = make(map[reflect.Type]any)
	}
	rl, ok := s.sets[tag]
	if !ok {
		rl = &RunList[LM]{}
		s.sets[tag] = rl
	}
	return rl.(*RunList[LM])
}

// Select is the "walk the foreign-key graph" query event for table M: it
// carries the foreign ids being queried and accumulates matching local
// ids, recursively, into Result.
type Select[M Marker] struct {
	Query  RunList[M]
	Result *Selection
}
