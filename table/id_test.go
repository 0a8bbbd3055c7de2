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

// widgets is a small Width8 marker used throughout the table package's
// tests so sentinel/overflow arithmetic gets exercised at a narrow width.
type widgets struct{}

func (widgets) TableName() string    { return "widgets" }
func (widgets) IDWidth() IDWidth     { return Width8 }

func TestIdLastIsWidthSentinel(t *testing.T) {
	if Last[widgets]().Raw() != 1<<8-1 {
		t.Fatalf("got %d", Last[widgets]().Raw())
	}
	if !Last[widgets]().IsLast() {
		t.Fatalf("Last should report IsLast")
	}
	if Zero[widgets]().IsLast() {
		t.Fatalf("Zero should not report IsLast")
	}
}

func TestIdStepChecked(t *testing.T) {
	id := IdFromRaw[widgets](5)
	next, ok := id.StepChecked(1)
	if !ok || next.Raw() != 6 {
		t.Fatalf("got %v, %v", next, ok)
	}
	_, ok = id.StepChecked(-10)
	if ok {
		t.Fatalf("expected StepChecked to reject going below zero")
	}
	_, ok = IdFromRaw[widgets](250).StepChecked(10)
	if ok {
		t.Fatalf("expected StepChecked to reject stepping past the width sentinel")
	}
}

func TestCheckOfRejectsOutOfBounds(t *testing.T) {
	id := IdFromRaw[widgets](3)
	defer func() {
		f, ok := recover().(*lattice.Fault)
		if !ok || f.Kind != lattice.OOBId {
			t.Fatalf("expected OOBId fault, got %v", recover())
		}
	}()
	CheckOf[widgets](id, 2)
}

func TestCheckOfAcceptsInBounds(t *testing.T) {
	id := IdFromRaw[widgets](3)
	c := CheckOf[widgets](id, 4)
	if c.Raw() != 3 || c.Id() != id {
		t.Fatalf("round trip broken: %v", c)
	}
}

func TestIdRangeContainsAndIter(t *testing.T) {
	r := IdRange[widgets]{Start: IdFromRaw[widgets](2), End: IdFromRaw[widgets](5)}
	if r.Len() != 3 {
		t.Fatalf("got len %d", r.Len())
	}
	if r.Contains(IdFromRaw[widgets](1)) || r.Contains(IdFromRaw[widgets](5)) {
		t.Fatalf("range must be half-open [2,5)")
	}
	var seen []uint64
	r.Iter(func(id Id[widgets]) { seen = append(seen, id.Raw()) })
	if len(seen) != 3 || seen[0] != 2 || seen[2] != 4 {
		t.Fatalf("got %v", seen)
	}
}
