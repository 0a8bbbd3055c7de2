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

package lattice

import "testing"

type point struct{ X, Y int }

func TestPropertyReadAndWriteViews(t *testing.T) {
	u := NewUniverse()
	AddProperty(u, point{X: 1, Y: 2})

	Run1(u, WriteProperty[point](), func(m *Mut[point]) {
		p := m.Get()
		p.X += 10
		m.Set(p)
	})

	var got point
	Run1(u, ReadProperty[point](), func(r *Ref[point]) { got = r.Get() })
	if got.X != 11 || got.Y != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestPropertyWriteBlocksConcurrentRead(t *testing.T) {
	u := NewUniverse()
	AddProperty(u, 0)
	s := u.stage(tagOf[int](), Write, newOwner())
	if s.can(Read) {
		t.Fatalf("a held Write slot must not also grant Read")
	}
	s.release(Write, s.writer)
}
