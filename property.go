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

import "reflect"

// AddProperty registers a named singleton value of type T. Properties
// are ordinary Universe slots; they get no event tracking by default
// (spec.md §4.K).
func AddProperty[T any](u *Universe, value T) {
	Add(u, value)
}

// Ref is the read extraction for a property of type T.
type Ref[T any] struct {
	v *T
}

func ReadProperty[T any]() *Ref[T] { return &Ref[T]{} }

func (r *Ref[T]) EachResource(f func(reflect.Type, Access)) {
	f(tagOf[T](), Read)
}

func (r *Ref[T]) Extract(u *Universe, feed *ResourceFeed) {
	r.v = Next[T](feed, Read)
}

func (r *Ref[T]) PreCleanup(*Universe)  {}
func (r *Ref[T]) PostCleanup(*Universe) {}

// Get returns the current property value.
func (r *Ref[T]) Get() T { return *r.v }

// Mut is the write extraction for a property of type T.
type Mut[T any] struct {
	v *T
}

func WriteProperty[T any]() *Mut[T] { return &Mut[T]{} }

func (m *Mut[T]) EachResource(f func(reflect.Type, Access)) {
	f(tagOf[T](), Write)
}

func (m *Mut[T]) Extract(u *Universe, feed *ResourceFeed) {
	m.v = Next[T](feed, Write)
}

func (m *Mut[T]) PreCleanup(*Universe)  {}
func (m *Mut[T]) PostCleanup(*Universe) {}

// Get returns the current property value.
func (m *Mut[T]) Get() T { return *m.v }

// Set overwrites the property value.
func (m *Mut[T]) Set(v T) { *m.v = v }
