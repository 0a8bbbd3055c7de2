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

// Context2 groups two extractions into a single parameter, so a kernel
// can name one view instead of many independent ones (spec.md §4.J).
// Its own extraction is simply the field-wise concatenation of A and B,
// in declaration order, and cleanup composes the same way.
type Context2[A, B Resource] struct {
	A A
	B B
}

func (c *Context2[A, B]) EachResource(f func(reflect.Type, Access)) {
	c.A.EachResource(f)
	c.B.EachResource(f)
}

func (c *Context2[A, B]) Extract(u *Universe, feed *ResourceFeed) {
	c.A.Extract(u, feed)
	c.B.Extract(u, feed)
}

func (c *Context2[A, B]) PreCleanup(u *Universe) {
	c.A.PreCleanup(u)
	c.B.PreCleanup(u)
}

func (c *Context2[A, B]) PostCleanup(u *Universe) {
	c.A.PostCleanup(u)
	c.B.PostCleanup(u)
}

// Context3 groups three extractions; see Context2.
type Context3[A, B, C Resource] struct {
	A A
	B B
	C C
}

func (c *Context3[A, B, C]) EachResource(f func(reflect.Type, Access)) {
	c.A.EachResource(f)
	c.B.EachResource(f)
	c.C.EachResource(f)
}

func (c *Context3[A, B, C]) Extract(u *Universe, feed *ResourceFeed) {
	c.A.Extract(u, feed)
	c.B.Extract(u, feed)
	c.C.Extract(u, feed)
}

func (c *Context3[A, B, C]) PreCleanup(u *Universe) {
	c.A.PreCleanup(u)
	c.B.PreCleanup(u)
	c.C.PreCleanup(u)
}

func (c *Context3[A, B, C]) PostCleanup(u *Universe) {
	c.A.PostCleanup(u)
	c.B.PostCleanup(u)
	c.C.PostCleanup(u)
}

// Context4 groups four extractions; see Context2.
type Context4[A, B, C, D Resource] struct {
	A A
	B B
	C C
	D D
}

func (c *Context4[A, B, C, D]) EachResource(f func(reflect.Type, Access)) {
	c.A.EachResource(f)
	c.B.EachResource(f)
	c.C.EachResource(f)
	c.D.EachResource(f)
}

func (c *Context4[A, B, C, D]) Extract(u *Universe, feed *ResourceFeed) {
	c.A.Extract(u, feed)
	c.B.Extract(u, feed)
	c.C.Extract(u, feed)
	c.D.Extract(u, feed)
}

func (c *Context4[A, B, C, D]) PreCleanup(u *Universe) {
	c.A.PreCleanup(u)
	c.B.PreCleanup(u)
	c.C.PreCleanup(u)
	c.D.PreCleanup(u)
}

func (c *Context4[A, B, C, D]) PostCleanup(u *Universe) {
	c.A.PostCleanup(u)
	c.B.PostCleanup(u)
	c.C.PostCleanup(u)
	c.D.PostCleanup(u)
}

// Context5 groups five extractions; see Context2.
type Context5[A, B, C, D, E Resource] struct {
	A A
	B B
	C C
	D D
	E E
}

func (c *Context5[A, B, C, D, E]) EachResource(f func(reflect.Type, Access)) {
	c.A.EachResource(f)
	c.B.EachResource(f)
	c.C.EachResource(f)
	c.D.EachResource(f)
	c.E.EachResource(f)
}

func (c *Context5[A, B, C, D, E]) Extract(u *Universe, feed *ResourceFeed) {
	c.A.Extract(u, feed)
	c.B.Extract(u, feed)
	c.C.Extract(u, feed)
	c.D.Extract(u, feed)
	c.E.Extract(u, feed)
}

func (c *Context5[A, B, C, D, E]) PreCleanup(u *Universe) {
	c.A.PreCleanup(u)
	c.B.PreCleanup(u)
	c.C.PreCleanup(u)
	c.D.PreCleanup(u)
	c.E.PreCleanup(u)
}

func (c *Context5[A, B, C, D, E]) PostCleanup(u *Universe) {
	c.A.PostCleanup(u)
	c.B.PostCleanup(u)
	c.C.PostCleanup(u)
	c.D.PostCleanup(u)
	c.E.PostCleanup(u)
}
