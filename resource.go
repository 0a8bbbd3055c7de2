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

// Resource is the four-step protocol every kernel parameter type
// implements. See SPEC_FULL.md's "Resource extraction" section for why
// this collapses the original extract/convert split into one step.
type Resource interface {
	// EachResource statically enumerates the (tag, access) pairs this
	// parameter needs. Must be pure: the same value called twice yields
	// the same list.
	EachResource(f func(tag reflect.Type, acc Access))

	// Extract consumes entries from feed (after locks are held) and
	// populates the receiver so it can be handed straight to the kernel
	// body as the user-facing view.
	Extract(u *Universe, feed *ResourceFeed)

	// PreCleanup runs while locks are still held, capturing anything
	// that must survive release (edit logs, old/new lengths, ...).
	PreCleanup(u *Universe)

	// PostCleanup runs after locks release: publishing events, merging
	// free lists, relocating storage.
	PostCleanup(u *Universe)
}

// resourceDescriptor is one (tag, access) pair gathered from a
// parameter's EachResource, in declaration order.
type resourceDescriptor struct {
	tag  reflect.Type
	acc  Access
	name string
}

// ResourceFeed is the borrowed sequence of acquired slot contents handed
// to each parameter's Extract in declaration order. Extract must consume
// exactly as many entries as the corresponding EachResource declared.
type ResourceFeed struct {
	u     *Universe
	who   owner
	items []feedItem
	pos   int
}

type feedItem struct {
	tag   reflect.Type
	acc   Access
	slot  *slot
	value any
}

// Next returns a pointer to the next staged resource's value. Panics
// with TypeMismatch if the caller's
// expected type T does not match what was staged (a programming error:
// EachResource and Extract disagreed about order), and with
// AccessViolation if the requested access direction doesn't match what
// was declared.
func Next[T any](feed *ResourceFeed, want Access) *T {
	if feed.pos >= len(feed.items) {
		fault(TypeMismatch, "", "Extract called more times than EachResource declared resources")
	}
	it := feed.items[feed.pos]
	feed.pos++
	if it.acc != want {
		fault(AccessViolation, it.tag.String(), "asked for %s but used %s", it.acc, want)
	}
	v, ok := it.value.(*T)
	if !ok {
		fault(TypeMismatch, it.tag.String(), "downcast to %T failed", *new(T))
	}
	return v
}

// Universe returns the Universe this feed's resources were staged from.
// The feed does not expose its owner token: a nested With call (e.g.
// one performed from PostCleanup) mints a fresh owner, since
// post-cleanup runs after the kernel's own locks are released.
func (feed *ResourceFeed) Universe() *Universe { return feed.u }
