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

// run is the kernel executor of spec.md §4.D: gather declared resources,
// acquire them as a set (plan & wait, no partial acquisition held across
// a wait), build views, run the body, drain logs while locks are held,
// release, then publish events.
func run(u *Universe, params []Resource, body func()) {
	who := newOwner()

	var descs []resourceDescriptor
	for _, p := range params {
		p.EachResource(func(tag reflect.Type, acc Access) {
			descs = append(descs, resourceDescriptor{tag: tag, acc: acc, name: tag.String()})
		})
	}
	checkSelfConflict(descs)

	slots := u.acquireAll(descs, who)
	items := make([]feedItem, len(descs))
	for i, d := range descs {
		items[i] = feedItem{tag: d.tag, acc: d.acc, slot: slots[i], value: slots[i].contents()}
	}
	feed := &ResourceFeed{u: u, who: who, items: items}
	for _, p := range params {
		p.Extract(u, feed)
	}

	released := false
	release := func(panicked bool) {
		if released {
			return
		}
		released = true
		u.releaseAll(descs, slots, who, panicked)
	}
	defer func() {
		if r := recover(); r != nil {
			release(true)
			panic(r)
		}
	}()

	body()

	for _, p := range params {
		p.PreCleanup(u)
	}
	release(false)
	for _, p := range params {
		p.PostCleanup(u)
	}
}

// checkSelfConflict rejects any (tag, Write) that coexists with any
// other occurrence of the same tag within one kernel's declared
// resources (spec.md §4.D "Validation at kernel construction").
func checkSelfConflict(descs []resourceDescriptor) {
	byTag := make(map[reflect.Type][]Access, len(descs))
	for _, d := range descs {
		byTag[d.tag] = append(byTag[d.tag], d.acc)
	}
	for tag, accs := range byTag {
		if len(accs) < 2 {
			continue
		}
		for _, a := range accs {
			if a == Write {
				fault(AccessConflict, tag.String(), "declared more than once, with a Write access among the declarations")
			}
		}
	}
}

// acquireAll performs the "plan & wait" step: it holds the map mutex for
// the entire attempt, stages a pointer to every required slot, and only
// commits (acquires all of them) once every slot can grant its access.
// Otherwise it waits on the condition variable and retries from
// scratch. No partial acquisition is ever held across a wait, which is
// what makes the scheme deadlock-free regardless of acquisition order.
func (u *Universe) acquireAll(descs []resourceDescriptor, who owner) []*slot {
	u.mu.Lock()
	defer u.mu.Unlock()
	slots := make([]*slot, len(descs))
	for {
		ok := true
		for i, d := range descs {
			s, found := u.slots[d.tag]
			if !found {
				fault(ResourceAbsent, d.tag.String(), "no such resource registered in this Universe")
			}
			slots[i] = s
			if s.kind == statePoison {
				// A poisoned slot never becomes acquirable; waiting on it
				// would hang forever. Let acquire raise PoisonedSlot.
				s.acquire(d.acc, who)
			}
			if ok && !s.can(d.acc) {
				ok = false
			}
		}
		if ok {
			for i, d := range descs {
				slots[i].acquire(d.acc, who)
			}
			return slots
		}
		u.cond.Wait()
	}
}

// releaseAll releases every acquired slot in reverse declaration order.
// A slot that was held Write at panic time is poisoned instead of
// cleanly released, denying all future access.
func (u *Universe) releaseAll(descs []resourceDescriptor, slots []*slot, who owner, panicked bool) {
	u.mu.Lock()
	for i := len(descs) - 1; i >= 0; i-- {
		if panicked && descs[i].acc == Write {
			slots[i].poison()
			continue
		}
		slots[i].release(descs[i].acc, who)
	}
	u.mu.Unlock()
	u.cond.Broadcast()
}

// KernelArg wraps a caller-owned value (pushed via Args.Ref/Args.Mut)
// that a kernel receives as an opaque extra parameter. It claims zero
// Universe resources: the value is already owned by the caller, not the
// Universe, so no slot acquisition is involved.
type KernelArg[T any] struct {
	Value T
}

func (k *KernelArg[T]) EachResource(func(reflect.Type, Access)) {}
func (k *KernelArg[T]) Extract(*Universe, *ResourceFeed)        {}
func (k *KernelArg[T]) PreCleanup(*Universe)                    {}
func (k *KernelArg[T]) PostCleanup(*Universe)                   {}

// Args is the with_args() builder: a set of caller-owned values folded
// into a kernel's resource set alongside its declared positional
// parameters, so the whole thing still acquires as one all-or-nothing
// lock plan.
type Args struct {
	list []Resource
}

// NewArgs starts a fresh with_args() builder.
func NewArgs() *Args { return &Args{} }

// ArgRef pushes a read-only caller-owned reference.
func ArgRef[T any](a *Args, v *T) *KernelArg[*T] {
	k := &KernelArg[*T]{Value: v}
	a.list = append(a.list, k)
	return k
}

// ArgMut pushes a mutable caller-owned reference.
func ArgMut[T any](a *Args, v *T) *KernelArg[*T] {
	k := &KernelArg[*T]{Value: v}
	a.list = append(a.list, k)
	return k
}

// Run executes body as a kernel whose only declared resources are the
// ones pushed onto a (Universe-backed parameters are closed over body
// via one of the RunNWith helpers instead).
func (a *Args) Run(u *Universe, body func()) {
	run(u, a.list, body)
}

// --- Positional kernel entry points -----------------------------------
//
// Eight positional parameters (not the original's fifteen) is the
// practical cap here; Context2..Context5 (context.go) are the documented
// way past it, which is exactly what spec.md §4.J describes contexts
// for. See SPEC_FULL.md, "Kernel executor".

func Run0(u *Universe, fn func()) {
	run(u, nil, fn)
}

func Run1[A Resource](u *Universe, a A, fn func(A)) {
	run(u, []Resource{a}, func() { fn(a) })
}

func Run1With[A Resource](u *Universe, args *Args, a A, fn func(A)) {
	params := append([]Resource{a}, args.list...)
	run(u, params, func() { fn(a) })
}

func Run2[A, B Resource](u *Universe, a A, b B, fn func(A, B)) {
	run(u, []Resource{a, b}, func() { fn(a, b) })
}

func Run2With[A, B Resource](u *Universe, args *Args, a A, b B, fn func(A, B)) {
	params := append([]Resource{a, b}, args.list...)
	run(u, params, func() { fn(a, b) })
}

func Run3[A, B, C Resource](u *Universe, a A, b B, c C, fn func(A, B, C)) {
	run(u, []Resource{a, b, c}, func() { fn(a, b, c) })
}

func Run4[A, B, C, D Resource](u *Universe, a A, b B, c C, d D, fn func(A, B, C, D)) {
	run(u, []Resource{a, b, c, d}, func() { fn(a, b, c, d) })
}

func Run5[A, B, C, D, E Resource](u *Universe, a A, b B, c C, d D, e E, fn func(A, B, C, D, E)) {
	run(u, []Resource{a, b, c, d, e}, func() { fn(a, b, c, d, e) })
}

func Run6[A, B, C, D, E, F Resource](u *Universe, a A, b B, c C, d D, e E, f F, fn func(A, B, C, D, E, F)) {
	run(u, []Resource{a, b, c, d, e, f}, func() { fn(a, b, c, d, e, f) })
}

func Run7[A, B, C, D, E, F, G Resource](u *Universe, a A, b B, c C, d D, e E, f F, g G, fn func(A, B, C, D, E, F, G)) {
	run(u, []Resource{a, b, c, d, e, f, g}, func() { fn(a, b, c, d, e, f, g) })
}

func Run8[A, B, C, D, E, F, G, H Resource](u *Universe, a A, b B, c C, d D, e E, f F, g G, h H, fn func(A, B, C, D, E, F, G, H)) {
	run(u, []Resource{a, b, c, d, e, f, g, h}, func() { fn(a, b, c, d, e, f, g, h) })
}
