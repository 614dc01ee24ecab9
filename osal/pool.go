// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package osal

import "sync"

// Pool is a fixed-capacity slab allocator: the "arena + stable index" design
// note in §9. Re-acquiring after a release reuses the same backing array
// slot without any new heap bytes, and a slot can be referred to by its
// stable index rather than a borrow. The transport and channel constructors
// in this module allocate their values directly and do not draw from a Pool.
type Pool[T any] struct {
	mu       sync.Mutex
	slots    []T
	used     []bool
	capacity int
}

// NewPool allocates a pool able to hand out up to capacity values of T.
// The backing array is allocated once, here, and never grows.
func NewPool[T any](capacity int) *Pool[T] {
	return &Pool[T]{
		slots:    make([]T, capacity),
		used:     make([]bool, capacity),
		capacity: capacity,
	}
}

// Acquire reserves the next free slot and returns its index and a pointer
// into the backing array. ok is false, with Assert already called, if the
// pool is exhausted — a programmer error per §7, not a panic.
func (p *Pool[T]) Acquire() (index int, slot *T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.used {
		if !p.used[i] {
			p.used[i] = true
			return i, &p.slots[i], true
		}
	}
	Assert("osal: pool exhausted", "capacity", p.capacity)
	return -1, nil, false
}

// Release returns a slot to the pool and zeroes its contents, so that the
// next Acquire of that index starts from a clean value — mirroring "its
// type tag is zeroed before the memory is returned to the pool" (§3).
func (p *Pool[T]) Release(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.used) {
		Assert("osal: release of out-of-range pool index", "index", index)
		return
	}
	var zero T
	p.slots[index] = zero
	p.used[index] = false
}

// At returns a pointer to the slot at index, regardless of whether it is
// currently acquired — used by code that already holds a validated index.
func (p *Pool[T]) At(index int) *T {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.slots) {
		return nil
	}
	return &p.slots[index]
}
