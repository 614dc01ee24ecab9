// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package osal

import "sync"

// CriticalSection excludes the dispatcher goroutine from whatever goroutine
// the byte-pipe's receive/tx-complete callbacks run on. On a target with a
// real interrupt controller this would mask an interrupt vector; Go has no
// interrupt table to mask, so a mutex gives the same mutual-exclusion
// property for the brief, non-blocking operations (§5: "setting lock flags,
// updating counters") that are meant to cross that boundary.
type CriticalSection struct {
	mu sync.Mutex
}

// Enter excludes concurrent access until Exit is called.
func (c *CriticalSection) Enter() { c.mu.Lock() }

// Exit releases the exclusion taken by Enter.
func (c *CriticalSection) Exit() { c.mu.Unlock() }
