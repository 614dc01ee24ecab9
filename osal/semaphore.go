// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package osal

import "time"

// Semaphore is a binary semaphore, initial count 0 (taken). Multiple Give
// calls without an intervening Take collapse into one permit, matching the
// §4.1 contract.
type Semaphore struct {
	permit chan struct{}
}

// NewSemaphore creates a semaphore with an initial count of 0.
func NewSemaphore() *Semaphore {
	return &Semaphore{permit: make(chan struct{}, 1)}
}

// Give releases the semaphore. fromISR documents the calling context, as in
// Queue.Post; the underlying channel send is non-blocking either way.
func (s *Semaphore) Give(fromISR bool) {
	select {
	case s.permit <- struct{}{}:
	default:
		// already given; collapses per the binary-semaphore contract.
	}
}

// Take blocks up to timeout for a permit. A zero or negative timeout
// attempts a non-blocking take, which is what the cooperative backend's
// client channel relies on to never suspend the caller.
func (s *Semaphore) Take(timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case <-s.permit:
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.permit:
		return true
	case <-timer.C:
		return false
	}
}

// Free releases resources held by the semaphore. On a Go backend this is a
// no-op kept for API symmetry with the embedded source's sem_free.
func (s *Semaphore) Free() {}
