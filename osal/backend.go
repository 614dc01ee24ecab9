// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package osal

import (
	"context"
	"sync"
	"time"
)

// Mode selects one of the two concurrency backends described in §5.
type Mode int

const (
	// Cooperative: no preemption. The application drives the dispatcher
	// loop itself; EventWait and SemTake never block.
	Cooperative Mode = iota
	// Preemptive: a dedicated goroutine runs the dispatcher loop
	// (dispatcher.Dispatcher.Run); SemTake and EventWait may block with a
	// timeout.
	Preemptive
)

// Backend bundles a queue with the scheduling mode it was built for, so
// that EventWait's blocking behavior (§4.1: "non-blocking [...] under the
// cooperative backend") is enforced in one place instead of at every call
// site.
type Backend struct {
	Mode  Mode
	Queue *Queue

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCooperative builds a backend whose EventWait and every Semaphore.Take
// bound to it never suspend the calling goroutine.
func NewCooperative(queueCapacity int) *Backend {
	return &Backend{Mode: Cooperative, Queue: NewQueue(queueCapacity)}
}

// NewPreemptive builds a backend suitable for a dedicated dispatcher
// goroutine plus caller goroutines that block on the rendezvous semaphore.
func NewPreemptive(queueCapacity int) *Backend {
	return &Backend{Mode: Preemptive, Queue: NewQueue(queueCapacity)}
}

// EventWait dequeues one event, honoring the backend's blocking contract:
// cooperative never blocks (timeout is ignored and treated as 0); preemptive
// waits up to timeout.
func (b *Backend) EventWait(timeout time.Duration) (Event, bool) {
	if b.Mode == Cooperative {
		return b.Queue.TryWait()
	}
	return b.Queue.Wait(timeout)
}

// SemTake blocks a caller on sem up to timeout, except under the cooperative
// backend where it never blocks regardless of the requested timeout — the
// contract §5.1 spells out as "therefore client API calls under this mode
// cannot block".
func (b *Backend) SemTake(sem *Semaphore, timeout time.Duration) bool {
	if b.Mode == Cooperative {
		return sem.Take(0)
	}
	return sem.Take(timeout)
}

// IsCooperative reports whether callers must poll EventTask themselves
// rather than rely on a background pump.
func (b *Backend) IsCooperative() bool { return b.Mode == Cooperative }

// RunInBackground starts a dedicated goroutine running run in a loop until
// the returned stop function is called. Only meaningful for the preemptive
// backend — cooperative users are expected to call run() directly and
// repeatedly instead (see dispatcher.Dispatcher.Run).
func (b *Backend) RunInBackground(run func(ctx context.Context)) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		run(ctx)
	}()
	return func() {
		cancel()
		b.wg.Wait()
	}
}
