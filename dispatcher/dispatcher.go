// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/ffutop/modbus-rtu-stack/osal"
)

// defaultWait is how long the dispatcher blocks waiting for an event when
// no context is registered for polling (§4.4).
const defaultWait = 5000 * time.Millisecond

// pollWait is the wait used instead of defaultWait whenever at least one
// poller is registered, so polled contexts still get driven promptly
// (§4.4: "1ms if any polled context registered").
const pollWait = 1 * time.Millisecond

// Dispatcher runs the single event_task loop described by §4.4: it waits
// for an osal.Event, special-cases EventStartPolling/EventStopPolling to
// maintain the poller list, otherwise routes the event to its target
// Context's Process method, and on every iteration calls Poll exactly once
// on each registered poller.
type Dispatcher struct {
	backend *osal.Backend

	mu      sync.Mutex
	pollers []Context
}

// New constructs a Dispatcher driven by backend's event queue.
func New(backend *osal.Backend) *Dispatcher {
	return &Dispatcher{backend: backend}
}

// StartPolling registers ctx to receive a Poll() call on every dispatcher
// iteration, until StopPolling is called for it. Idempotent.
func (d *Dispatcher) StartPolling(ctx Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.pollers {
		if c == ctx {
			return
		}
	}
	d.pollers = append(d.pollers, ctx)
}

// StopPolling removes ctx from the poller list, if present.
func (d *Dispatcher) StopPolling(ctx Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range d.pollers {
		if c == ctx {
			d.pollers = append(d.pollers[:i], d.pollers[i+1:]...)
			return
		}
	}
}

// Post enqueues evt for processing by the dispatcher loop. fromISR is
// forwarded to the underlying queue's Post, matching the ISR-safe posting
// contract described in §4.1/§4.4.
func (d *Dispatcher) Post(evt osal.Event, fromISR bool) error {
	return d.backend.Queue.Post(evt, fromISR)
}

// Run drives the event_task loop until ctx is canceled. Each iteration:
// wait for an event (pollWait if any poller is registered, else
// defaultWait), handle EventStartPolling/EventStopPolling directly, route
// any other event to its target Context's Process, then call Poll on every
// registered poller exactly once.
func (d *Dispatcher) Run(ctx goContext) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		wait := defaultWait
		d.mu.Lock()
		hasPollers := len(d.pollers) > 0
		d.mu.Unlock()
		if hasPollers {
			wait = pollWait
		}

		evt, ok := d.backend.EventWait(wait)
		if ok {
			d.handle(evt)
		}

		d.mu.Lock()
		pollers := append([]Context(nil), d.pollers...)
		d.mu.Unlock()
		for _, c := range pollers {
			c.Poll()
		}
	}
}

func (d *Dispatcher) handle(evt osal.Event) {
	switch evt.ID {
	case osal.EventStartPolling:
		if c, ok := evt.Context.(Context); ok {
			d.StartPolling(c)
		} else {
			osal.Assert("dispatcher: EventStartPolling without a Context payload")
		}
	case osal.EventStopPolling:
		if c, ok := evt.Context.(Context); ok {
			d.StopPolling(c)
		} else {
			osal.Assert("dispatcher: EventStopPolling without a Context payload")
		}
	default:
		c, ok := evt.Context.(Context)
		if !ok {
			osal.Assert("dispatcher: event routed with no target Context", "event", evt.ID)
			return
		}
		if c.Tag() == TagUnknown {
			osal.Assert("dispatcher: event routed to an unknown-tagged context")
			return
		}
		c.Process(evt)
	}
}

// goContext aliases the standard context.Context so Run's parameter reads
// as "context cancellation" without shadowing this package's own Context
// type.
type goContext = context.Context
