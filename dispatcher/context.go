// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package dispatcher generalizes the teacher's goroutine-pump
// (internal/gateway.Gateway.Start/handleRequest) into the spec's single
// event_task loop (§4.4): one loop dequeues osal.Events and invokes the
// context they target, and separately walks a poller list once per
// iteration so contexts that need periodic attention still make progress
// without blocking the loop. The server and client channels in this module
// are purely event-driven: their Poll methods do nothing.
package dispatcher

import "github.com/ffutop/modbus-rtu-stack/osal"

// ContextTag identifies which kind of channel a Context represents, used
// only for the dispatcher's own sanity checks — Go's interfaces make the
// polymorphic dispatch itself unnecessary, but the spec calls out a
// runtime type-tag check as a deliberate redundancy (§4.4, §9), so Tag is
// kept as a cheap assertion rather than dropped as dead weight.
type ContextTag int

const (
	TagUnknown ContextTag = iota
	TagServerChannel
	TagClientChannel
)

func (t ContextTag) String() string {
	switch t {
	case TagServerChannel:
		return "server-channel"
	case TagClientChannel:
		return "client-channel"
	default:
		return "unknown"
	}
}

// Context is anything the dispatcher can drive: a server or client channel
// registers one with a Dispatcher and receives Process calls for events
// addressed to it and, if registered as a poller, a Poll call once per
// dispatcher iteration.
type Context interface {
	// Process handles one event addressed to this context.
	Process(evt osal.Event)

	// Poll is invoked at most once per dispatcher iteration for contexts
	// registered via Dispatcher.StartPolling. It must never block.
	Poll()

	// Tag identifies the concrete kind of context, checked by the
	// dispatcher before Process as a belt-and-suspenders sanity check
	// against misrouted events.
	Tag() ContextTag
}
