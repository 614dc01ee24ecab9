// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package osal provides the operating-system abstraction layer that the
// dispatcher, transport and channel code run on: a bounded event queue,
// binary semaphores and critical sections, under either a cooperative
// single-thread backend or a preemptive goroutine-plus-callback backend.
package osal

import "fmt"

// EventID discriminates the events carried through a Queue.
type EventID int

const (
	// EventStartPolling registers a Context with the dispatcher's poll list.
	EventStartPolling EventID = iota
	// EventStopPolling removes a Context from the dispatcher's poll list.
	EventStopPolling
	// EventPDUReceived signals that a transport finished assembling an ADU
	// and handed the decoded PDU to its linked channel.
	EventPDUReceived
	// EventTxComplete signals that a byte-pipe Transmit call has completed.
	EventTxComplete
	// EventTimerExpired signals that a transport's inter-character or
	// inter-frame timer elapsed.
	EventTimerExpired
)

func (id EventID) String() string {
	switch id {
	case EventStartPolling:
		return "START_POLLING"
	case EventStopPolling:
		return "STOP_POLLING"
	case EventPDUReceived:
		return "PDU_RECEIVED"
	case EventTxComplete:
		return "TX_COMPLETE"
	case EventTimerExpired:
		return "TIMER_EXPIRED"
	default:
		return fmt.Sprintf("EVENT(%d)", int(id))
	}
}

// Event is the discriminated record posted into a Queue: an identifier plus
// an opaque context pointer identifying the target channel or transport.
// Context is deliberately `any` — osal does not know about the dispatcher's
// Context interface, only that one value travels with the event.
type Event struct {
	ID      EventID
	Context any
}
