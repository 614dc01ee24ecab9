// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package server implements the server channel (§4.5): it decodes an
// incoming RTU request, dispatches it to one of six data-table callbacks
// (or the custom-function-code slot), applies broadcast semantics, and
// tracks the diagnostics counters FC08 exposes. Grounded on the teacher's
// internal/local-slave.LocalSlave.Process switch-dispatch
// (internal/local-slave/slave.go), generalized from one concrete DataModel
// into caller-supplied callback slots so the channel carries no storage
// opinion of its own.
package server

import (
	"log/slog"
	"sync"

	"github.com/ffutop/modbus-rtu-stack/dispatcher"
	"github.com/ffutop/modbus-rtu-stack/osal"
	"github.com/ffutop/modbus-rtu-stack/rtu"
)

// ReadBitsFunc serves FC 01/02. excCode is 0 for success, otherwise one of
// the rtu.Exception* constants.
type ReadBitsFunc func(address, quantity uint16) (data []bool, excCode byte)

// ReadRegistersFunc serves FC 03/04.
type ReadRegistersFunc func(address, quantity uint16) (data []uint16, excCode byte)

// WriteSingleCoilFunc serves FC 05.
type WriteSingleCoilFunc func(address uint16, value bool) (excCode byte)

// WriteSingleRegisterFunc serves FC 06.
type WriteSingleRegisterFunc func(address, value uint16) (excCode byte)

// WriteMultipleCoilsFunc serves FC 0F.
type WriteMultipleCoilsFunc func(address uint16, values []bool) (excCode byte)

// WriteMultipleRegistersFunc serves FC 10.
type WriteMultipleRegistersFunc func(address uint16, values []uint16) (excCode byte)

// CustomFunc serves any function code the six data-table slots don't
// cover — most notably FC 0x11, Report Server ID (§4.5: "via the custom
// slot only"). handled reports whether this slot recognized the function
// code at all; if false the channel replies with ExceptionIllegalFunction.
type CustomFunc func(code byte, data []byte) (resp []byte, excCode byte, handled bool)

// Callbacks bundles the data-table slots a Channel dispatches to. A nil
// slot responds with ExceptionIllegalFunction for that function code.
type Callbacks struct {
	ReadCoils              ReadBitsFunc
	ReadDiscreteInputs     ReadBitsFunc
	ReadHoldingRegisters   ReadRegistersFunc
	ReadInputRegisters     ReadRegistersFunc
	WriteSingleCoil        WriteSingleCoilFunc
	WriteSingleRegister    WriteSingleRegisterFunc
	WriteMultipleCoils     WriteMultipleCoilsFunc
	WriteMultipleRegisters WriteMultipleRegistersFunc
	Custom                 CustomFunc
}

// Counters holds the five diagnostics counters FC08 exposes (§4.5).
type Counters struct {
	BusMessageCount        uint16
	BusCommErrorCount      uint16
	BusExceptionErrorCount uint16
	ServerMessageCount     uint16
	ServerNoResponseCount  uint16
}

// Channel is the server side of one RTU link: one unit address, one set of
// data-table callbacks, one transport.
type Channel struct {
	Address   byte
	transport *rtu.Transport
	callbacks Callbacks

	mu       sync.Mutex
	counters Counters

	log *slog.Logger
}

// NewChannel builds a server Channel bound to address, dispatching
// decoded requests to callbacks and sending responses over transport.
// transport may be nil and attached later with AttachTransport — the
// transport's own constructor needs the channel's HandleFrame method as
// its frame callback, so the two are necessarily built in two steps
// (§9's "cross-linking transport↔channel").
func NewChannel(address byte, transport *rtu.Transport, callbacks Callbacks, log *slog.Logger) *Channel {
	if log == nil {
		log = slog.Default()
	}
	return &Channel{Address: address, transport: transport, callbacks: callbacks, log: log}
}

// AttachTransport links transport to the channel after construction.
func (c *Channel) AttachTransport(transport *rtu.Transport) {
	c.mu.Lock()
	c.transport = transport
	c.mu.Unlock()
}

// Tag identifies this as a server-channel dispatcher.Context.
func (c *Channel) Tag() dispatcher.ContextTag { return dispatcher.TagServerChannel }

// Poll is a no-op: the server channel is entirely event-driven by incoming
// frames, so it never needs to be registered with Dispatcher.StartPolling.
func (c *Channel) Poll() {}

// Counters returns a snapshot of the diagnostics counters.
func (c *Channel) Counters() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters
}

// HandleFrame is the rtu.FrameHandler the transport should be constructed
// with: it is the entry point the byte-level reassembly hands decoded (or
// malformed) ADUs to.
func (c *Channel) HandleFrame(pkt *rtu.Packet, err error) {
	if err != nil {
		c.mu.Lock()
		c.counters.BusCommErrorCount++
		c.mu.Unlock()
		c.log.Warn("server channel: malformed frame", "error", err)
		return
	}

	c.mu.Lock()
	c.counters.BusMessageCount++
	c.mu.Unlock()

	broadcast := pkt.Node == rtu.AddressBroadcast
	if !broadcast && pkt.Node != c.Address {
		// Not addressed to us and not a broadcast: silently ignored, as
		// any other unit's traffic would be (§4.5).
		return
	}

	if !broadcast {
		c.mu.Lock()
		c.counters.ServerMessageCount++
		c.mu.Unlock()
	}

	resp, excCode := c.dispatch(pkt.Code(), pkt.Data())

	if broadcast {
		// Writes are processed silently; reads never reach dispatch with
		// useful semantics since no response is ever sent (§4.5). Either
		// way this is a suppressed response, so it counts toward the
		// server no-response counter alongside send-rejected responses.
		c.mu.Lock()
		c.counters.ServerNoResponseCount++
		c.mu.Unlock()
		return
	}

	if excCode != 0 {
		c.mu.Lock()
		c.counters.BusExceptionErrorCount++
		c.mu.Unlock()
		c.sendException(pkt.Code(), excCode)
		return
	}

	c.sendResponse(pkt.Code(), resp)
}

func (c *Channel) sendResponse(code byte, data []byte) {
	var out rtu.Packet
	out.SetCode(code)
	if err := out.SetData(data); err != nil {
		c.log.Error("server channel: response too large", "code", code, "error", err)
		c.sendException(code, rtu.ExceptionServerDeviceFailure)
		return
	}
	if ok, err := c.transport.Send(&out, c.Address); !ok || err != nil {
		c.mu.Lock()
		c.counters.ServerNoResponseCount++
		c.mu.Unlock()
		c.log.Warn("server channel: response not accepted for transmit", "error", err)
	}
}

func (c *Channel) sendException(code, excCode byte) {
	var out rtu.Packet
	out.SetCode(code | rtu.ExceptionBit)
	_ = out.SetData([]byte{excCode})
	if ok, err := c.transport.Send(&out, c.Address); !ok || err != nil {
		c.mu.Lock()
		c.counters.ServerNoResponseCount++
		c.mu.Unlock()
		c.log.Warn("server channel: exception response not accepted for transmit", "error", err)
	}
}

// Process satisfies dispatcher.Context: the dispatcher routes a
// PDU_RECEIVED event here by its Context (this Channel), carrying no
// payload of its own (§4.1's event record is just an id plus an opaque
// target pointer) — the packet itself is fetched from the linked
// Transport via the §4.3 packet-accessor contract, then handled exactly as
// HandleFrame would for a directly-wired transport.
func (c *Channel) Process(evt osal.Event) {
	if evt.ID != osal.EventPDUReceived {
		osal.Assert("server channel: Process called with an unexpected event", "event", evt.ID)
		return
	}
	pkt, err := c.transport.GetRxPacket()
	c.HandleFrame(pkt, err)
}
