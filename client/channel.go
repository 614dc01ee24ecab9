// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package client implements the client channel (§4.6): one request at a
// time is sent to a unit, a pending-transaction descriptor records what
// response is expected, and the caller either sleeps through the
// broadcast turnaround delay or blocks on a semaphore until the matching
// response arrives or a timeout elapses. Grounded on the teacher's
// transport/rtu.Client.Send (transport/rtu/client.go): the same
// build-ADU / send / validate-CRC / extract-PDU shape, generalized from a
// synchronous blocking read into the asynchronous byte-pipe contract via
// osal's semaphore rendezvous.
package client

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ffutop/modbus-rtu-stack/dispatcher"
	"github.com/ffutop/modbus-rtu-stack/osal"
	"github.com/ffutop/modbus-rtu-stack/rtu"
)

// ErrRequestTimedOut is returned when no matching response arrives before
// the request's deadline.
var ErrRequestTimedOut = errors.New("client: request timed out")

// ErrCooperativeUnsupported is returned by Send when the channel's backend
// is osal.Cooperative: a single-threaded cooperative application cannot
// block a caller on a semaphore while also running the dispatcher loop
// that would deliver the response, so synchronous Send has no coherent
// meaning under that backend (§9, Open Question c). Cooperative
// applications must drive requests through the asynchronous Process path
// and their own dispatcher loop instead.
var ErrCooperativeUnsupported = errors.New("client: synchronous Send is not supported under the cooperative backend")

// errUnexpectedResponse is logged (never returned) when a frame fails to
// decode, or its node, function code or data length doesn't match what the
// pending transaction expected;
// per §9's Open Question (a), mismatched responses are discarded rather
// than surfaced to the caller still waiting on a (by then unrelated)
// transaction.
var errUnexpectedResponse = errors.New("client: unsolicited or mismatched response")

// pendingTransaction records what the outstanding request expects, so
// Process can validate an arriving frame before waking Send.
type pendingTransaction struct {
	address   byte
	code      byte
	broadcast bool
	// expectLen checks a success response's data length against the
	// request's documented reply shape (§4.6: "length matches predicate").
	// nil means the reply shape isn't statically knowable from the request
	// alone (the Custom escape hatch), so no length check is applied.
	expectLen func(int) bool
}

// expectedResponseDataLen derives the length predicate a success response
// to (code, reqData) must satisfy, from each standard function code's fixed
// reply shape: a byte-count prefix plus packed bits/registers for reads, or
// a 4-byte echo of the request's address+value/quantity fields for writes
// and diagnostics (§4.5 mirrors these same shapes server-side).
func expectedResponseDataLen(code byte, reqData []byte) func(int) bool {
	switch code {
	case rtu.FuncReadCoils, rtu.FuncReadDiscreteInputs:
		if len(reqData) != 4 {
			return nil
		}
		want := 1 + int((binary.BigEndian.Uint16(reqData[2:4])+7)/8)
		return func(n int) bool { return n == want }
	case rtu.FuncReadHoldingRegisters, rtu.FuncReadInputRegisters:
		if len(reqData) != 4 {
			return nil
		}
		want := 1 + 2*int(binary.BigEndian.Uint16(reqData[2:4]))
		return func(n int) bool { return n == want }
	case rtu.FuncWriteSingleCoil, rtu.FuncWriteSingleRegister,
		rtu.FuncWriteMultipleCoils, rtu.FuncWriteMultipleRegister,
		rtu.FuncDiagnostics:
		return func(n int) bool { return n == 4 }
	default:
		return nil
	}
}

// Channel is the client side of one RTU link.
type Channel struct {
	backend   *osal.Backend
	transport *rtu.Transport
	sem       *osal.Semaphore
	log       *slog.Logger

	// turnaroundDelay is how long a broadcast request's caller sleeps
	// before Send returns, standing in for the silent unicast-style
	// response window a broadcast never produces (§4.6).
	turnaroundDelay time.Duration

	mu        sync.Mutex
	pending   *pendingTransaction
	result    rtu.Packet
	resultErr error
}

// NewChannel builds a client Channel over transport, using backend's
// semaphore-wait contract for the request/response rendezvous. transport
// may be nil and attached later with AttachTransport, since the
// transport's constructor needs the channel's HandleFrame method as its
// frame callback (§9's "cross-linking transport↔channel").
func NewChannel(backend *osal.Backend, transport *rtu.Transport, turnaroundDelay time.Duration, log *slog.Logger) *Channel {
	if log == nil {
		log = slog.Default()
	}
	return &Channel{
		backend:         backend,
		transport:       transport,
		sem:             osal.NewSemaphore(),
		turnaroundDelay: turnaroundDelay,
		log:             log,
	}
}

// AttachTransport links transport to the channel after construction.
func (c *Channel) AttachTransport(transport *rtu.Transport) {
	c.mu.Lock()
	c.transport = transport
	c.mu.Unlock()
}

// Tag identifies this as a client-channel dispatcher.Context.
func (c *Channel) Tag() dispatcher.ContextTag { return dispatcher.TagClientChannel }

// Poll is a no-op: the client channel reacts to frames handed to it by the
// transport, it has nothing useful to do on a bare timer tick.
func (c *Channel) Poll() {}

// Process satisfies dispatcher.Context: the dispatcher routes a
// PDU_RECEIVED event here by its Context (this Channel), carrying no
// payload of its own (§4.1's event record is just an id plus an opaque
// target pointer) — the packet itself is fetched from the linked
// Transport via the §4.3 packet-accessor contract, then handled exactly as
// HandleFrame would for a directly-wired transport.
func (c *Channel) Process(evt osal.Event) {
	if evt.ID != osal.EventPDUReceived {
		osal.Assert("client channel: Process called with an unexpected event", "event", evt.ID)
		return
	}
	pkt, err := c.transport.GetRxPacket()
	c.HandleFrame(pkt, err)
}

// HandleFrame is the rtu.FrameHandler the transport should be constructed
// with.
func (c *Channel) HandleFrame(pkt *rtu.Packet, err error) {
	c.mu.Lock()
	pending := c.pending
	c.mu.Unlock()

	if pending == nil {
		// No outstanding transaction: an unsolicited response, logged and
		// discarded per §9, Open Question (a).
		c.log.Warn("client channel: unsolicited response, discarding", "error", err)
		return
	}

	mismatch := err != nil || pkt.Node != pending.address || (pkt.Code()&^rtu.ExceptionBit) != pending.code
	if !mismatch {
		if pkt.IsException() {
			mismatch = pkt.Len != 1
		} else if pending.expectLen != nil {
			mismatch = !pending.expectLen(pkt.Len)
		}
	}
	if mismatch {
		c.log.Warn("client channel: response does not match pending transaction, discarding",
			"error", errors.Join(err, errUnexpectedResponse), "node", pkt.Node, "code", pkt.Code(), "len", pkt.Len)
		return
	}

	c.mu.Lock()
	c.result = *pkt
	c.resultErr = nil
	c.pending = nil
	c.mu.Unlock()
	c.sem.Give(false)
}

// Send transmits pdu (code + data) to address and waits for the matching
// response, per the §4.6 algorithm: acquire/fill the outgoing packet,
// record the pending transaction, request the transmit, then either sleep
// through the broadcast turnaround or block on the semaphore up to
// timeout. Returns ErrCooperativeUnsupported immediately under a
// cooperative backend.
func (c *Channel) Send(ctx context.Context, address byte, code byte, data []byte, timeout time.Duration) (*rtu.Packet, error) {
	if c.backend.IsCooperative() {
		return nil, ErrCooperativeUnsupported
	}

	var req rtu.Packet
	req.SetCode(code)
	if err := req.SetData(data); err != nil {
		return nil, err
	}

	broadcast := address == rtu.AddressBroadcast
	c.mu.Lock()
	c.pending = &pendingTransaction{
		address:   address,
		code:      code,
		broadcast: broadcast,
		expectLen: expectedResponseDataLen(code, data),
	}
	c.mu.Unlock()

	ok, err := c.transport.Send(&req, address)
	if err != nil {
		c.clearPending()
		return nil, err
	}
	if !ok {
		c.clearPending()
		return nil, fmt.Errorf("client channel: transmit not accepted")
	}

	if broadcast {
		select {
		case <-time.After(c.turnaroundDelay):
		case <-ctx.Done():
		}
		c.clearPending()
		return nil, nil
	}

	if !c.backend.SemTake(c.sem, timeout) {
		c.clearPending()
		return nil, ErrRequestTimedOut
	}

	c.mu.Lock()
	result := c.result
	resultErr := c.resultErr
	c.mu.Unlock()

	if resultErr != nil {
		return nil, resultErr
	}
	if result.IsException() {
		return &result, fmt.Errorf("client channel: exception response, code %#02x", result.Data()[0])
	}
	return &result, nil
}

func (c *Channel) clearPending() {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
}
